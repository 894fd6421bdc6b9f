package ports

import "github.com/civitasgov/pulseguard/internal/domain"

// RequestQueue buffers analysis requests that cannot be dispatched
// immediately. Implementations are bounded; Enqueue applies the configured
// admission policy and reports an eviction so the caller can resolve the
// evicted request with a typed error.
type RequestQueue interface {
	// Enqueue admits the request. When the queue is full the admission
	// policy decides: reject (error returned), drop the oldest entry
	// (evicted returned), or drop the newcomer (error returned).
	Enqueue(req *domain.AnalysisRequest) (evicted *domain.AnalysisRequest, err error)
	Dequeue() (*domain.AnalysisRequest, bool)
	Contains(id string) bool
	Len() int
}
