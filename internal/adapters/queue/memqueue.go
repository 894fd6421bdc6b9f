package queue

import (
	"errors"
	"sync"

	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// ErrQueueSaturated indicates the bounded queue refused a request under the
// configured admission policy.
var ErrQueueSaturated = errors.New("pulseguard: analysis queue saturated")

// Admission policies applied when the queue is at capacity.
const (
	PolicyReject     = "reject"
	PolicyDropOldest = "drop_oldest"
	PolicyDropNewest = "drop_newest"
)

// MemQueue is a bounded FIFO of analysis requests. It replaces unbounded
// growth under sustained overload with an explicit admission policy.
type MemQueue struct {
	mu     sync.Mutex
	data   []*domain.AnalysisRequest
	ids    map[string]struct{}
	cap    int
	policy string
}

func NewMemQueue(capacity int, policy string) *MemQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	switch policy {
	case PolicyReject, PolicyDropOldest, PolicyDropNewest:
	default:
		policy = PolicyReject
	}
	return &MemQueue{
		data:   make([]*domain.AnalysisRequest, 0, capacity),
		ids:    make(map[string]struct{}, capacity),
		cap:    capacity,
		policy: policy,
	}
}

func (q *MemQueue) Enqueue(req *domain.AnalysisRequest) (*domain.AnalysisRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.data) < q.cap {
		q.append(req)
		return nil, nil
	}

	switch q.policy {
	case PolicyDropOldest:
		evicted := q.data[0]
		q.data = q.data[1:]
		delete(q.ids, evicted.ID)
		q.append(req)
		return evicted, nil
	case PolicyDropNewest:
		return nil, ErrQueueSaturated
	default:
		return nil, ErrQueueSaturated
	}
}

func (q *MemQueue) Dequeue() (*domain.AnalysisRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil, false
	}
	req := q.data[0]
	q.data = q.data[1:]
	delete(q.ids, req.ID)
	return req, true
}

func (q *MemQueue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.ids[id]
	return ok
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

func (q *MemQueue) append(req *domain.AnalysisRequest) {
	q.data = append(q.data, req)
	q.ids[req.ID] = struct{}{}
}

var _ ports.RequestQueue = (*MemQueue)(nil)
