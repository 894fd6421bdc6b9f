package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/civitasgov/pulseguard/internal/domain"
)

func req(id string) *domain.AnalysisRequest {
	return &domain.AnalysisRequest{ID: id}
}

func TestMemQueueFIFOOrder(t *testing.T) {
	q := NewMemQueue(4, PolicyReject)

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(req(fmt.Sprintf("r%d", i))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		got, ok := q.Dequeue()
		if !ok || got.ID != fmt.Sprintf("r%d", i) {
			t.Fatalf("expected r%d, got %+v ok=%v", i, got, ok)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestMemQueueRejectPolicy(t *testing.T) {
	q := NewMemQueue(2, PolicyReject)

	q.Enqueue(req("a"))
	q.Enqueue(req("b"))

	if _, err := q.Enqueue(req("c")); !errors.Is(err, ErrQueueSaturated) {
		t.Fatalf("expected ErrQueueSaturated, got %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}
}

func TestMemQueueDropOldestPolicy(t *testing.T) {
	q := NewMemQueue(2, PolicyDropOldest)

	q.Enqueue(req("a"))
	q.Enqueue(req("b"))

	evicted, err := q.Enqueue(req("c"))
	if err != nil {
		t.Fatalf("drop_oldest must admit the newcomer: %v", err)
	}
	if evicted == nil || evicted.ID != "a" {
		t.Fatalf("expected oldest entry evicted, got %+v", evicted)
	}
	if q.Contains("a") {
		t.Fatalf("evicted id must leave the index")
	}

	got, _ := q.Dequeue()
	if got.ID != "b" {
		t.Fatalf("expected b at the head, got %s", got.ID)
	}
}

func TestMemQueueDropNewestPolicy(t *testing.T) {
	q := NewMemQueue(1, PolicyDropNewest)

	q.Enqueue(req("a"))
	if _, err := q.Enqueue(req("b")); !errors.Is(err, ErrQueueSaturated) {
		t.Fatalf("expected newcomer rejected, got %v", err)
	}
	got, _ := q.Dequeue()
	if got.ID != "a" {
		t.Fatalf("expected original entry kept, got %s", got.ID)
	}
}

func TestMemQueueContains(t *testing.T) {
	q := NewMemQueue(4, PolicyReject)
	q.Enqueue(req("x"))

	if !q.Contains("x") {
		t.Fatalf("expected queue to contain x")
	}
	q.Dequeue()
	if q.Contains("x") {
		t.Fatalf("expected x removed after dequeue")
	}
}
