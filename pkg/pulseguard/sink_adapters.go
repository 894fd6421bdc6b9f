package pulseguard

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("pulseguard: channel sink closed")

// ResultHandler is invoked once per analysis result.
type ResultHandler func(AnalysisResult) error

// NewCallbackResultSink adapts a ResultHandler into a full ResultSink so
// callers can plug arbitrary functions without defining structs.
func NewCallbackResultSink(name string, fn ResultHandler) ResultSink {
	if name == "" {
		name = "callback"
	}
	return &callbackResultSink{name: name, fn: fn}
}

// NewChannelResultSink exposes results via a channel; it returns the sink,
// the read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelResultSink(name string, buffer int) (ResultSink, <-chan AnalysisResult, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan AnalysisResult, buffer)
	s := &channelResultSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackResultSink struct {
	name string
	fn   ResultHandler
}

func (s *callbackResultSink) DeliverResult(res AnalysisResult) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(res)
}

func (s *callbackResultSink) Name() string { return s.name }

type channelResultSink struct {
	name   string
	ch     chan AnalysisResult
	closed chan struct{}
	once   sync.Once

	// mu sequences close(ch) after in-flight deliveries: senders hold a read
	// lock, close takes the write lock only after the closed signal has
	// released any blocked sends.
	mu      sync.RWMutex
	stopped bool
}

func (s *channelResultSink) DeliverResult(res AnalysisResult) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrChannelSinkClosed
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- res:
		return nil
	}
}

func (s *channelResultSink) Name() string { return s.name }

func (s *channelResultSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		s.stopped = true
		close(s.ch)
		s.mu.Unlock()
	})
}
