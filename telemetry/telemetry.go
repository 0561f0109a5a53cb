// Package telemetry carries situation reports, mode changes and game events
// out of the tick loop. Every sink is optional and none may block the tick:
// events are queued and dropped when a sink falls behind.
package telemetry

//go:generate go tool mockgen -destination=./mocks/sink_mock.go -package=mocks . Sink

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/sitrep"
)

var (
	// ErrBackpressure is returned when a sink's queue is full and the event was dropped.
	ErrBackpressure = errors.New("telemetry queue full")
	ErrClosed       = errors.New("telemetry sink closed")
)

type Kind string

const (
	KindReport Kind = "report"
	KindMode   Kind = "mode"
	KindEvent  Kind = "event"
	KindMatch  Kind = "match"
)

// Event is one telemetry record. Report is set for KindReport and Name for
// KindEvent. KindMatch opens a match and carries player and race in Detail.
// Mode is always the mode in force when the event was emitted.
type Event struct {
	MatchID string                  `json:"matchId"`
	Tick    int                     `json:"tick"`
	Time    float64                 `json:"time"`
	Kind    Kind                    `json:"kind"`
	Name    string                  `json:"name,omitempty"`
	Mode    model.Mode              `json:"mode"`
	Report  *sitrep.SituationReport `json:"report,omitempty"`
	Detail  map[string]any          `json:"detail,omitempty"`
}

// Sink receives events. Publish must not block.
type Sink interface {
	Publish(e Event) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close() error        { return nil }

// Fanout publishes to every sink and reports the first error.
type Fanout []Sink

func (f Fanout) Publish(e Event) error {
	var first error
	for _, s := range f {
		if err := s.Publish(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// queue is the bounded hand-off between the tick loop and a writer goroutine.
type queue struct {
	ch      chan Event
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

func newQueue(size int) *queue {
	if size <= 0 {
		size = 1024
	}
	return &queue{ch: make(chan Event, size)}
}

func (q *queue) offer(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		q.dropped.Add(1)
		return ErrBackpressure
	}
}

// close stops intake; the consumer drains what is left.
func (q *queue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	close(q.ch)
	return true
}
