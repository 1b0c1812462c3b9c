package raft

import "sync"

// PendingResponse is a single-producer/single-consumer one-shot reply
// carrier attached to an in-flight admin request. Exactly one call to
// Send resolves it; a holder that drops it without sending calls Cancel,
// which the waiter observes as cancellation via Recv's ok=false return.
// A PendingResponse that is neither sent to nor cancelled leaves Recv
// blocked.
type PendingResponse[T any, E error] struct {
	once sync.Once
	ch   chan result[T, E]
}

type result[T any, E error] struct {
	val T
	err E
}

// NewPendingResponse constructs an unresolved reply channel.
func NewPendingResponse[T any, E error]() *PendingResponse[T, E] {
	return &PendingResponse[T, E]{ch: make(chan result[T, E], 1)}
}

// Send resolves the reply with (val, err). Only the first call has any
// effect; subsequent calls are no-ops, matching the move-only semantics of
// the source's one-shot channel.
func (p *PendingResponse[T, E]) Send(val T, err E) {
	p.once.Do(func() {
		p.ch <- result[T, E]{val: val, err: err}
		close(p.ch)
	})
}

// Cancel drops the reply without a value or error. A concurrent or later
// Recv/TryRecv observes ok=false. Only the first call to Send or Cancel
// has any effect.
func (p *PendingResponse[T, E]) Cancel() {
	p.once.Do(func() {
		close(p.ch)
	})
}

// Recv blocks for the resolution. ok is false if the PendingResponse was
// cancelled without ever being sent to (the channel closed empty).
func (p *PendingResponse[T, E]) Recv() (val T, err E, ok bool) {
	r, open := <-p.ch
	if !open {
		var zv T
		var ze E
		return zv, ze, false
	}
	return r.val, r.err, true
}

// TryRecv is a non-blocking variant of Recv used by test doubles.
func (p *PendingResponse[T, E]) TryRecv() (val T, err E, ok bool) {
	select {
	case r, open := <-p.ch:
		if !open {
			var zv T
			var ze E
			return zv, ze, false
		}
		return r.val, r.err, true
	default:
		var zv T
		var ze E
		return zv, ze, false
	}
}
