// Package clock abstracts delayed callbacks so the gaze dwell timer can be
// driven by the wall clock in production and by a manual clock in tests.
package clock

import "time"

// Scheduler schedules single-shot callbacks.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// fired or the timer was already stopped.
	Stop() bool
}

var _ Scheduler = Real{}

// Real schedules on the runtime timer heap.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

var _ Scheduler = (*Mailbox)(nil)

// Mailbox wraps a Scheduler so that callbacks run wherever post runs them
// instead of on the timer's goroutine. A session actor hands its mailbox
// enqueue function here so timer fires are serialized with everything else
// the actor does.
type Mailbox struct {
	inner Scheduler
	post  func(func())
}

// NewMailbox returns a Scheduler delivering callbacks through post.
func NewMailbox(inner Scheduler, post func(func())) *Mailbox {
	if inner == nil {
		inner = Real{}
	}
	return &Mailbox{inner: inner, post: post}
}

func (m *Mailbox) Now() time.Time { return m.inner.Now() }

func (m *Mailbox) AfterFunc(d time.Duration, f func()) Timer {
	return m.inner.AfterFunc(d, func() { m.post(f) })
}
