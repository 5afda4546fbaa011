// Package cancel provides the single cancellation primitive shared between
// a conversation turn's interrupt sources (interactive shell, non-interactive
// driver signal handler, explicit stop commands) and its consumer (the
// streaming backend client).
package cancel

import "sync/atomic"

// Flag is a shared, concurrency-safe cancellation signal. One Flag is owned
// by the coordinator per turn; setting it from any goroutine is observed by
// the backend client at its next chunk boundary.
type Flag struct {
	set    atomic.Bool
	signal atomic.Int32
}

// New returns an unset Flag.
func New() *Flag {
	return &Flag{}
}

// Cancel sets the flag. Idempotent.
func (f *Flag) Cancel() {
	f.set.Store(true)
}

// Cancelled reports whether the flag has been set.
func (f *Flag) Cancelled() bool {
	return f.set.Load()
}

// Reset clears the flag and its recorded signal, preparing it for reuse on
// the next turn.
func (f *Flag) Reset() {
	f.set.Store(false)
	f.signal.Store(0)
}

// RecordSignal records the last OS signal number that triggered
// cancellation, feeding the non-interactive driver's exit-code policy.
func (f *Flag) RecordSignal(sig int) {
	f.signal.Store(int32(sig))
	f.Cancel()
}

// LastSignal returns the last recorded signal number, or 0 if cancellation
// was never signal-driven.
func (f *Flag) LastSignal() int {
	return int(f.signal.Load())
}
