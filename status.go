package submitq

import "sync/atomic"

// Status is a write-once result slot for a single queued operation.
//
// A Status is allocated by the caller and handed to [Queue.SubmitTracked] or
// [Queue.Present]. The submit stage writes the terminal [Result] exactly
// once; the caller observes it with [Status.Result] or blocks on it with
// [Queue.SynchronizeSubmission]. The queue only ever writes to the slot, so
// the Status may outlive the queue entry and be reused across frames after
// [Status.Reset].
//
// The zero value is ready to use and reads as [NotReady].
type Status struct {
	result atomic.Int32
}

// Result returns the current result code. It is [NotReady] until the
// submit stage has processed the operation.
func (s *Status) Result() Result {
	return Result(s.result.Load())
}

// Done reports whether the operation has reached a terminal result.
func (s *Status) Done() bool {
	return s.Result().Terminal()
}

// Reset rearms the slot for reuse with a later operation. Callers that
// recycle one Status per frame (the common presentation pattern) must Reset
// it before handing it back to the queue; resetting a Status that is still
// attached to a queued entry races with the submit stage.
func (s *Status) Reset() {
	s.result.Store(int32(NotReady))
}

// set writes the terminal result. Called exactly once per queued entry,
// only by the submit stage.
func (s *Status) set(r Result) {
	s.result.Store(int32(r))
}
