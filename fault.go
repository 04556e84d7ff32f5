package submitq

import "sync/atomic"

// faultState is the sticky device-fault cell shared by both pipeline stages
// and every producer. It starts clear and latches the first fatal [Result]
// written to it; later writes are ignored. Clearing a fault is an external
// device-reset responsibility, not this subsystem's, so no clear operation
// is exposed.
//
// The cell is a single atomic so both stages can consult it before touching
// hardware without taking the queue lock.
type faultState struct {
	code atomic.Int32
}

// set latches r as the sticky fault if r is fatal and no fault has been
// recorded yet. The first fatal result wins.
func (f *faultState) set(r Result) {
	if !r.Fatal() {
		return
	}
	f.code.CompareAndSwap(int32(NotReady), int32(r))
}

// last returns the recorded fault, or [NotReady] if the device is healthy.
func (f *faultState) last() Result {
	return Result(f.code.Load())
}

// fatal reports whether a fatal fault has been recorded.
func (f *faultState) fatal() bool {
	return f.last().Fatal()
}
