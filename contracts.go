package submitq

// SyncHandle is an opaque hardware-level signaling primitive used to order
// operations across submissions without CPU involvement. The queue never
// interprets it; it is passed through to [CommandList.Submit] unchanged.
// The halqueue subpackage defines the concrete fence/value pairing.
type SyncHandle any

// CommandList is a pre-recorded unit of GPU work submitted as a whole.
//
// Implementations own the underlying hardware command buffers and the fence
// used to observe their completion. All methods are invoked by the queue's
// background stages; Submit runs under the device-queue lock, the rest
// outside any queue lock.
type CommandList interface {
	// Submit hands the recorded work to the hardware queue. waitSync, if
	// non-nil, must be waited on before execution; wakeSync, if non-nil,
	// must be signaled when execution completes.
	Submit(waitSync, wakeSync SyncHandle) Result

	// Synchronize blocks until the hardware fence for the most recent
	// Submit signals completion.
	Synchronize() Result

	// NotifySignals runs completion callbacks registered on the list.
	// Invoked exactly once per finished submission, success or not.
	NotifySignals()

	// Reset returns the list to its recordable state so its hardware
	// resources can be reused by a future submission.
	Reset()
}

// Presenter displays the currently bound back buffer. The queue treats
// PresentImage as an opaque, possibly-blocking call made under the
// device-queue lock; it does not inspect the presenter's swapchain state.
type Presenter interface {
	PresentImage() Result
}

// Device is the queue's handle to device-wide facilities: the recycling
// pool for spent command lists and the full-device idle barrier used for
// fault containment.
type Device interface {
	// RecycleCommandList returns a finished, reset command list to the
	// device's pool.
	RecycleCommandList(list CommandList)

	// WaitForIdle blocks until the hardware has drained all submitted
	// work. The queue calls it after any fatal submission failure, with
	// queue bookkeeping locked; implementations must not call back into
	// the queue.
	WaitForIdle()
}

// LatencyMarker identifies an instrumentation point around a present call,
// used by latency-measurement tooling to bracket frame delivery.
type LatencyMarker int

const (
	// MarkPresentStart fires immediately before the present call.
	MarkPresentStart LatencyMarker = iota

	// MarkPresentEnd fires immediately after the present call returns.
	MarkPresentEnd
)
