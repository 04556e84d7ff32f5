package submitq

// Result is the outcome of a hardware submission or present operation.
//
// Results model driver-level status codes rather than Go errors: they are
// produced by [CommandList] and [Presenter] implementations, routed through
// the pipeline unchanged, and surfaced to callers via [Status].
type Result int32

const (
	// NotReady is the initial state of a [Status] before the submit stage
	// has processed the entry. It is never a terminal result. NotReady is
	// the zero value so a freshly allocated Status reads as pending.
	NotReady Result = iota

	// Success indicates the operation completed normally.
	Success

	// DeviceLost indicates an unrecoverable hardware or driver fault.
	// Once any operation reports DeviceLost, the queue suppresses all
	// further hardware submissions until external recovery.
	DeviceLost

	// ErrorSubmitFailed indicates a submission failure other than device
	// loss. The queue treats it as fatal: it freezes the fault state and
	// forces a full device idle, same as DeviceLost.
	ErrorSubmitFailed
)

// Fatal reports whether r is a fatal result that freezes the queue's
// fault state.
func (r Result) Fatal() bool {
	return r == DeviceLost || r == ErrorSubmitFailed
}

// Terminal reports whether r is a final outcome (anything but NotReady).
func (r Result) Terminal() bool {
	return r != NotReady
}

// String returns a human-readable name for the result code.
func (r Result) String() string {
	switch r {
	case NotReady:
		return "NotReady"
	case Success:
		return "Success"
	case DeviceLost:
		return "DeviceLost"
	case ErrorSubmitFailed:
		return "ErrorSubmitFailed"
	default:
		return "Unknown"
	}
}
