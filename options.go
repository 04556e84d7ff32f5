package submitq

import "time"

// DumpStatus reports the progress of an external crash-dump capture.
// Values mirror the states of GPU crash-dump tooling: the queue stalls a
// fatal submission error until the dump is finished (or the wait ceiling is
// hit) so diagnostics are not cut short by the forced device idle.
type DumpStatus int

const (
	// DumpNotStarted means no crash dump capture is underway.
	DumpNotStarted DumpStatus = iota

	// DumpInProgress means the dump is still being written.
	DumpInProgress

	// DumpFinished means the dump has been written.
	DumpFinished

	// DumpUnknown means the tooling cannot report progress; the queue
	// treats it like DumpFinished and stops waiting.
	DumpUnknown
)

// Crash-dump wait schedule: poll every interval, give up at the ceiling
// and proceed regardless of the dump's outcome.
const (
	crashDumpPollInterval = 100 * time.Millisecond
	crashDumpWaitCeiling  = 5000 * time.Millisecond
)

// DefaultMaxQueuedCommandBuffers bounds the combined depth of the submit
// and finish queues when [Options.MaxQueuedCommandBuffers] is zero.
const DefaultMaxQueuedCommandBuffers = 8

// Options configures a [Queue].
type Options struct {
	// MaxQueuedCommandBuffers bounds how many command-list submissions may
	// be in flight (queued for submission plus awaiting completion) before
	// Submit blocks. Presents are not subject to the bound.
	// If 0, defaults to [DefaultMaxQueuedCommandBuffers].
	MaxQueuedCommandBuffers int

	// PresentThrottle delays the submit stage after each present call,
	// smoothing frame delivery (frame pacing). Zero disables throttling.
	PresentThrottle time.Duration

	// CrashDumpStatus, if non-nil, is polled after a fatal submission
	// error: the queue stalls up to 5 seconds, in 100 ms increments, until
	// the hook reports [DumpFinished] or [DumpUnknown], giving external
	// crash-dump tooling time to write before the device is idled.
	// If nil, the stall is skipped entirely.
	CrashDumpStatus func() DumpStatus

	// LatencyMarker, if non-nil, is invoked around each present call with
	// [MarkPresentStart] and [MarkPresentEnd] for latency instrumentation.
	// It runs on the submit stage under the device-queue lock, so it must
	// not call back into the queue.
	LatencyMarker func(frameID uint64, mark LatencyMarker)
}

// withDefaults returns a copy of o with zero fields replaced by defaults.
func (o Options) withDefaults() Options {
	if o.MaxQueuedCommandBuffers <= 0 {
		o.MaxQueuedCommandBuffers = DefaultMaxQueuedCommandBuffers
	}
	return o
}
