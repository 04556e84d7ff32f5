package submitq

// Submission is a command-list work unit handed to [Queue.Submit].
type Submission struct {
	// CmdList is the recorded work. Required.
	CmdList CommandList

	// WaitSync, if non-nil, orders this submission after another queue's
	// signal without CPU involvement.
	WaitSync SyncHandle

	// WakeSync, if non-nil, is signaled when this submission completes,
	// for consumption by another queue.
	WakeSync SyncHandle
}

// Present is a frame-presentation request handed to [Queue.Present].
type Present struct {
	// Presenter performs the actual present call. Required.
	Presenter Presenter

	// FrameID identifies the frame for latency-marker instrumentation.
	FrameID uint64
}

// submitEntry is one unit of pending work in the pipeline: either a
// submission or a present, discriminated by which payload is populated
// (exactly one is). Entries move submit queue -> submit stage and, for
// successful submissions, on to finish queue -> finish stage; ownership
// transfers fully at each boundary and entries are never shared between
// stages.
type submitEntry struct {
	submit  Submission
	present Present

	// status, if non-nil, receives the terminal result of the submit
	// stage. Caller-owned; the queue only writes to it.
	status *Status
}
