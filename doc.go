// Package submitq schedules pre-recorded GPU work onto a single hardware
// submission channel.
//
// # Overview
//
// submitq decouples the recording of GPU work from its asynchronous execution
// and completion. A [Queue] accepts command-list submissions and frame
// presentation requests from any number of producer goroutines, serializes
// them onto one device queue, tracks completion, and applies blocking
// backpressure so the CPU cannot run unboundedly far ahead of the hardware.
//
// # Quick Start
//
//	import "github.com/gogpu/submitq"
//
//	q, err := submitq.New(device, submitq.Options{})
//	if err != nil {
//	    // handle error
//	}
//	defer q.Close()
//
//	// Hand recorded work to the hardware. Blocks only when the
//	// pipeline is at its configured depth bound.
//	q.Submit(submitq.Submission{CmdList: list})
//
//	// Queue a frame for presentation and wait for its outcome.
//	var st submitq.Status
//	q.Present(submitq.Present{Presenter: p, FrameID: frame}, &st)
//	q.SynchronizeSubmission(&st)
//
// # Architecture
//
// Work flows through a two-stage pipeline: a submit stage that performs the
// hardware submission or present call, and a finish stage that waits for the
// hardware fence, recycles the command list, and releases backpressure.
// Both stages run on dedicated goroutines owned by the Queue.
//
// Fatal hardware errors (device loss) are sticky: once observed, no further
// work reaches the driver, already-queued entries drain with a forced
// failure result, and waiting callers are released rather than deadlocked.
//
// The halqueue subpackage adapts the collaborator contracts ([CommandList],
// [Presenter], [Device]) onto the gogpu/wgpu hardware abstraction layer.
package submitq
