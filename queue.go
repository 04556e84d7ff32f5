package submitq

import (
	"sync"
	"sync/atomic"
	"time"
)

// Queue is the two-stage submission pipeline.
//
// Producers append work through [Queue.Submit] and [Queue.Present]. A
// dedicated submit goroutine performs the hardware submission or present
// call; successful command-list entries move on to a finish goroutine that
// waits for hardware completion and recycles the list. One mutex guards
// both internal queues, the pending counter and the fault cell, and is held
// only for bookkeeping, never across a hardware call. A second mutex
// serializes the hardware calls themselves and is reachable from outside
// the pipeline via [Queue.LockDeviceQueue].
//
// Ordering: both internal queues are FIFO. Command lists reach the hardware
// in Submit call order and complete in that same order; presents are ordered
// relative to submissions exactly as enqueued, since they share one queue.
//
// A Queue must be created with [New] and released with [Queue.Close].
type Queue struct {
	device Device
	opts   Options

	// mu guards submitQueue, finishQueue and pending. The condition
	// variables signal, in order: work appended to the submit queue,
	// submit-stage progress (entry dispatched or submit queue drained),
	// and finish-stage progress (capacity released).
	mu         sync.Mutex
	appendCond *sync.Cond
	submitCond *sync.Cond
	finishCond *sync.Cond

	submitQueue []submitEntry
	finishQueue []submitEntry
	pending     uint32

	fault   faultState
	stopped atomic.Bool

	// devMu serializes hardware submission and present calls. Independent
	// of mu so external callers can claim exclusive hardware access
	// without blocking queue bookkeeping.
	devMu sync.Mutex

	// gpuIdle accumulates time the finish stage spent waiting for work,
	// a proxy for how often the pipeline is submission-bound rather than
	// hardware-bound. Nanoseconds.
	gpuIdle atomic.Int64

	wg sync.WaitGroup
}

// New creates a submission queue for the given device and starts its two
// background stages.
func New(device Device, opts Options) (*Queue, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	q := &Queue{
		device: device,
		opts:   opts.withDefaults(),
	}
	q.appendCond = sync.NewCond(&q.mu)
	q.submitCond = sync.NewCond(&q.mu)
	q.finishCond = sync.NewCond(&q.mu)

	q.wg.Add(2)
	go q.submitLoop()
	go q.finishLoop()

	Logger().Info("submitq: queue started",
		"maxQueued", q.opts.MaxQueuedCommandBuffers,
		"presentThrottle", q.opts.PresentThrottle)
	return q, nil
}

// Close stops both background stages and waits for them to exit. In-flight
// hardware operations are not cancelled; the current iteration of each
// stage finishes before the stage observes the stop flag. Producers blocked
// in Submit, Synchronize or SynchronizeSubmission are released with
// [ErrStopped]. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.stopped.Swap(true) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.appendCond.Broadcast()
	q.submitCond.Broadcast()
	q.finishCond.Broadcast()

	q.wg.Wait()
	Logger().Info("submitq: queue stopped")
}

// Submit appends a command-list submission. It blocks while the combined
// depth of the submit and finish queues exceeds the configured bound;
// backpressure is the only throttle, work is never dropped.
func (q *Queue) Submit(sub Submission) error {
	return q.SubmitTracked(sub, nil)
}

// SubmitTracked is [Queue.Submit] with a caller-owned [Status] that
// receives the submission's terminal result, for callers that need to wait
// on this one entry with [Queue.SynchronizeSubmission].
func (q *Queue) SubmitTracked(sub Submission, status *Status) error {
	if sub.CmdList == nil {
		return ErrNilCommandList
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.submitQueue)+len(q.finishQueue) > q.opts.MaxQueuedCommandBuffers {
		if q.stopped.Load() {
			return ErrStopped
		}
		q.finishCond.Wait()
	}
	if q.stopped.Load() {
		return ErrStopped
	}

	q.pending++
	q.submitQueue = append(q.submitQueue, submitEntry{submit: sub, status: status})
	q.appendCond.Broadcast()
	return nil
}

// Present appends a frame-presentation request. Presents are not subject to
// the depth-bound wait: they must not starve behind a full command-list
// queue, and they preserve ordering by sharing the submit queue with
// command lists. The status, if non-nil, receives the present's result.
func (q *Queue) Present(p Present, status *Status) error {
	if p.Presenter == nil {
		return ErrNilPresenter
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped.Load() {
		return ErrStopped
	}

	q.submitQueue = append(q.submitQueue, submitEntry{present: p, status: status})
	q.appendCond.Broadcast()
	return nil
}

// SynchronizeSubmission blocks until the given status reaches a terminal
// result. It returns immediately if the status is already terminal, and
// [ErrStopped] if the queue shuts down before the entry is processed.
func (q *Queue) SynchronizeSubmission(status *Status) error {
	if status == nil {
		return ErrNilStatus
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for !status.Done() {
		if q.stopped.Load() {
			return ErrStopped
		}
		q.submitCond.Wait()
	}
	return nil
}

// Synchronize blocks until the submit queue is fully drained: every entry
// enqueued before the call has been handed to hardware (entries may still
// be awaiting completion in the finish queue). Returns [ErrStopped] if the
// queue shuts down before draining.
func (q *Queue) Synchronize() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.submitQueue) > 0 {
		if q.stopped.Load() {
			return ErrStopped
		}
		q.submitCond.Wait()
	}
	return nil
}

// LockDeviceQueue claims exclusive hardware-submission access, blocking the
// submit stage's hardware calls (but not queue bookkeeping) until
// [Queue.UnlockDeviceQueue]. For callers that must issue an out-of-band
// driver call without racing the pipeline:
//
//	q.LockDeviceQueue()
//	defer q.UnlockDeviceQueue()
func (q *Queue) LockDeviceQueue() {
	q.devMu.Lock()
}

// UnlockDeviceQueue releases exclusive hardware-submission access.
func (q *Queue) UnlockDeviceQueue() {
	q.devMu.Unlock()
}

// Pending returns the number of in-flight command-list submissions not yet
// confirmed finished.
func (q *Queue) Pending() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// LastError returns the sticky fault code, or [NotReady] if no fatal error
// has occurred.
func (q *Queue) LastError() Result {
	return q.fault.last()
}

// GPUIdleTime returns the accumulated time the finish stage has spent
// waiting for work to complete on, a proxy for GPU idle time.
func (q *Queue) GPUIdleTime() time.Duration {
	return time.Duration(q.gpuIdle.Load())
}

// submitLoop is the submit stage: it dispatches the front entry of the
// submit queue to hardware, routes successful submissions to the finish
// queue, and latches fatal errors. The front entry is only popped after
// processing so Synchronize's "queue empty" check reflects completed
// dispatch, not just dequeue.
func (q *Queue) submitLoop() {
	defer q.wg.Done()

	q.mu.Lock()
	for {
		for len(q.submitQueue) == 0 && !q.stopped.Load() {
			q.appendCond.Wait()
		}
		if q.stopped.Load() {
			q.mu.Unlock()
			return
		}

		entry := q.submitQueue[0]
		q.mu.Unlock()

		status := NotReady

		if !q.fault.fatal() {
			q.devMu.Lock()
			if entry.submit.CmdList != nil {
				status = entry.submit.CmdList.Submit(entry.submit.WaitSync, entry.submit.WakeSync)
			} else if entry.present.Presenter != nil {
				q.mark(entry.present.FrameID, MarkPresentStart)
				status = entry.present.Presenter.PresentImage()
				q.mark(entry.present.FrameID, MarkPresentEnd)

				if q.opts.PresentThrottle > 0 {
					time.Sleep(q.opts.PresentThrottle)
				}
			}
			q.devMu.Unlock()
		} else {
			// Don't submit anything after device loss so the driver
			// gets a chance to recover.
			status = DeviceLost
		}

		if entry.status != nil {
			entry.status.set(status)
		}

		q.mu.Lock()

		if status == Success {
			// Pass successful submissions on to the finish stage.
			// Presents complete synchronously and go no further.
			if entry.submit.CmdList != nil {
				q.finishQueue = append(q.finishQueue, entry)
			}
		} else if status == DeviceLost || entry.submit.CmdList != nil {
			Logger().Error("submitq: command submission failed", "result", status)
			q.fault.set(status)

			// Stall until external crash-dump capture completes (or the
			// ceiling is hit) so diagnostics aren't cut short, then force
			// the whole device idle.
			waitForCrashDump(q.opts.CrashDumpStatus, crashDumpPollInterval, crashDumpWaitCeiling)
			q.device.WaitForIdle()
		}

		q.submitQueue = q.submitQueue[1:]
		if len(q.submitQueue) == 0 {
			q.submitQueue = nil
		}
		q.submitCond.Broadcast()
	}
}

// finishLoop is the finish stage: it waits for hardware completion of each
// dispatched command list, recycles the list, and releases backpressure.
// The wait for new work is timed and accumulated into the GPU-idle counter.
func (q *Queue) finishLoop() {
	defer q.wg.Done()

	q.mu.Lock()
	for {
		if len(q.finishQueue) == 0 {
			t0 := time.Now()
			for len(q.finishQueue) == 0 && !q.stopped.Load() {
				q.submitCond.Wait()
			}
			q.gpuIdle.Add(int64(time.Since(t0)))
		}
		if q.stopped.Load() {
			q.mu.Unlock()
			return
		}

		entry := q.finishQueue[0]
		q.mu.Unlock()

		// Skip the fence wait after device loss; the fence may never
		// signal.
		status := q.fault.last()
		if status != DeviceLost {
			status = entry.submit.CmdList.Synchronize()
		}

		if status != Success {
			Logger().Error("submitq: failed to sync fence", "result", status)
			q.fault.set(status)
			q.device.WaitForIdle()
		}

		// Success or not, dependents are notified and the list's hardware
		// resources go back to the device pool exactly once.
		entry.submit.CmdList.NotifySignals()
		entry.submit.CmdList.Reset()
		q.device.RecycleCommandList(entry.submit.CmdList)

		q.mu.Lock()
		q.pending--

		q.finishQueue = q.finishQueue[1:]
		if len(q.finishQueue) == 0 {
			q.finishQueue = nil
		}
		q.finishCond.Broadcast()
	}
}

// mark invokes the latency-marker hook, if configured.
func (q *Queue) mark(frameID uint64, m LatencyMarker) {
	if q.opts.LatencyMarker != nil {
		q.opts.LatencyMarker(frameID, m)
	}
}

// waitForCrashDump polls status every interval until the dump reports done
// (finished or unknown) or the accumulated wait reaches the ceiling, then
// returns regardless of outcome. A nil status hook disables the wait.
// Returns the time spent waiting.
func waitForCrashDump(status func() DumpStatus, interval, ceiling time.Duration) time.Duration {
	if status == nil {
		return 0
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var waited time.Duration
	for waited < ceiling {
		switch status() {
		case DumpFinished, DumpUnknown:
			return waited
		}
		<-ticker.C
		waited += interval
	}
	return waited
}
