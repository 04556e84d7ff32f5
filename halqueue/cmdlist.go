// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package halqueue

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/submitq"
)

// Sync pairs a HAL fence with the value it reaches on completion. It is the
// concrete [submitq.SyncHandle]: pass one as WakeSync on a submission and as
// WaitSync on another to order the second after the first without draining
// the pipeline in between.
type Sync struct {
	Fence hal.Fence
	Value uint64

	device hal.Device
}

// NewSync creates a standalone synchronization point backed by its own
// fence. Destroy it once no submission references it.
func (d *Device) NewSync() (*Sync, error) {
	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("halqueue: create sync fence: %w", err)
	}
	return &Sync{Fence: fence, Value: 1, device: d.device}, nil
}

// Destroy releases the fence backing a [Device.NewSync] sync. Syncs built
// around borrowed fences are unaffected.
func (s *Sync) Destroy() {
	if s.device != nil && s.Fence != nil {
		s.device.DestroyFence(s.Fence)
		s.Fence = nil
	}
}

// CommandList is a recorded batch of HAL command buffers submitted to the
// hardware queue as one unit. Each list owns a timeline fence whose value
// advances once per submission, which is how [CommandList.Synchronize]
// observes completion. It implements [submitq.CommandList].
//
// The lifecycle is record (any number of [CommandList.Record] calls),
// submit, synchronize, notify, reset; after reset the list records again.
// The submission queue drives everything past recording.
type CommandList struct {
	device hal.Device
	queue  hal.Queue

	bufs       []hal.CommandBuffer
	fence      hal.Fence
	fenceValue uint64
	signals    []func()
}

var _ submitq.CommandList = (*CommandList)(nil)

func newCommandList(device hal.Device, queue hal.Queue) (*CommandList, error) {
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("halqueue: create command list fence: %w", err)
	}
	return &CommandList{device: device, queue: queue, fence: fence}, nil
}

// Record encodes one command buffer into the list. The encode callback
// receives a live encoder; on error the encoding is discarded and the list
// keeps its previously recorded buffers.
func (c *CommandList) Record(label string, encode func(hal.CommandEncoder) error) error {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("halqueue: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("halqueue: begin encoding: %w", err)
	}
	if err := encode(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	buf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("halqueue: end encoding: %w", err)
	}

	c.bufs = append(c.bufs, buf)
	return nil
}

// OnComplete registers fn to run when the submission containing this list
// finishes, success or not. Callbacks run on the submission queue's finish
// stage and must not block on it.
func (c *CommandList) OnComplete(fn func()) {
	if fn != nil {
		c.signals = append(c.signals, fn)
	}
}

// Submit hands the recorded buffers to the hardware queue, signaling the
// list's own fence. The HAL queue has no semaphore parameter, so a non-nil
// waitSync degrades to a host-side fence wait before submission; a non-nil
// wakeSync is signaled by an empty follow-up submission, which same-queue
// FIFO ordering places after the real work.
func (c *CommandList) Submit(waitSync, wakeSync submitq.SyncHandle) submitq.Result {
	if ws, ok := waitSync.(*Sync); ok && ws != nil {
		for {
			done, err := c.device.Wait(ws.Fence, ws.Value, idleWaitSlice)
			if err != nil {
				slogger().Error("halqueue: wait-sync failed", "error", err)
				return submitq.DeviceLost
			}
			if done {
				break
			}
		}
	}

	value := c.fenceValue + 1
	if err := c.queue.Submit(c.bufs, c.fence, value); err != nil {
		slogger().Error("halqueue: queue submit failed", "error", err)
		return submitq.ErrorSubmitFailed
	}
	c.fenceValue = value

	if wk, ok := wakeSync.(*Sync); ok && wk != nil {
		if err := c.queue.Submit(nil, wk.Fence, wk.Value); err != nil {
			slogger().Error("halqueue: wake-sync signal failed", "error", err)
			return submitq.ErrorSubmitFailed
		}
	}
	return submitq.Success
}

// Synchronize blocks until the fence of the most recent Submit signals.
// The wait is unbounded; hardware completion is the only exit short of a
// device fault, which surfaces as a wait error.
func (c *CommandList) Synchronize() submitq.Result {
	if c.fenceValue == 0 {
		return submitq.Success
	}
	for {
		done, err := c.device.Wait(c.fence, c.fenceValue, idleWaitSlice)
		if err != nil {
			slogger().Error("halqueue: fence wait failed", "error", err)
			return submitq.DeviceLost
		}
		if done {
			return submitq.Success
		}
	}
}

// NotifySignals runs and clears the completion callbacks.
func (c *CommandList) NotifySignals() {
	signals := c.signals
	c.signals = nil
	for _, fn := range signals {
		fn()
	}
}

// Reset frees the recorded command buffers, returning the list to its
// recordable state. The fence and its current value are kept; the next
// Submit advances the value past every previously signaled one.
func (c *CommandList) Reset() {
	for _, buf := range c.bufs {
		c.device.FreeCommandBuffer(buf)
	}
	c.bufs = nil
	c.signals = nil
}

// Destroy releases the list's buffers and fence. Called by the device pool;
// a destroyed list must not be submitted again.
func (c *CommandList) Destroy() {
	c.Reset()
	if c.fence != nil {
		c.device.DestroyFence(c.fence)
		c.fence = nil
	}
}
