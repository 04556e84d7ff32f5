//go:build !nogpu

package halqueue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/submitq"
)

func TestCommandListRecordSubmitSynchronize(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	list, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}

	if err := list.Record("test_pass", func(_ hal.CommandEncoder) error {
		return nil
	}); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	if got := list.Submit(nil, nil); got != submitq.Success {
		t.Fatalf("Submit() = %v, want Success", got)
	}
	if got := list.Synchronize(); got != submitq.Success {
		t.Fatalf("Synchronize() = %v, want Success", got)
	}

	notified := 0
	list.OnComplete(func() { notified++ })
	list.NotifySignals()
	list.NotifySignals() // callbacks are cleared after the first run
	if notified != 1 {
		t.Errorf("completion callback ran %d times, want 1", notified)
	}

	list.Reset()
	if len(list.bufs) != 0 {
		t.Errorf("Reset left %d buffers recorded", len(list.bufs))
	}
}

func TestCommandListSynchronizeBeforeSubmit(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	list, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}

	// Nothing submitted yet; nothing to wait for.
	if got := list.Synchronize(); got != submitq.Success {
		t.Errorf("Synchronize() = %v, want Success", got)
	}
}

func TestSyncOrdersTwoSubmissions(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	sync, err := d.NewSync()
	if err != nil {
		t.Fatalf("NewSync() = %v", err)
	}
	defer sync.Destroy()

	producer, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}
	consumer, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}

	if got := producer.Submit(nil, sync); got != submitq.Success {
		t.Fatalf("producer Submit() = %v, want Success", got)
	}
	if got := consumer.Submit(sync, nil); got != submitq.Success {
		t.Fatalf("consumer Submit() = %v, want Success", got)
	}
}

// TestQueueIntegration drives a real submitq.Queue with halqueue command
// lists over the noop backend, covering the full record/submit/finish/
// recycle cycle.
func TestQueueIntegration(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	q, err := submitq.New(d, submitq.Options{})
	if err != nil {
		t.Fatalf("submitq.New() = %v", err)
	}
	defer q.Close()

	var completions atomic.Int32
	for i := range 4 {
		list, err := d.NewCommandList()
		if err != nil {
			t.Fatalf("NewCommandList(%d) = %v", i, err)
		}
		if err := list.Record("frame", func(_ hal.CommandEncoder) error {
			return nil
		}); err != nil {
			t.Fatalf("Record(%d) = %v", i, err)
		}
		list.OnComplete(func() { completions.Add(1) })

		var status submitq.Status
		if err := q.SubmitTracked(submitq.Submission{CmdList: list}, &status); err != nil {
			t.Fatalf("SubmitTracked(%d) = %v", i, err)
		}
		if err := q.SynchronizeSubmission(&status); err != nil {
			t.Fatalf("SynchronizeSubmission(%d) = %v", i, err)
		}
		if got := status.Result(); got != submitq.Success {
			t.Fatalf("submission %d status = %v, want Success", i, got)
		}
	}

	if err := q.Synchronize(); err != nil {
		t.Fatalf("Synchronize() = %v", err)
	}
	if got := q.LastError(); got != submitq.NotReady {
		t.Errorf("LastError() = %v, want NotReady", got)
	}

	// Completion callbacks run on the finish stage, which trails the
	// submit stage; poll until all four have been notified.
	deadline := time.Now().Add(5 * time.Second)
	for completions.Load() != 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := completions.Load(); got != 4 {
		t.Errorf("%d completion callbacks ran, want 4", got)
	}
}
