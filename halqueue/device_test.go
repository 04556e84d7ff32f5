//go:build !nogpu

package halqueue

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/submitq"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// mockContextDevice implements gpucontext.Device for testing.
type mockContextDevice struct{}

func (m *mockContextDevice) Poll(wait bool) {}
func (m *mockContextDevice) Destroy()       {}

// mockContextQueue implements gpucontext.Queue for testing.
type mockContextQueue struct{}

// mockContextAdapter implements gpucontext.Adapter for testing.
type mockContextAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider. The hal fields, when
// set, are surfaced through HalDevice/HalQueue the way gogpu windows do.
type mockProvider struct {
	halDevice hal.Device
	halQueue  hal.Queue
}

func (m *mockProvider) Device() gpucontext.Device             { return &mockContextDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockContextQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockContextAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (m *mockProvider) HalDevice() any                        { return m.halDevice }
func (m *mockProvider) HalQueue() any                         { return m.halQueue }

// bareProvider implements gpucontext.DeviceProvider without HAL access.
type bareProvider struct{}

func (bareProvider) Device() gpucontext.Device             { return &mockContextDevice{} }
func (bareProvider) Queue() gpucontext.Queue               { return &mockContextQueue{} }
func (bareProvider) Adapter() gpucontext.Adapter           { return &mockContextAdapter{} }
func (bareProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

func TestNewNilArgs(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := New(nil, queue); err == nil {
		t.Error("New(nil, queue) should fail")
	}
	if _, err := New(device, nil); err == nil {
		t.Error("New(device, nil) should fail")
	}
	if _, err := New(device, queue); err != nil {
		t.Errorf("New(device, queue) = %v", err)
	}
}

func TestFromProviderRequiresHALAccess(t *testing.T) {
	if _, err := FromProvider(nil); err == nil {
		t.Error("FromProvider(nil) should fail")
	}
	if _, err := FromProvider(bareProvider{}); err == nil {
		t.Error("FromProvider without HAL accessors should fail")
	}
	if _, err := FromProvider(&mockProvider{}); err == nil {
		t.Error("FromProvider with nil HAL device should fail")
	}

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := FromProvider(&mockProvider{halDevice: device, halQueue: queue})
	if err != nil {
		t.Fatalf("FromProvider() = %v", err)
	}
	if d.HalDevice() != device {
		t.Error("HalDevice() does not return the provider's device")
	}
	if d.HalQueue() != queue {
		t.Error("HalQueue() does not return the provider's queue")
	}
}

func TestCommandListPooling(t *testing.T) {
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

	d.RecycleCommandList(list)

	reused, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() after recycle = %v", err)
	}
	if reused != list {
		t.Error("recycled list was not reused")
	}
}

// foreignList implements submitq.CommandList outside halqueue.
type foreignList struct{}

func (foreignList) Submit(_, _ submitq.SyncHandle) submitq.Result { return submitq.Success }
func (foreignList) Synchronize() submitq.Result                   { return submitq.Success }
func (foreignList) NotifySignals()                                {}
func (foreignList) Reset()                                        {}

func TestRecycleForeignListIgnored(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	// Must not panic or pool a list it cannot reuse.
	d.RecycleCommandList(foreignList{})

	if _, err := d.NewCommandList(); err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}
}

func TestWaitForIdle(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer d.Close()

	// Must return on an idle queue.
	d.WaitForIdle()
}

func TestCloseIdempotent(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	list, err := d.NewCommandList()
	if err != nil {
		t.Fatalf("NewCommandList() = %v", err)
	}
	d.RecycleCommandList(list)

	d.Close()
	d.Close()
}
