// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package halqueue adapts the gogpu/wgpu hardware abstraction layer to the
// submitq collaborator contracts: it provides the concrete [Device],
// [CommandList] and [Presenter] that a [submitq.Queue] drives.
//
// A Device can be acquired three ways: [Open] creates a standalone Vulkan
// device, [New] wraps an existing HAL device/queue pair, and [FromProvider]
// borrows the shared device of a gpucontext provider (e.g. a gogpu window).
// Only Open-created devices are destroyed by [Device.Close]; borrowed ones
// stay with their owner.
package halqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/submitq"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// maxPooledCommandLists bounds the recycling pool. Lists returned beyond
// this are destroyed instead of pooled.
const maxPooledCommandLists = 16

// idleWaitSlice is the per-iteration timeout for unbounded fence waits.
// Waiting in slices keeps a single Wait call from pinning the driver with
// a huge timeout while still waiting as long as it takes.
const idleWaitSlice = time.Second

// Device wraps a HAL device/queue pair and implements [submitq.Device]:
// it pools spent command lists for reuse and provides the full-device idle
// barrier the queue uses for fault containment.
type Device struct {
	mu sync.Mutex

	instance hal.Instance // non-nil only when Open created it
	device   hal.Device
	queue    hal.Queue
	owned    bool

	pool   []*CommandList
	closed bool
}

var _ submitq.Device = (*Device)(nil)

// New wraps an existing HAL device and queue. The caller keeps ownership;
// [Device.Close] will not destroy them.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil {
		return nil, fmt.Errorf("halqueue: nil HAL device")
	}
	if queue == nil {
		return nil, fmt.Errorf("halqueue: nil HAL queue")
	}
	return &Device{device: device, queue: queue}, nil
}

// Open creates a standalone Vulkan device, preferring a discrete or
// integrated GPU. This is the fallback path when no external device is
// available; windowed applications should share their device via
// [FromProvider] instead.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("halqueue: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("halqueue: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("halqueue: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("halqueue: open device: %w", err)
	}

	slogger().Info("halqueue: GPU initialized (standalone)", "adapter", selected.Info.Name)
	return &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		owned:    true,
	}, nil
}

// FromProvider borrows the shared GPU device of a gpucontext provider.
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue; gogpu windows do.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("halqueue: nil device provider")
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("halqueue: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("halqueue: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("halqueue: provider HalQueue is not hal.Queue")
	}

	slogger().Debug("halqueue: using shared GPU device")
	return &Device{device: device, queue: queue}, nil
}

// HalDevice returns the underlying hal.Device, typed any so Device itself
// satisfies the provider shape expected by [FromProvider].
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the underlying hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

// NewCommandList returns a recordable command list, reusing a pooled one
// when available.
func (d *Device) NewCommandList() (*CommandList, error) {
	d.mu.Lock()
	if n := len(d.pool); n > 0 {
		list := d.pool[n-1]
		d.pool = d.pool[:n-1]
		d.mu.Unlock()
		return list, nil
	}
	d.mu.Unlock()

	return newCommandList(d.device, d.queue)
}

// RecycleCommandList returns a finished, reset command list to the pool.
// Lists beyond the pool bound, and lists of a foreign type, are destroyed.
func (d *Device) RecycleCommandList(list submitq.CommandList) {
	cl, ok := list.(*CommandList)
	if !ok || cl == nil {
		return
	}

	d.mu.Lock()
	if !d.closed && len(d.pool) < maxPooledCommandLists {
		d.pool = append(d.pool, cl)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	cl.Destroy()
}

// WaitForIdle blocks until the hardware queue has drained all submitted
// work. It flushes the queue with an empty, fence-signaling submission and
// waits for the fence; errors are logged and swallowed since the caller is
// already on a failure path.
func (d *Device) WaitForIdle() {
	fence, err := d.device.CreateFence()
	if err != nil {
		slogger().Warn("halqueue: idle fence creation failed", "error", err)
		return
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		slogger().Warn("halqueue: idle flush failed", "error", err)
		return
	}
	for {
		done, err := d.device.Wait(fence, 1, idleWaitSlice)
		if err != nil {
			slogger().Warn("halqueue: idle wait failed", "error", err)
			return
		}
		if done {
			return
		}
	}
}

// Close destroys pooled command lists and, for Open-created devices, the
// device and instance. Borrowed devices are left untouched.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	pool := d.pool
	d.pool = nil
	d.mu.Unlock()

	for _, cl := range pool {
		cl.Destroy()
	}

	if d.owned {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}
