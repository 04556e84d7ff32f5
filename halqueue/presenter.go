// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package halqueue

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/submitq"
)

//go:embed shaders/blit.wgsl
var blitShaderSource string

// PresentFunc performs the window-system swap after the blit has been
// flushed to hardware. The windowing layer supplies it; halqueue stays
// ignorant of surfaces and swapchains.
type PresentFunc func() error

// PresenterConfig configures a [Presenter].
type PresenterConfig struct {
	// Format is the swapchain image format the blit pipeline targets.
	// Defaults to BGRA8Unorm, the common swapchain format.
	Format gputypes.TextureFormat

	// Present performs the window-system swap. Required.
	Present PresentFunc
}

// Presenter owns the back-buffer blit pipeline and implements
// [submitq.Presenter]. Each PresentImage call encodes a fullscreen blit of
// the bound back buffer onto the current surface view, flushes it through a
// fence so the pass completes before the swap, and then invokes the
// window-system present callback.
//
// The back-buffer bind group (sampler at binding 0, source texture view at
// binding 1, built against [Presenter.BindGroupLayout] with
// [Presenter.Sampler]) is supplied by the swapchain owner, since back
// buffers outlive any single frame. With no surface or bind group set,
// PresentImage degrades to flush-and-swap.
type Presenter struct {
	device  hal.Device
	queue   hal.Queue
	present PresentFunc

	shader     hal.ShaderModule
	sampler    hal.Sampler
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	fence      hal.Fence
	fenceValue uint64

	mu          sync.Mutex
	surfaceView hal.TextureView
	width       uint32
	height      uint32
	backBuffer  hal.BindGroup
}

var _ submitq.Presenter = (*Presenter)(nil)

// NewPresenter compiles the blit shader and builds the presentation
// pipeline on the given device.
func NewPresenter(d *Device, cfg PresenterConfig) (*Presenter, error) {
	if cfg.Present == nil {
		return nil, fmt.Errorf("halqueue: nil present callback")
	}
	format := cfg.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}

	p := &Presenter{
		device:  d.device,
		queue:   d.queue,
		present: cfg.Present,
	}
	if err := p.initPipeline(format); err != nil {
		p.Destroy()
		return nil, err
	}

	fence, err := p.device.CreateFence()
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("halqueue: create present fence: %w", err)
	}
	p.fence = fence
	return p, nil
}

func (p *Presenter) initPipeline(format gputypes.TextureFormat) error {
	spirvBytes, err := naga.Compile(blitShaderSource)
	if err != nil {
		return fmt.Errorf("halqueue: compile blit shader: %w", err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "present_blit",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("halqueue: create blit shader module: %w", err)
	}
	p.shader = shader

	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "present_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("halqueue: create blit bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "present_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("halqueue: create blit pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "present_blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("halqueue: create blit sampler: %w", err)
	}
	p.sampler = sampler

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "present_blit_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("halqueue: create blit pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// BindGroupLayout returns the layout the back-buffer bind group must be
// built against: filtering sampler at binding 0, 2D float texture at
// binding 1.
func (p *Presenter) BindGroupLayout() hal.BindGroupLayout { return p.bindLayout }

// Sampler returns the presenter's sampler, for binding 0 of the
// back-buffer bind group.
func (p *Presenter) Sampler() hal.Sampler { return p.sampler }

// SetSurface points the presenter at the current swapchain image view.
// Called by the swapchain owner after acquiring an image and again after
// any swapchain recreation.
func (p *Presenter) SetSurface(view hal.TextureView, width, height uint32) {
	p.mu.Lock()
	p.surfaceView = view
	p.width = width
	p.height = height
	p.mu.Unlock()
}

// SetBackBuffer binds the back buffer to blit from. The group must match
// [Presenter.BindGroupLayout].
func (p *Presenter) SetBackBuffer(group hal.BindGroup) {
	p.mu.Lock()
	p.backBuffer = group
	p.mu.Unlock()
}

// PresentImage blits the bound back buffer onto the surface, waits for the
// blit to complete on hardware, and performs the window-system swap. Runs
// on the submission queue's submit stage under the device-queue lock.
func (p *Presenter) PresentImage() submitq.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surfaceView != nil && p.backBuffer != nil {
		if res := p.blitLocked(); res != submitq.Success {
			return res
		}
	}

	if err := p.present(); err != nil {
		slogger().Error("halqueue: present failed", "error", err)
		return submitq.DeviceLost
	}
	return submitq.Success
}

// blitLocked encodes and flushes the blit pass. The fence wait makes the
// pass complete before the caller swaps the surface out from under it.
func (p *Presenter) blitLocked() submitq.Result {
	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "present_blit"})
	if err != nil {
		slogger().Error("halqueue: blit encoder creation failed", "error", err)
		return submitq.ErrorSubmitFailed
	}
	if err := encoder.BeginEncoding("present_blit"); err != nil {
		slogger().Error("halqueue: blit encoding failed", "error", err)
		return submitq.ErrorSubmitFailed
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "present_blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       p.surfaceView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{},
			},
		},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.backBuffer, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	buf, err := encoder.EndEncoding()
	if err != nil {
		slogger().Error("halqueue: blit encoding failed", "error", err)
		return submitq.ErrorSubmitFailed
	}
	defer p.device.FreeCommandBuffer(buf)

	value := p.fenceValue + 1
	if err := p.queue.Submit([]hal.CommandBuffer{buf}, p.fence, value); err != nil {
		slogger().Error("halqueue: blit submit failed", "error", err)
		return submitq.ErrorSubmitFailed
	}
	p.fenceValue = value

	for {
		done, err := p.device.Wait(p.fence, p.fenceValue, idleWaitSlice)
		if err != nil {
			slogger().Error("halqueue: blit fence wait failed", "error", err)
			return submitq.DeviceLost
		}
		if done {
			return submitq.Success
		}
	}
}

// Destroy releases the pipeline resources in reverse creation order.
func (p *Presenter) Destroy() {
	if p.fence != nil {
		p.device.DestroyFence(p.fence)
		p.fence = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
