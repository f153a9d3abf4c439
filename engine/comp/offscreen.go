package comp

import (
	"context"
	"fmt"
	"sync"

	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// screenshotRequest is a one-shot readback consumer queued by ScreenShot,
// fulfilled the next time the targeted image slot's readback completes.
// Video encoding (a persistent, every-frame consumer) is out of scope per
// the CORE's Non-goals; only this still-image form is implemented.
type screenshotRequest struct {
	onReadback func(pixels []byte, width, height uint32, err error)
}

// Offscreen owns a pool of N framebuffer image slots and drives
// render_tree.prepare_frame at either a fixed frame rate or, in snapshot
// mode (frame rate == 0), one frame per advance_frame call. Grounded on
// original_source/src/comp/Offscreen.cpp's render thread, adapted to Go's
// goroutine + sync.Cond idiom (matching engine/scheduler's Async) instead
// of the original's std::thread + std::condition_variable. There is no
// swapchain or window surface here: the driver this CORE talks to
// (engine/gpu/vulkan) is headless-only, so the original's
// supportSwapchain/requestSwapchainBlit path has no analog and is not
// implemented.
type Offscreen struct {
	driver     gpu.Driver
	tree       *RenderTree
	renderPass gpu.RenderPass
	width      uint32
	height     uint32
	numImages  int
	clearColor [4]float32

	stageManager *StageManager

	framebuffers   []gpu.Framebuffer
	colorImages    []gpu.Image
	readbackBuffer []gpu.Buffer
	fences         []gpu.Fence
	contexts       []*FrameContext

	mu              sync.Mutex
	cond            *sync.Cond
	quit            bool
	renderRequested bool
	stagingPending  bool
	snapshotMode    bool
	frameRate       float64
	deltaTime       float64
	flushCallback   func(frameIndex int)

	pendingReadbacks [][]*screenshotRequest
	queuedRequests   []*screenshotRequest

	frameNumber int
	frameTime   float64

	doneWg sync.WaitGroup
}

// NewOffscreen builds an N-image offscreen render target. frameRate == 0
// selects snapshot mode (spec.md §4.8).
func NewOffscreen(driver gpu.Driver, tree *RenderTree, stageManager *StageManager, width, height uint32, numImages int, clearColor [4]float32, frameRate float64) (*Offscreen, error) {
	if numImages < 2 {
		return nil, fmt.Errorf("offscreen: numImages must be >= 2, got %d", numImages)
	}

	renderPass, err := driver.CreateRenderPass(clearColor)
	if err != nil {
		return nil, fmt.Errorf("offscreen: create render pass: %w", err)
	}

	o := &Offscreen{
		driver:           driver,
		tree:             tree,
		renderPass:       renderPass,
		width:            width,
		height:           height,
		numImages:        numImages,
		clearColor:       clearColor,
		stageManager:     stageManager,
		snapshotMode:     frameRate == 0,
		frameRate:        frameRate,
		pendingReadbacks: make([][]*screenshotRequest, numImages),
	}
	o.cond = sync.NewCond(&o.mu)

	for i := 0; i < numImages; i++ {
		img, err := driver.CreateImage(width, height)
		if err != nil {
			o.destroyPartial(i)
			return nil, fmt.Errorf("offscreen: create color image %d: %w", i, err)
		}
		fb, err := driver.CreateFramebuffer(renderPass, img)
		if err != nil {
			o.destroyPartial(i)
			return nil, fmt.Errorf("offscreen: create framebuffer %d: %w", i, err)
		}
		readback, err := driver.CreateBuffer(uint64(width*height*4), gpu.BufferUsageStaging)
		if err != nil {
			o.destroyPartial(i)
			return nil, fmt.Errorf("offscreen: create readback buffer %d: %w", i, err)
		}
		fence, err := driver.CreateFence(true)
		if err != nil {
			o.destroyPartial(i)
			return nil, fmt.Errorf("offscreen: create fence %d: %w", i, err)
		}
		o.colorImages = append(o.colorImages, img)
		o.framebuffers = append(o.framebuffers, fb)
		o.readbackBuffer = append(o.readbackBuffer, readback)
		o.fences = append(o.fences, fence)
		o.contexts = append(o.contexts, NewFrameContext(i))
	}

	if stageManager != nil {
		stageManager.SetStagingRequestedListener(o.onStagingRequested)
	}

	return o, nil
}

func (o *Offscreen) destroyPartial(n int) {
	for i := 0; i < n; i++ {
		o.framebuffers[i].Destroy()
		o.colorImages[i].Destroy()
		o.readbackBuffer[i].Destroy()
		o.fences[i].Destroy()
	}
}

// onStagingRequested is the StageManager listener: it wakes the render
// loop so a pending transfer gets flushed promptly rather than waiting on
// the next render tick.
func (o *Offscreen) onStagingRequested() {
	o.mu.Lock()
	o.stagingPending = true
	o.mu.Unlock()
	o.cond.Broadcast()
}

// AdvanceFrame is the snapshot-mode control operation: render exactly one
// frame advancing time by dt, then invoke callback with the frame number
// once the frame's fence has signaled.
func (o *Offscreen) AdvanceFrame(dt float64, callback func(frameIndex int)) {
	o.mu.Lock()
	o.deltaTime = dt
	o.flushCallback = callback
	o.renderRequested = true
	o.mu.Unlock()
	o.cond.Broadcast()
}

// SetClearColor changes the clear color used from the next rendered frame
// onward. The render pass itself is created once at construction time; the
// clear value is supplied fresh on every BeginRenderPass call, so no GPU
// object needs rebuilding.
func (o *Offscreen) SetClearColor(c [4]float32) {
	o.mu.Lock()
	o.clearColor = c
	o.mu.Unlock()
}

// Run drives the render loop on the calling goroutine until Stop is
// called. In free-running mode it renders continuously, advancing time by
// 1/frameRate each iteration; in snapshot mode it blocks until AdvanceFrame
// is called.
func (o *Offscreen) Run() {
	o.doneWg.Add(1)
	defer o.doneWg.Done()

	for {
		o.mu.Lock()
		for !o.quit && !o.stagingPending && !o.renderRequested && !(o.frameRate > 0 && !o.snapshotMode) {
			o.cond.Wait()
		}
		if o.quit {
			o.mu.Unlock()
			return
		}
		staging := o.stagingPending
		o.stagingPending = false
		dt := o.deltaTime
		flush := o.flushCallback
		o.flushCallback = nil
		requests := o.queuedRequests
		o.queuedRequests = nil
		o.renderRequested = false
		o.mu.Unlock()

		if staging && o.stageManager != nil {
			if err := o.stageManager.Flush(); err != nil {
				core.LogWarn("offscreen: stage flush failed: %v", err)
			}
		}

		if !o.snapshotMode {
			dt = 1.0 / o.frameRate
		}

		o.mu.Lock()
		clearColor := o.clearColor
		o.mu.Unlock()

		frame := o.frameNumber
		slot := frame % o.numImages
		if err := o.renderOneFrame(dt, clearColor, requests); err != nil {
			core.LogError("offscreen: render frame failed: %v", err)
		}

		if o.snapshotMode {
			o.fences[slot].Wait(context.Background(), ^uint64(0))
			o.drainReadback(slot)
			if flush != nil {
				flush(frame)
			}
		}
	}
}

// renderOneFrame implements one iteration of spec.md §4.8's main loop
// steps 3-5 (staging is handled by the caller in step 2).
func (o *Offscreen) renderOneFrame(dt float64, clearColor [4]float32, requests []*screenshotRequest) error {
	slot := o.frameNumber % o.numImages

	o.fences[slot].Wait(context.Background(), ^uint64(0))
	o.drainReadback(slot)

	o.frameTime += dt
	ctx := o.contexts[slot]

	if err := PrepareFrame(o.tree, o.driver, o.framebuffers[slot], o.renderPass, clearColor, ctx, o.frameTime); err != nil {
		return err
	}

	activeEncoders := len(requests) > 0
	if activeEncoders {
		o.pendingReadbacks[slot] = append(o.pendingReadbacks[slot], requests...)
	}

	var primary gpu.CommandBuffer
	var err error
	if activeEncoders {
		primary, err = buildFrameWithReadback(o.driver, o.framebuffers[slot], o.renderPass, clearColor, ctx.SecondaryCommandBuffers(), o.colorImages[slot], o.readbackBuffer[slot])
	} else {
		primary = ctx.PrimaryDraw()
	}
	if err != nil {
		return err
	}

	if err := o.fences[slot].Reset(); err != nil {
		return err
	}
	if err := o.driver.Submit(primary, nil, nil, o.fences[slot]); err != nil {
		return err
	}

	o.frameNumber++
	return nil
}

// drainReadback copies the slot's readback buffer to host memory and
// fires every screenshot request queued against that slot, once its
// fence has been observed signaled by the caller.
func (o *Offscreen) drainReadback(slot int) {
	pending := o.pendingReadbacks[slot]
	if len(pending) == 0 {
		return
	}
	o.pendingReadbacks[slot] = nil

	pixels := make([]byte, o.width*o.height*4)
	err := o.readbackBuffer[slot].ReadData(0, pixels)
	for _, req := range pending {
		req.onReadback(pixels, o.width, o.height, err)
	}
}

// buildFrameWithReadback records a primary command buffer that renders the
// secondaries and then copies the resulting color image into the slot's
// readback buffer, all in one submission so the copy is ordered after the
// render pass completes.
func buildFrameWithReadback(driver gpu.Driver, fb gpu.Framebuffer, renderPass gpu.RenderPass, clearColor [4]float32, secondaries []gpu.CommandBuffer, colorImage gpu.Image, readback gpu.Buffer) (gpu.CommandBuffer, error) {
	cb, err := driver.CreateCommandBuffer(true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(false, false); err != nil {
		return nil, err
	}
	if err := cb.BeginRenderPass(renderPass, fb, clearColor); err != nil {
		return nil, err
	}
	if len(secondaries) > 0 {
		if err := cb.ExecuteCommands(secondaries); err != nil {
			return nil, err
		}
	}
	if err := cb.EndRenderPass(); err != nil {
		return nil, err
	}
	if err := cb.CopyImageToBuffer(colorImage, readback); err != nil {
		return nil, err
	}
	if err := cb.End(); err != nil {
		return nil, err
	}
	return cb, nil
}

// Stop signals the render loop to exit and waits for it to return.
func (o *Offscreen) Stop() {
	o.mu.Lock()
	o.quit = true
	o.mu.Unlock()
	o.cond.Broadcast()
	o.doneWg.Wait()
}

// Destroy releases every GPU resource owned by this Offscreen. Call only
// after Stop has returned.
func (o *Offscreen) Destroy() {
	for i := range o.framebuffers {
		o.framebuffers[i].Destroy()
		o.colorImages[i].Destroy()
		o.readbackBuffer[i].Destroy()
		o.fences[i].Destroy()
	}
	o.renderPass.Destroy()
}
