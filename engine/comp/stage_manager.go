package comp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// stageRequest is one outstanding host->device image transfer, correlated
// by a uuid so concurrent stage_image calls within the same coalesced
// flush can be told apart in logs and tests.
type stageRequest struct {
	correlationID uuid.UUID
	imageID       int64
	width, height uint32
	hostBuffer    []byte
	onComplete    func(error)
}

// StageManager coalesces outstanding stage_image transfers into one
// command buffer signaled by one fence, per spec.md §4.9. A background
// goroutine waits on that fence and, in submission order, installs each
// uploaded image in the ImageMap under its id and then invokes that
// transfer's completion continuation.
type StageManager struct {
	driver   gpu.Driver
	imageMap *ImageMap

	mu      sync.Mutex
	pending []*stageRequest

	// onStagingRequested is poked the first time a transfer becomes
	// pending within a given frame, per spec.md §4.9's "pokes the listener
	// the first time a transfer is pending in a given frame" note.
	onStagingRequested func()
	notifiedThisFrame  bool
}

// NewStageManager returns an empty manager backed by driver, installing
// completed transfers into imageMap.
func NewStageManager(driver gpu.Driver, imageMap *ImageMap) *StageManager {
	return &StageManager{driver: driver, imageMap: imageMap}
}

// SetStagingRequestedListener installs the callback poked on the first
// pending transfer of a frame. Pass nil to clear it.
func (m *StageManager) SetStagingRequestedListener(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStagingRequested = fn
}

// StageImage enqueues a host->device transfer for imageID, to be included
// in the next Flush. onComplete is invoked (possibly on a different
// goroutine) once the transfer's fence has signaled and the image has
// been installed in the ImageMap.
func (m *StageManager) StageImage(imageID int64, width, height uint32, hostBuffer []byte, onComplete func(error)) {
	m.mu.Lock()
	m.pending = append(m.pending, &stageRequest{
		correlationID: uuid.New(),
		imageID:       imageID,
		width:         width,
		height:        height,
		hostBuffer:    hostBuffer,
		onComplete:    onComplete,
	})
	firstThisFrame := !m.notifiedThisFrame
	m.notifiedThisFrame = true
	listener := m.onStagingRequested
	m.mu.Unlock()

	if firstThisFrame && listener != nil {
		listener()
	}
}

// Flush submits every pending transfer as one coalesced command buffer and
// starts a callback goroutine that waits on the transfer's fence before
// invoking completion continuations in submission order. Call once per
// frame when staging has been requested; a no-op if nothing is pending.
func (m *StageManager) Flush() error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.notifiedThisFrame = false
	m.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	cb, err := m.driver.CreateCommandBuffer(true)
	if err != nil {
		return failBatch(batch, err)
	}
	if err := cb.Begin(false, false); err != nil {
		return failBatch(batch, err)
	}

	// staging buffers must outlive cb.End()/Submit(): CopyBufferToImage
	// only records a reference to buf into the command buffer, which the
	// GPU doesn't actually execute until well after Flush returns. Destroy
	// them only once the fence below has signaled, same as the readback
	// buffers in Offscreen.
	type upload struct {
		req *stageRequest
		img gpu.Image
		buf gpu.Buffer
	}
	uploads := make([]upload, 0, len(batch))

	for _, req := range batch {
		buf, err := m.driver.CreateBuffer(uint64(len(req.hostBuffer)), gpu.BufferUsageStaging)
		if err != nil {
			req.onComplete(err)
			continue
		}
		if err := buf.LoadData(0, req.hostBuffer); err != nil {
			buf.Destroy()
			req.onComplete(err)
			continue
		}
		img, err := m.driver.CreateImage(req.width, req.height)
		if err != nil {
			buf.Destroy()
			req.onComplete(err)
			continue
		}
		if err := cb.CopyBufferToImage(buf, img); err != nil {
			buf.Destroy()
			img.Destroy()
			req.onComplete(err)
			continue
		}
		uploads = append(uploads, upload{req: req, img: img, buf: buf})
	}

	if err := cb.End(); err != nil {
		return failBatch(batch, err)
	}

	fence, err := m.driver.CreateFence(false)
	if err != nil {
		return failBatch(batch, err)
	}
	if err := m.driver.Submit(cb, nil, nil, fence); err != nil {
		return failBatch(batch, err)
	}

	go func() {
		fence.Wait(nil, ^uint64(0))
		fence.Destroy()
		for _, u := range uploads {
			u.buf.Destroy()
			m.imageMap.Install(u.req.imageID, u.img)
			core.LogDebug("stage_manager: installed image %d (correlation %s)", u.req.imageID, u.req.correlationID)
			u.req.onComplete(nil)
		}
	}()

	return nil
}

func failBatch(batch []*stageRequest, err error) error {
	for _, req := range batch {
		if req.onComplete != nil {
			req.onComplete(err)
		}
	}
	return err
}
