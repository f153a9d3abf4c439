package scheduler

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/scintillator/scsynth/engine/archetypes"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// Submission helpers wrap the handful of blocking operations the control
// API exposes as closures run on the worker pool, per spec.md §4.5's list:
// load-defs-from-directory, load-defs-from-file, parse-defs-from-string,
// load-vgens-from-directory, sleep-for (testing only), read-image-into-
// buffer. archetypes.Registry's document parser self-dispatches on each
// YAML document's keys, so the defs- and vgens- directory helpers below
// are the same operation under two names.

// LoadDefsFromDirectory submits a job that loads every document in dir
// into reg, optionally installing an fsnotify watch, then calls done with
// the result.
func (a *Async) LoadDefsFromDirectory(reg *archetypes.Registry, dir string, watch bool, done func(archetypes.ParseResult, *archetypes.Watcher, error)) {
	a.Submit(func() {
		result, watcher, err := reg.LoadDirectory(dir, watch)
		if err != nil {
			core.LogError("scheduler: load-defs-from-directory %s: %v", dir, err)
		}
		if done != nil {
			done(result, watcher, err)
		}
	})
}

// LoadVGensFromDirectory is LoadDefsFromDirectory under the name spec.md
// uses when the caller's intent is loading VGen templates rather than
// ScinthDef graphs; the underlying parse is identical.
func (a *Async) LoadVGensFromDirectory(reg *archetypes.Registry, dir string, watch bool, done func(archetypes.ParseResult, *archetypes.Watcher, error)) {
	a.LoadDefsFromDirectory(reg, dir, watch, done)
}

// LoadDefsFromFile submits a job that loads every document in one file
// into reg, then calls done with the result.
func (a *Async) LoadDefsFromFile(reg *archetypes.Registry, path string, done func(archetypes.ParseResult, error)) {
	a.Submit(func() {
		result, err := reg.LoadFile(path)
		if err != nil {
			core.LogError("scheduler: load-defs-from-file %s: %v", path, err)
		}
		if done != nil {
			done(result, err)
		}
	})
}

// ParseDefsFromString submits a job that parses the documents embedded in
// s into reg, then calls done with the result. Used by control-API callers
// that send a ScinthDef graph inline rather than by file path.
func (a *Async) ParseDefsFromString(reg *archetypes.Registry, s string, done func(archetypes.ParseResult)) {
	a.Submit(func() {
		result := reg.LoadString(s)
		if done != nil {
			done(result)
		}
	})
}

// SleepFor submits a job that blocks for the given duration before calling
// done. Testing only: it exists to let tests observe the scheduler's sync
// barrier and cancellation behavior around a job with a known runtime,
// not for production use.
func (a *Async) SleepFor(d time.Duration, done func()) {
	a.Submit(func() {
		time.Sleep(d)
		if done != nil {
			done()
		}
	})
}

// ReadImageIntoBuffer submits a job that decodes the image file at path
// and loads its packed RGBA8 pixels into buf, then calls done. The
// StageManager does not call it: its StageImage takes pixel bytes that are
// already in memory.
func (a *Async) ReadImageIntoBuffer(path string, buf gpu.Buffer, done func(width, height int, err error)) {
	a.Submit(func() {
		width, height, err := readImageIntoBuffer(path, buf)
		if err != nil {
			core.LogError("scheduler: read-image-into-buffer %s: %v", path, err)
		}
		if done != nil {
			done(width, height, err)
		}
	})
}

func readImageIntoBuffer(path string, buf gpu.Buffer) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}

	needed := uint64(width * height * 4)
	if buf.SizeInBytes() < needed {
		return 0, 0, fmt.Errorf("scheduler: buffer too small for %s: have %d bytes, need %d", path, buf.SizeInBytes(), needed)
	}
	if err := buf.LoadData(0, rgba.Pix); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}
