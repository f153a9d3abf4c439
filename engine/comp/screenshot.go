package comp

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/scintillator/scsynth/engine/core"
)

// ScreenShot is the screen_shot control-API operation (spec.md §6,
// elaborated in the offscreen driver's module section): queue a readback
// of the next completed frame, encode it per mimeType, write it to
// filePath, and invoke completion with the result. Grounded on
// original_source/src/av/ImageEncoder.cpp's createFile/queueEncode split,
// adapted to a single synchronous encode since still-image output needs
// no multi-frame codec state; PNG and JPEG use the standard library, BMP
// uses golang.org/x/image since the teacher's go.mod already depends on
// it.
func (o *Offscreen) ScreenShot(filePath, mimeType string, completion func(error)) {
	o.queueScreenShot(func(pixels []byte, width, height uint32, err error) {
		if err != nil {
			core.LogWarn("screen_shot: readback failed: %v", err)
			if completion != nil {
				completion(err)
			}
			return
		}
		err = encodeScreenShot(filePath, mimeType, pixels, int(width), int(height))
		if err != nil {
			core.LogWarn("screen_shot: encode %s failed: %v", filePath, err)
		}
		if completion != nil {
			completion(err)
		}
	})
}

func (o *Offscreen) queueScreenShot(onReadback func(pixels []byte, width, height uint32, err error)) {
	o.mu.Lock()
	o.queuedRequests = append(o.queuedRequests, &screenshotRequest{onReadback: onReadback})
	o.renderRequested = true
	o.mu.Unlock()
	o.cond.Broadcast()
}

// encodeScreenShot converts the RGBA8 readback bytes into an image.RGBA
// and writes it to filePath in the format implied by mimeType, falling
// back to the file extension when mimeType is empty (mirrors
// av_guess_format's mime-or-extension fallback).
func encodeScreenShot(filePath, mimeType string, pixels []byte, width, height int) error {
	img := &image.RGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("screen_shot: create %s: %w", filePath, err)
	}
	defer f.Close()

	switch screenShotFormat(filePath, mimeType) {
	case "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "bmp":
		return bmp.Encode(f, img)
	default:
		return png.Encode(f, img)
	}
}

func screenShotFormat(filePath, mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/bmp":
		return "bmp"
	case "image/png":
		return "png"
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".bmp":
		return "bmp"
	default:
		return "png"
	}
}
