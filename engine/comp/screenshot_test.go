package comp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenShotFormatFromMimeType(t *testing.T) {
	assert.Equal(t, "jpeg", screenShotFormat("out.png", "image/jpeg"))
	assert.Equal(t, "bmp", screenShotFormat("out.png", "image/bmp"))
	assert.Equal(t, "png", screenShotFormat("out.bmp", "image/png"))
}

func TestScreenShotFormatFallsBackToExtension(t *testing.T) {
	assert.Equal(t, "jpeg", screenShotFormat("out.jpg", ""))
	assert.Equal(t, "jpeg", screenShotFormat("out.jpeg", ""))
	assert.Equal(t, "bmp", screenShotFormat("out.bmp", ""))
	assert.Equal(t, "png", screenShotFormat("out.png", ""))
	assert.Equal(t, "png", screenShotFormat("out.unknown", ""))
}

func TestEncodeScreenShotWritesPNGByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	pixels := make([]byte, 4*4*4)
	require.NoError(t, encodeScreenShot(path, "", pixels, 4, 4))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestEncodeScreenShotWritesJPEGFromMimeType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.out")

	pixels := make([]byte, 2*2*4)
	for i := range pixels {
		pixels[i] = 0xff
	}
	require.NoError(t, encodeScreenShot(path, "image/jpeg", pixels, 2, 2))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestEncodeScreenShotRejectsBadPath(t *testing.T) {
	err := encodeScreenShot(filepath.Join(t.TempDir(), "nope", "frame.png"), "", make([]byte, 16), 2, 2)
	assert.Error(t, err)
}
