package comp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageManagerFlushIsNoOpWhenEmpty(t *testing.T) {
	m := NewStageManager(&fakeDriver{}, NewImageMap())
	assert.NoError(t, m.Flush())
}

func TestStageManagerFlushInstallsImageAndInvokesCallback(t *testing.T) {
	imageMap := NewImageMap()
	m := NewStageManager(&fakeDriver{}, imageMap)

	done := make(chan error, 1)
	m.StageImage(7, 2, 2, make([]byte, 16), func(err error) { done <- err })

	require.NoError(t, m.Flush())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("onComplete never called")
	}

	img, ok := imageMap.Get(7)
	require.True(t, ok)
	assert.EqualValues(t, 2, img.Width())
	assert.EqualValues(t, 2, img.Height())
}

func TestStageManagerCoalescesMultipleRequestsIntoOneSubmit(t *testing.T) {
	driver := &fakeDriver{}
	m := NewStageManager(driver, NewImageMap())

	var count int
	done := make(chan struct{})
	onComplete := func(error) {
		count++
		if count == 3 {
			close(done)
		}
	}
	m.StageImage(1, 1, 1, make([]byte, 4), onComplete)
	m.StageImage(2, 1, 1, make([]byte, 4), onComplete)
	m.StageImage(3, 1, 1, make([]byte, 4), onComplete)

	require.NoError(t, m.Flush())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all callbacks ran")
	}
	assert.Equal(t, 1, driver.submitted)
}

func TestStageManagerNotifiesListenerOnlyOncePerFrame(t *testing.T) {
	m := NewStageManager(&fakeDriver{}, NewImageMap())

	var notifications int
	m.SetStagingRequestedListener(func() { notifications++ })

	m.StageImage(1, 1, 1, make([]byte, 4), func(error) {})
	m.StageImage(2, 1, 1, make([]byte, 4), func(error) {})
	assert.Equal(t, 1, notifications)

	require.NoError(t, m.Flush())

	m.StageImage(3, 1, 1, make([]byte, 4), func(error) {})
	assert.Equal(t, 2, notifications)
}

func TestStageManagerFailsBatchOnSubmitError(t *testing.T) {
	driver := &fakeDriver{submitErr: assert.AnError}
	m := NewStageManager(driver, NewImageMap())

	done := make(chan error, 1)
	m.StageImage(1, 1, 1, make([]byte, 4), func(err error) { done <- err })

	err := m.Flush()
	assert.ErrorIs(t, err, assert.AnError)

	select {
	case cbErr := <-done:
		assert.ErrorIs(t, cbErr, assert.AnError)
	case <-time.After(time.Second):
		t.Fatal("onComplete never called")
	}
}
