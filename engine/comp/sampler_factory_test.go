package comp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerFactoryCreatesOncePerKey(t *testing.T) {
	driver := &fakeDriver{}
	f := NewSamplerFactory(driver)

	a, err := f.GetSampler(1)
	require.NoError(t, err)
	b, err := f.GetSampler(1)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 2, f.RefCount(1))
}

func TestSamplerFactoryDistinctKeysGetDistinctSamplers(t *testing.T) {
	f := NewSamplerFactory(&fakeDriver{})

	a, err := f.GetSampler(1)
	require.NoError(t, err)
	b, err := f.GetSampler(2)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestSamplerFactoryReleaseDestroysAtZeroRefcount(t *testing.T) {
	f := NewSamplerFactory(&fakeDriver{})

	_, err := f.GetSampler(1)
	require.NoError(t, err)
	_, err = f.GetSampler(1)
	require.NoError(t, err)
	assert.Equal(t, 2, f.RefCount(1))

	f.ReleaseSampler(1)
	assert.Equal(t, 1, f.RefCount(1))

	f.ReleaseSampler(1)
	assert.Equal(t, 0, f.RefCount(1))
}

func TestSamplerFactoryReleaseUnknownKeyIsNoOp(t *testing.T) {
	f := NewSamplerFactory(&fakeDriver{})
	assert.NotPanics(t, func() { f.ReleaseSampler(99) })
}

func TestSamplerFactoryConcurrentGetSamplerCreatesExactlyOne(t *testing.T) {
	f := NewSamplerFactory(&fakeDriver{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.GetSampler(7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.RefCount(7))
}
