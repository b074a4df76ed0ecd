package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_size(t *testing.T) {
	for _, size := range [...]int{-1, 0} {
		for _, shared := range [...]bool{false, true} {
			r, err := New(size, shared)
			assert.ErrorIs(t, err, ErrSize)
			assert.Nil(t, r)
		}
	}
}

func TestRegion_heap(t *testing.T) {
	r, err := New(64, false)
	require.NoError(t, err)

	assert.Equal(t, 64, r.Len())
	assert.Len(t, r.Bytes(), 64)
	assert.Equal(t, -1, r.Fd())

	b := r.Bytes()
	b[63] = 0xFF
	assert.Equal(t, byte(0xFF), r.Bytes()[63])

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestRegion_shared(t *testing.T) {
	r, err := New(4096, true)
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	assert.Equal(t, 4096, r.Len())
	b := r.Bytes()
	for i := range b {
		if b[i] != 0 {
			t.Fatalf(`byte %d not zeroed`, i)
		}
	}
	b[0] = 1
	b[4095] = 2
	assert.Equal(t, []byte{1, 2}, []byte{r.Bytes()[0], r.Bytes()[4095]})
}
