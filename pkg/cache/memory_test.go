package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	mem := NewMemory()
	ctx := t.Context()

	value, err := mem.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value, "miss returns nil, nil")

	require.NoError(t, mem.Set(ctx, "k", []byte(`{"a":1}`), 0))

	value, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), value)

	require.NoError(t, mem.Delete(ctx, "k"))

	value, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemory_TTLExpiry(t *testing.T) {
	mem := NewMemory()
	ctx := t.Context()

	require.NoError(t, mem.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	value, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemory_CopiesValues(t *testing.T) {
	mem := NewMemory()
	ctx := t.Context()

	original := []byte("value")
	require.NoError(t, mem.Set(ctx, "k", original, 0))
	original[0] = 'X'

	value, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}
