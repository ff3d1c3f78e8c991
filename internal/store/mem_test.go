package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSetGetDelete(t *testing.T) {
	s := NewMem()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string][]byte{
		"alpha": []byte("one"),
		"beta":  []byte("two"),
	}))

	got, err := s.Get(ctx, "alpha", "beta", "gamma")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
	assert.Equal(t, "two", string(got["beta"]))
	_, ok := got["gamma"]
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "alpha"))
	got, err = s.Get(ctx, "alpha", "beta")
	require.NoError(t, err)
	_, ok = got["alpha"]
	assert.False(t, ok)
	assert.Equal(t, "two", string(got["beta"]))
}

func TestMemIsolatesCallerSlices(t *testing.T) {
	s := NewMem()
	ctx := context.Background()

	in := []byte("one")
	require.NoError(t, s.Set(ctx, map[string][]byte{"alpha": in}))
	in[0] = 'X'

	got, err := s.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))

	got["alpha"][0] = 'Y'
	got, err = s.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
}
