package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBolt(t *testing.T) *Bolt {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "test.bbolt"), BoltOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltSetGet(t *testing.T) {
	s := openTestBolt(t)
	ctx := context.Background()

	err := s.Set(ctx, map[string][]byte{
		"alpha": []byte("one"),
		"beta":  []byte("two"),
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "alpha", "beta", "gamma")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
	assert.Equal(t, "two", string(got["beta"]))
	_, ok := got["gamma"]
	assert.False(t, ok, "absent keys must be missing from the map, not empty")
}

func TestBoltCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never", "made", "test.bbolt")

	s, err := OpenBolt(path, BoltOptions{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), map[string][]byte{"alpha": []byte("one")}))
}

func TestBoltGetEmpty(t *testing.T) {
	s := openTestBolt(t)

	got, err := s.Get(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bbolt")
	ctx := context.Background()

	s, err := OpenBolt(path, BoltOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"alpha": []byte("one")}))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path, BoltOptions{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
}

func TestBoltDelete(t *testing.T) {
	s := openTestBolt(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string][]byte{
		"alpha": []byte("one"),
		"beta":  []byte("two"),
	}))
	require.NoError(t, s.Delete(ctx, "alpha", "beta"))

	got, err := s.Get(ctx, "alpha", "beta")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoltGetReturnsCopies(t *testing.T) {
	s := openTestBolt(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string][]byte{"alpha": []byte("one")}))

	got, err := s.Get(ctx, "alpha")
	require.NoError(t, err)
	got["alpha"][0] = 'X'

	got, err = s.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
}

func TestBoltCustomBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bbolt")
	ctx := context.Background()

	s, err := OpenBolt(path, BoltOptions{Bucket: "custom"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, map[string][]byte{"alpha": []byte("one")}))
	got, err := s.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got["alpha"]))
}

func TestBoltCanceledContext(t *testing.T) {
	s := openTestBolt(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "alpha")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, map[string][]byte{"alpha": []byte("one")}))
}

// TestBoltPairConsistency checks that a reader never observes a torn pair
// while a writer replaces both keys in single Set calls.
func TestBoltPairConsistency(t *testing.T) {
	s := openTestBolt(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string][]byte{
		"payload": []byte("rev-0"),
		"stamp":   []byte("rev-0"),
	}))

	var writeErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 25; i++ {
			rev := []byte(fmt.Sprintf("rev-%d", i))
			if writeErr = s.Set(ctx, map[string][]byte{"payload": rev, "stamp": rev}); writeErr != nil {
				return
			}
		}
	}()

	for {
		got, err := s.Get(ctx, "payload", "stamp")
		require.NoError(t, err)
		assert.Equal(t, string(got["payload"]), string(got["stamp"]))

		select {
		case <-done:
			require.NoError(t, writeErr)
			return
		default:
		}
	}
}
