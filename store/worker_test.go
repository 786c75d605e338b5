package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWorkerAppliesUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	w := NewWorker(s, zerolog.Nop())
	defer w.Close()

	require.True(t, w.Enqueue(Op{Kind: OpUpsert, Key: "a", Value: `"1"`, CreatedAtUnixSec: 1000}))

	require.Eventually(t, func() bool {
		rows, err := s.LoadLive(2000)
		return err == nil && len(rows) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerCloseDrainsQueuedOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	w := NewWorker(s, zerolog.Nop())
	require.True(t, w.Enqueue(Op{Kind: OpUpsert, Key: "a", Value: `"1"`, CreatedAtUnixSec: 1000}))
	w.Close()

	rows, err := s.LoadLive(2000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWorkerHealthyByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	w := NewWorker(s, zerolog.Nop())
	defer w.Close()

	require.True(t, w.Healthy())
}

func TestEnqueueBlockingReturnsFalseAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	w := NewWorker(s, zerolog.Nop())
	w.Close()

	require.False(t, w.EnqueueBlocking(Op{Kind: OpUpsert, Key: "a"}))
}
