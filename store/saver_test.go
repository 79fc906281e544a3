package store

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaver(t *testing.T) {
	t.Run("SavesQueuedData", func(t *testing.T) {
		s := newTestStore(t)
		saver := NewSaver(s)
		defer saver.Close()

		saver.Queue([]byte("v1"))
		require.NoError(t, saver.Flush())
		assert.Equal(t, []byte("v1"), readFile(t, s.ContainerPath()))
	})

	t.Run("CoalescesBurstsToLatest", func(t *testing.T) {
		s := newTestStore(t)

		var writes atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		stubWriteFile(t, func(name string, data []byte, perm os.FileMode) error {
			if writes.Add(1) == 1 {
				close(started)
				<-release
			}
			return os.WriteFile(name, data, perm)
		})

		saver := NewSaver(s)
		defer saver.Close()

		// The first save blocks inside the write, so the next two queue
		// calls land while it is in flight and collapse into one.
		saver.Queue([]byte("v1"))
		<-started
		saver.Queue([]byte("v2"))
		saver.Queue([]byte("v3"))
		close(release)

		require.NoError(t, saver.Flush())
		assert.Equal(t, []byte("v3"), readFile(t, s.ContainerPath()))
		assert.Equal(t, int32(2), writes.Load())
	})

	t.Run("QueueCopiesData", func(t *testing.T) {
		s := newTestStore(t)
		saver := NewSaver(s)
		defer saver.Close()

		data := []byte("v1")
		saver.Queue(data)
		data[0] = 'X'

		require.NoError(t, saver.Flush())
		assert.Equal(t, []byte("v1"), readFile(t, s.ContainerPath()))
	})

	t.Run("FlushReturnsSaveError", func(t *testing.T) {
		s := newTestStore(t)
		stubWriteFile(t, func(string, []byte, os.FileMode) error {
			return errors.New("disk full")
		})
		saver := NewSaver(s)
		defer saver.Close()

		saver.Queue([]byte("v1"))
		require.ErrorIs(t, saver.Flush(), ErrSaveFailed)
	})

	t.Run("AfterSaveHookSuccess", func(t *testing.T) {
		s := newTestStore(t)

		var mu sync.Mutex
		var results []error
		saver := NewSaver(s, WithAfterSave(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, err)
		}))
		defer saver.Close()

		saver.Queue([]byte("v1"))
		require.NoError(t, saver.Flush())

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, results, 1)
		assert.NoError(t, results[0])
	})

	t.Run("AfterSaveHookFailure", func(t *testing.T) {
		s := newTestStore(t)
		stubWriteFile(t, func(string, []byte, os.FileMode) error {
			return errors.New("disk full")
		})

		var mu sync.Mutex
		var results []error
		saver := NewSaver(s, WithAfterSave(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, err)
		}))
		defer saver.Close()

		saver.Queue([]byte("v1"))
		require.Error(t, saver.Flush())

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0], ErrSaveFailed)
	})

	t.Run("CloseDrainsQueuedSaves", func(t *testing.T) {
		s := newTestStore(t)
		saver := NewSaver(s)

		saver.Queue([]byte("v1"))
		require.NoError(t, saver.Close())
		assert.Equal(t, []byte("v1"), readFile(t, s.ContainerPath()))
	})

	t.Run("QueueAfterCloseIsIgnored", func(t *testing.T) {
		s := newTestStore(t)
		saver := NewSaver(s)
		require.NoError(t, saver.Close())

		saver.Queue([]byte("v1"))
		require.NoError(t, saver.Flush())

		_, err := s.Load()
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
