package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func Test_HandleEvent_Ignores_New_Directory_When_Watcher_Is_Stopped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var calls atomic.Int32

	w := New([]string{root}, []string{".json"}, func([]string) { calls.Add(1) },
		WithDebounce(time.Millisecond))

	require.NoError(t, w.Start(testContext(t)))
	w.Stop()

	sub := filepath.Join(root, "late")
	require.NoError(t, os.Mkdir(sub, 0o750))

	require.NotPanics(t, func() {
		w.handleEvent(fsnotify.Event{Name: sub, Op: fsnotify.Create})
	})

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func Test_AddTree_Is_A_No_Op_When_Watcher_Is_Closed(t *testing.T) {
	t.Parallel()

	w := New([]string{t.TempDir()}, nil, nil)

	w.mu.Lock()
	err := w.addTreeLocked(t.TempDir(), false)
	w.mu.Unlock()

	require.NoError(t, err)
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}
