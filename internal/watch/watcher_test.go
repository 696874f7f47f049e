package watch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	dirs  []string
}

func (r *recorder) run(_ context.Context, changed []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return r.dirs, nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func skipUnsupported(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fsnotify spawns goroutines on Windows that goleak cannot track")
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatcher_RerunsOnBuildFileChange(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	write(t, filepath.Join(root, "settings.gradle"), "")

	rec := &recorder{}
	w, err := NewWatcher(root, 50*time.Millisecond, rec.run)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Start(context.Background()))

	write(t, filepath.Join(root, "build.gradle"), "plugins {\n}\n")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"build.gradle"}, rec.snapshot()[0])
	assert.Equal(t, 1, w.Stats().Runs)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(root, 20*time.Millisecond, rec.run)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()))

	write(t, filepath.Join(root, "README.md"), "docs")
	write(t, filepath.Join(root, "gradle.properties"), "x=1")

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatcher_DebounceCoalescesBursts(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(root, 200*time.Millisecond, rec.run)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()))

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(root, "build.gradle.kts"), string(rune('a'+i)))
	}
	write(t, filepath.Join(root, "settings.gradle.kts"), "")

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"build.gradle.kts", "settings.gradle.kts"}, calls[0])
}

func TestWatcher_AddsDirectoriesReturnedByRun(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "apps", "api"), 0755))

	rec := &recorder{dirs: []string{"apps/api"}}
	w, err := NewWatcher(root, 30*time.Millisecond, rec.run)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()))

	write(t, filepath.Join(root, "settings.gradle"), "")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return len(w.WatchedDirs()) == 2 }, time.Second, 10*time.Millisecond)

	write(t, filepath.Join(root, "apps", "api", "build.gradle"), "")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"apps/api/build.gradle"}, rec.snapshot()[1])
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(t.TempDir(), 0, (&recorder{}).run)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
	assert.ErrorIs(t, w.Start(context.Background()), ErrStopped)
}

func TestWatcher_ContextCancelEndsLoop(t *testing.T) {
	skipUnsupported(t)
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(t.TempDir(), 0, (&recorder{}).run)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}

func TestNewWatcher_RequiresRunFunc(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), 0, nil)
	assert.Error(t, err)
}
