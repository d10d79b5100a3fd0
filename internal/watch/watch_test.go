package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldTrigger(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cpath.json")

	files, dirs, err := targets([]string{input, filepath.Join(dir, "cpath.jsonata")})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, dirs)

	tests := []struct {
		name string
		evt  fsnotify.Event
		want bool
	}{
		{name: "empty name", evt: fsnotify.Event{Op: fsnotify.Write}},
		{name: "unsupported op", evt: fsnotify.Event{Name: input, Op: fsnotify.Chmod}},
		{name: "unrelated file", evt: fsnotify.Event{Name: filepath.Join(dir, "other.json"), Op: fsnotify.Write}},
		{name: "write", evt: fsnotify.Event{Name: input, Op: fsnotify.Write}, want: true},
		{name: "rename on save", evt: fsnotify.Event{Name: input, Op: fsnotify.Rename}, want: true},
		{name: "create", evt: fsnotify.Event{Name: input, Op: fsnotify.Create}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldTrigger(tt.evt, files))
		})
	}
}

func TestShouldTrigger_Directory(t *testing.T) {
	root := t.TempDir()
	export := filepath.Join(root, "export")
	require.NoError(t, os.Mkdir(export, 0o755))

	mapping := filepath.Join(root, "prevent.yaml")

	files, dirs, err := targets([]string{export, mapping})
	require.NoError(t, err)
	assert.Equal(t, []string{export, root}, dirs)

	assert.True(t, shouldTrigger(fsnotify.Event{Name: filepath.Join(export, "visits.csv"), Op: fsnotify.Create}, files))
	assert.True(t, shouldTrigger(fsnotify.Event{Name: mapping, Op: fsnotify.Write}, files))
	assert.False(t, shouldTrigger(fsnotify.Event{Name: filepath.Join(root, "other.csv"), Op: fsnotify.Write}, files))
	assert.False(t, shouldTrigger(fsnotify.Event{Name: filepath.Join(export, "nested", "x.csv"), Op: fsnotify.Write}, files))
}

func TestFiles_NoPaths(t *testing.T) {
	assert.Error(t, Files(context.Background(), nil, time.Millisecond, nil, func(context.Context) {}))
}

func TestFiles_RerunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ran := make(chan struct{}, 4)
	done := make(chan error, 1)

	go func() {
		done <- Files(ctx, []string{path}, 20*time.Millisecond, nil, func(context.Context) {
			ran <- struct{}{}
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`[{}]`), 0o644))

	select {
	case <-ran:
	case <-ctx.Done():
		t.Fatal("callback did not run after change")
	}

	cancel()
	assert.NoError(t, <-done)
}
