package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRoots(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "recursive glob",
			patterns: []string{"bodies/**/*.yaml"},
			want:     []string{"bodies"},
		},
		{
			name:     "plain file",
			patterns: []string{"bodies/perms.yaml"},
			want:     []string{"bodies"},
		},
		{
			name:     "bare glob",
			patterns: []string{"*.yaml"},
			want:     []string{"."},
		},
		{
			name:     "deduplicated",
			patterns: []string{"bodies/*.yaml", "bodies/*.yml"},
			want:     []string{"bodies"},
		},
		{
			name:     "multiple roots",
			patterns: []string{"bodies/**/*.yaml", "extra/defs.yaml"},
			want:     []string{"bodies", "extra"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, watchRoots(tt.patterns))
		})
	}
}

// waitEvent receives one event or fails the test after a timeout.
func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcherDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("category: c\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher([]string{filepath.Join(dir, "*.yaml")}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("category: changed\n"), 0o644))
	e := waitEvent(t, w.Events())
	assert.Equal(t, path, e.Path)
	assert.False(t, e.Removed)

	require.NoError(t, os.Remove(path))
	e = waitEvent(t, w.Events())
	assert.Equal(t, path, e.Path)
	assert.True(t, e.Removed)
}

func TestWatcherIgnoresNonDefinitionFiles(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher([]string{filepath.Join(dir, "*.yaml")}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case e := <-w.Events():
		t.Fatalf("unexpected event for %s", e.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSuppressesUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("category: c\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher([]string{filepath.Join(dir, "*.yaml")}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// First write changes the recorded hash and emits.
	require.NoError(t, os.WriteFile(path, []byte("category: changed\n"), 0o644))
	waitEvent(t, w.Events())

	// Rewriting identical content must not emit again.
	require.NoError(t, os.WriteFile(path, []byte("category: changed\n"), 0o644))
	select {
	case e := <-w.Events():
		t.Fatalf("unexpected event for unchanged content: %s", e.Path)
	case <-time.After(300 * time.Millisecond):
	}
}
