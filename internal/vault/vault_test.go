// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/connvault/pkg/types"
)

// --- test helpers ---

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func notes(paths ...string) []types.Note {
	out := make([]types.Note, len(paths))
	for i, p := range paths {
		out[i] = types.NewNote(p)
	}
	return out
}

// --- index tests ---

func TestResolve(t *testing.T) {
	ix := BuildIndex(notes(
		"Alpha.md",
		"folder/Beta.md",
		"a/Dup.md",
		"b/Dup.md",
		"deep/er/Gamma Note.md",
	))

	tests := []struct {
		name     string
		id       string
		wantPath string
		wantErr  error
	}{
		{"base name at root", "Alpha", "Alpha.md", nil},
		{"base name in folder", "Beta", "folder/Beta.md", nil},
		{"path with extension", "folder/Beta.md", "folder/Beta.md", nil},
		{"path without extension", "folder/Beta", "folder/Beta.md", nil},
		{"name with extension", "Beta.md", "folder/Beta.md", nil},
		{"spaces in name", "Gamma Note", "deep/er/Gamma Note.md", nil},
		{"surrounding whitespace", "  Alpha ", "Alpha.md", nil},
		{"leading dot slash", "./folder/Beta", "folder/Beta.md", nil},
		{"colliding name", "Dup", "", ErrAmbiguous},
		{"colliding name by path", "b/Dup", "b/Dup.md", nil},
		{"missing", "Nope", "", ErrDangling},
		{"wrong directory", "other/Beta", "", ErrDangling},
		{"empty", "   ", "", ErrDangling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Resolve(tt.id)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "error %v is not %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestCollisions(t *testing.T) {
	ix := BuildIndex(notes("x/Dup.md", "Dup.md", "Solo.md", "y/Dup.md"))

	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, map[string][]string{
		"Dup": {"Dup.md", "x/Dup.md", "y/Dup.md"},
	}, ix.Collisions())
}

func TestBuildIndexDuplicatePath(t *testing.T) {
	ix := BuildIndex(notes("Same.md", "Same.md"))

	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Collisions())
	n, err := ix.Resolve("Same")
	require.NoError(t, err)
	assert.Equal(t, "Same.md", n.Path)
}

func TestNotesSorted(t *testing.T) {
	ix := BuildIndex(notes("c.md", "a/b.md", "a.md"))
	var paths []string
	for _, n := range ix.Notes() {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"a.md", "a/b.md", "c.md"}, paths)
}

// --- filesystem store tests ---

func TestFSList(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Alpha.md", "a")
	writeNote(t, root, "folder/Beta.md", "b")
	writeNote(t, root, "folder/image.png", "png")
	writeNote(t, root, ".obsidian/workspace.md", "hidden")
	writeNote(t, root, "templates/Tpl.md", "tpl")

	store, err := NewFS(root, "templates")
	require.NoError(t, err)

	got, err := store.List(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, n := range got {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"Alpha.md", "folder/Beta.md"}, paths)
	assert.Equal(t, "folder", got[1].Dir)
	assert.Equal(t, "Beta", got[1].Name)
	assert.Equal(t, int64(1), got[1].Size)
}

func TestNewFSErrors(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewFS(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestFSListCancelled(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Alpha.md", "a")
	store, err := NewFS(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSReadAndCopy(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "folder/Beta.md", "see [[Alpha]]")
	mt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "folder", "Beta.md"), mt, mt))

	store, err := NewFS(root)
	require.NoError(t, err)
	note := types.NewNote("folder/Beta.md")

	content, err := store.Read(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, "see [[Alpha]]", content)

	destDir := filepath.Join(t.TempDir(), "out", "folder")
	require.NoError(t, store.Mkdir(destDir))
	require.NoError(t, store.Mkdir(destDir), "second Mkdir must be a no-op")

	dest := filepath.Join(destDir, "Beta.md")
	require.NoError(t, store.Copy(context.Background(), note, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "see [[Alpha]]", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mt), "mod time = %v, want %v", info.ModTime(), mt)

	// Copy replaces an existing destination.
	writeNote(t, root, "folder/Beta.md", "changed")
	require.NoError(t, store.Copy(context.Background(), note, dest))
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "changed", string(data))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFSCopyMissingParent(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Alpha.md", "a")
	store, err := NewFS(root)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "absent", "Alpha.md")
	err = store.Copy(context.Background(), types.NewNote("Alpha.md"), dest)
	assert.Error(t, err)
}

func TestFSReadMissing(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = store.Read(context.Background(), types.NewNote("Ghost.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
