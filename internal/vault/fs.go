// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vault is the document store behind an export: it enumerates the
// notes of a vault directory, reads them, and copies them elsewhere. It also
// holds the identifier index used to resolve wiki links.
package vault

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/connvault/pkg/types"
)

const (
	defaultPermDir = 0o755
	defaultBufSize = 64 * 1024
)

// FS is a vault rooted at a directory on the local filesystem.
type FS struct {
	root    string
	exclude map[string]struct{}
}

// NewFS returns a store for the vault at root. Directories named in
// exclude are skipped while listing, in addition to hidden directories
// such as .obsidian and .git.
func NewFS(root string, exclude ...string) (*FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening vault: %s is not a directory", root)
	}
	ex := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		name = strings.Trim(filepath.ToSlash(name), "/")
		if name != "" {
			ex[name] = struct{}{}
		}
	}
	return &FS{root: root, exclude: ex}, nil
}

// Root returns the vault directory.
func (f *FS) Root() string {
	return f.root
}

// List walks the vault and returns every note, in lexical path order.
func (f *FS) List(ctx context.Context) ([]types.Note, error) {
	var notes []types.Note
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && f.skipDir(rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || filepath.Ext(d.Name()) != types.NoteExt {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		n := types.NewNote(rel)
		n.Size = info.Size()
		n.ModTime = info.ModTime()
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking vault %s: %w", f.root, err)
	}
	return notes, nil
}

func (f *FS) skipDir(rel, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := f.exclude[rel]
	return ok
}

// Read returns the content of note.
func (f *FS) Read(ctx context.Context, note types.Note) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.abs(note))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", note.Path, err)
	}
	return string(data), nil
}

// Mkdir creates dir and any missing parents. An existing directory is not
// an error.
func (f *FS) Mkdir(dir string) error {
	if err := os.MkdirAll(dir, defaultPermDir); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// Copy writes the content of note to dest through a temporary file in the
// destination directory, then renames it into place. The source mode and
// modification time are preserved. An existing dest is replaced.
func (f *FS) Copy(ctx context.Context, note types.Note, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(f.abs(note))
	if err != nil {
		return fmt.Errorf("opening %s: %w", note.Path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", note.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".connvault-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.CopyBuffer(tmp, src, make([]byte, defaultBufSize))
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copying %s: %w", note.Path, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	mt := info.ModTime()
	if err := os.Chtimes(dest, mt, mt); err != nil {
		return fmt.Errorf("setting times on %s: %w", dest, err)
	}
	return nil
}

func (f *FS) abs(note types.Note) string {
	return filepath.Join(f.root, filepath.FromSlash(note.Path))
}
