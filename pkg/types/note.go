// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path"
	"strings"
	"time"
)

// NoteExt is the file extension of the notes that take part in link traversal.
const NoteExt = ".md"

// Note describes one document in a vault. It is the document record the
// store hands out: immutable for the duration of an export.
type Note struct {
	// Name is the base name without directory or extension (e.g. "Alpha").
	// It is the identifier wiki links usually refer to.
	Name string `json:"name" yaml:"name"`

	// Path is the slash-separated location relative to the vault root,
	// extension included (e.g. "folder/Alpha.md").
	Path string `json:"path" yaml:"path"`

	// Dir is the parent directory relative to the vault root ("" for the root).
	Dir string `json:"dir" yaml:"dir"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the last modification time reported by the store.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// NewNote builds a Note from a slash-separated relative path.
func NewNote(relPath string) Note {
	relPath = path.Clean(strings.TrimPrefix(relPath, "./"))
	dir := path.Dir(relPath)
	if dir == "." {
		dir = ""
	}
	base := path.Base(relPath)
	return Note{
		Name: strings.TrimSuffix(base, path.Ext(base)),
		Path: relPath,
		Dir:  dir,
	}
}

// Stem returns Path without its extension ("folder/Alpha").
func (n Note) Stem() string {
	return strings.TrimSuffix(n.Path, path.Ext(n.Path))
}
