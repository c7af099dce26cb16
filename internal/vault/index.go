// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vault

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pdiddy/connvault/pkg/types"
)

var (
	// ErrDangling reports an identifier with no matching note in the index.
	ErrDangling = errors.New("dangling reference")

	// ErrAmbiguous reports a base name shared by several notes in different
	// directories. Such a name cannot be resolved without its path.
	ErrAmbiguous = errors.New("ambiguous reference")
)

// Lister enumerates every note in a store.
type Lister interface {
	List(ctx context.Context) ([]types.Note, error)
}

// Index maps identifiers to notes for the duration of one export. It is
// keyed by relative path; base names are a secondary lookup that only
// succeeds when exactly one note carries the name.
type Index struct {
	byPath map[string]types.Note
	byStem map[string]string
	byName map[string][]string
}

// BuildIndex indexes notes. Later duplicates of the same path replace
// earlier ones.
func BuildIndex(notes []types.Note) *Index {
	ix := &Index{
		byPath: make(map[string]types.Note, len(notes)),
		byStem: make(map[string]string, len(notes)),
		byName: make(map[string][]string, len(notes)),
	}
	for _, n := range notes {
		if _, dup := ix.byPath[n.Path]; !dup {
			ix.byName[n.Name] = append(ix.byName[n.Name], n.Path)
		}
		ix.byPath[n.Path] = n
		ix.byStem[n.Stem()] = n.Path
	}
	for _, paths := range ix.byName {
		sort.Strings(paths)
	}
	return ix
}

// LoadIndex lists every note in l and indexes them.
func LoadIndex(ctx context.Context, l Lister) (*Index, error) {
	notes, err := l.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return BuildIndex(notes), nil
}

// Len returns the number of indexed notes.
func (ix *Index) Len() int {
	return len(ix.byPath)
}

// Notes returns every indexed note sorted by path.
func (ix *Index) Notes() []types.Note {
	notes := make([]types.Note, 0, len(ix.byPath))
	for _, n := range ix.byPath {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes
}

// Collisions returns every base name shared by more than one note, mapped
// to the sorted paths that carry it.
func (ix *Index) Collisions() map[string][]string {
	out := make(map[string][]string)
	for name, paths := range ix.byName {
		if len(paths) > 1 {
			out[name] = append([]string(nil), paths...)
		}
	}
	return out
}

// Resolve looks up id as a relative path, a path without the note
// extension, and finally as a base name. The error wraps ErrDangling or
// ErrAmbiguous.
func (ix *Index) Resolve(id string) (types.Note, error) {
	key := normalizeID(id)
	if key == "" {
		return types.Note{}, fmt.Errorf("%w: empty identifier", ErrDangling)
	}

	if n, ok := ix.byPath[key]; ok {
		return n, nil
	}
	if p, ok := ix.byStem[key]; ok {
		return ix.byPath[p], nil
	}

	name := path.Base(key)
	if path.Ext(name) == types.NoteExt {
		name = strings.TrimSuffix(name, types.NoteExt)
	}
	// A name lookup only applies to bare identifiers; "dir/x" that missed
	// the path lookups is dangling even if some other "x" exists.
	if strings.Contains(key, "/") {
		return types.Note{}, fmt.Errorf("%w: %q", ErrDangling, id)
	}
	switch paths := ix.byName[name]; len(paths) {
	case 0:
		return types.Note{}, fmt.Errorf("%w: %q", ErrDangling, id)
	case 1:
		return ix.byPath[paths[0]], nil
	default:
		return types.Note{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, id, strings.Join(paths, ", "))
	}
}

func normalizeID(id string) string {
	id = strings.TrimSpace(strings.ReplaceAll(id, "\\", "/"))
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	return id
}
