// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package materialize copies a reachable set of notes into a new vault
// directory, recreating the directory structure each note needs. Every
// note is handled independently: a failure is recorded against that note
// and the rest of the batch carries on.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/connvault/internal/reach"
	"github.com/pdiddy/connvault/internal/vault"
	"github.com/pdiddy/connvault/pkg/types"
)

// DefaultWorkers is the number of notes copied concurrently when no
// explicit limit is configured.
const DefaultWorkers = 4

// Store creates directories and copies notes on behalf of the materializer.
type Store interface {
	// Mkdir creates dir and its parents; an existing directory is not an error.
	Mkdir(dir string) error

	// Copy writes the content of note to dest.
	Copy(ctx context.Context, note types.Note, dest string) error
}

// BatchResult holds the outcome of a materialization run.
type BatchResult struct {
	Copied   int
	Failed   int
	Dangling int

	// Items has one entry per resolved note followed by one per unresolved
	// identifier, in traversal order.
	Items []types.ItemResult
}

// Total returns the number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Copied + r.Failed + r.Dangling
}

// HasFailures reports whether any identifier was not copied.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0 || r.Dangling > 0
}

// Materializer copies resolved notes from a Store into a destination root.
type Materializer struct {
	store   Store
	workers int
	logger  *slog.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithWorkers bounds concurrent copies. Values below 1 select DefaultWorkers.
func WithWorkers(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the logger for per-item failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Materializer backed by store.
func New(store Store, opts ...Option) *Materializer {
	m := &Materializer{
		store:   store,
		workers: DefaultWorkers,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize creates destRoot, then for every resolved note creates its
// parent directory under destRoot and copies the note to the same relative
// path. Notes are copied concurrently; each note's directory is created
// before its copy. Unresolved identifiers are reported as dangling.
// Per-item status lines are written to w.
func (m *Materializer) Materialize(ctx context.Context, res reach.Result, destRoot string, w io.Writer) BatchResult {
	if err := m.store.Mkdir(destRoot); err != nil {
		m.logger.Error("creating destination root", "dest", destRoot, "error", err)
	}

	items := make([]types.ItemResult, len(res.Resolved)+len(res.Unresolved))
	var mu sync.Mutex
	report := func(i int, item types.ItemResult) {
		mu.Lock()
		defer mu.Unlock()
		items[i] = item
		switch item.Status {
		case types.ItemCopied:
			fmt.Fprintf(w, "copied:  %s\n", item.Path)
		case types.ItemDangling:
			fmt.Fprintf(w, "missing: %s (%s)\n", item.ID, item.Error)
		default:
			fmt.Fprintf(w, "failed:  %s (%s)\n", item.ID, item.Error)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, match := range res.Resolved {
		if err := gctx.Err(); err != nil {
			report(i, failedItem(match, destRoot, err))
			continue
		}
		g.Go(func() error {
			report(i, m.copyOne(gctx, match, destRoot))
			return nil
		})
	}
	g.Wait()

	offset := len(res.Resolved)
	for i, u := range res.Unresolved {
		m.logger.Warn("skipping unresolved identifier", "id", u.ID, "error", u.Err)
		report(offset+i, types.ItemResult{
			ID:     u.ID,
			Status: types.ItemDangling,
			Error:  unresolvedError(u).Error(),
		})
	}

	var result BatchResult
	result.Items = items
	for _, it := range items {
		switch it.Status {
		case types.ItemCopied:
			result.Copied++
		case types.ItemDangling:
			result.Dangling++
		default:
			result.Failed++
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d copied, %d missing, %d failed (total: %d)\n",
		result.Copied, result.Dangling, result.Failed, result.Total())
	return result
}

// copyOne creates the note's parent directory then copies it. A directory
// failure is logged and the copy still attempted: the copy reports the
// real problem if the directory is actually missing.
func (m *Materializer) copyOne(ctx context.Context, match reach.Match, destRoot string) types.ItemResult {
	note := match.Note
	dest := filepath.Join(destRoot, filepath.FromSlash(note.Path))
	dir := filepath.Join(destRoot, filepath.FromSlash(note.Dir))

	if err := m.store.Mkdir(dir); err != nil {
		m.logger.Warn("creating note directory", "dir", dir, "error", err)
	}
	if err := m.store.Copy(ctx, note, dest); err != nil {
		m.logger.Error("copying note", "path", note.Path, "dest", dest, "error", err)
		return failedItem(match, destRoot, err)
	}
	return types.ItemResult{
		ID:     match.ID,
		Path:   note.Path,
		Dest:   dest,
		Status: types.ItemCopied,
	}
}

func failedItem(match reach.Match, destRoot string, err error) types.ItemResult {
	return types.ItemResult{
		ID:     match.ID,
		Path:   match.Note.Path,
		Dest:   filepath.Join(destRoot, filepath.FromSlash(match.Note.Path)),
		Status: types.ItemFailed,
		Error:  err.Error(),
	}
}

// unresolvedError makes sure the reported error identifies the item as a
// dangling reference even when the resolver returned something else.
func unresolvedError(u reach.Unresolved) error {
	if u.Err == nil {
		return fmt.Errorf("%w: %q", vault.ErrDangling, u.ID)
	}
	if errors.Is(u.Err, vault.ErrDangling) || errors.Is(u.Err, vault.ErrAmbiguous) {
		return u.Err
	}
	return fmt.Errorf("%w: %v", vault.ErrDangling, u.Err)
}
