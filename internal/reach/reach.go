// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reach computes the set of notes reachable from seed identifiers by
// following wiki links. The link graph is discovered lazily: a note is only
// read when the traversal reaches it.
package reach

import (
	"context"
	"log/slog"

	"github.com/pdiddy/connvault/internal/links"
	"github.com/pdiddy/connvault/pkg/types"
)

// Resolver maps an identifier to the note it names.
type Resolver interface {
	Resolve(id string) (types.Note, error)
}

// Reader returns the content of a note.
type Reader interface {
	Read(ctx context.Context, note types.Note) (string, error)
}

// Match pairs an identifier with the note it resolved to.
type Match struct {
	ID   string
	Note types.Note
}

// Unresolved is an identifier that could not be resolved, with the reason.
type Unresolved struct {
	ID  string
	Err error
}

// Result is the reachable set of a traversal.
type Result struct {
	// IDs lists every identifier the traversal accepted, seeds included,
	// each exactly once.
	IDs []string

	// Resolved lists the notes reached, one entry per distinct path.
	Resolved []Match

	// Unresolved lists identifiers with no (unique) note behind them.
	Unresolved []Unresolved
}

// Contains reports whether id was accepted by the traversal.
func (r Result) Contains(id string) bool {
	for _, v := range r.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// Notes returns the resolved notes.
func (r Result) Notes() []types.Note {
	out := make([]types.Note, len(r.Resolved))
	for i, m := range r.Resolved {
		out[i] = m.Note
	}
	return out
}

// Option configures Compute.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug tracing and read warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Compute walks the link graph depth-first from seeds. The frontier is a
// stack initialized to seeds, so the last seed is expanded first. An
// identifier already accepted is skipped when popped again, which also
// breaks cycles. Identifiers that do not resolve are accepted with no
// outgoing links and reported in Result.Unresolved. A note whose content
// cannot be read stays resolved but contributes no links.
//
// Compute only fails when ctx is cancelled; it then returns the partial
// result alongside ctx.Err().
func Compute(ctx context.Context, seeds []string, idx Resolver, r Reader, opts ...Option) (Result, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		res      Result
		frontier = append([]string(nil), seeds...)
		seen     = make(map[string]bool)
		expanded = make(map[string]bool)
	)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		res.IDs = append(res.IDs, id)

		note, err := idx.Resolve(id)
		if err != nil {
			o.logger.Debug("unresolved identifier", "id", id, "error", err)
			res.Unresolved = append(res.Unresolved, Unresolved{ID: id, Err: err})
			continue
		}
		// Two identifiers may name the same note ("Alpha", "dir/Alpha").
		if expanded[note.Path] {
			continue
		}
		expanded[note.Path] = true
		res.Resolved = append(res.Resolved, Match{ID: id, Note: note})

		content, err := r.Read(ctx, note)
		if err != nil {
			o.logger.Warn("reading note failed, treating as having no links", "path", note.Path, "error", err)
			continue
		}
		targets := links.Extract(content)
		o.logger.Debug("expanded note", "id", id, "path", note.Path, "links", len(targets))
		frontier = append(frontier, targets...)
	}

	return res, nil
}
