// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs a complete export: index the source vault, compute
// the notes reachable from the seeds, copy them into the destination and
// record the run.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/connvault/internal/config"
	"github.com/pdiddy/connvault/internal/materialize"
	"github.com/pdiddy/connvault/internal/reach"
	"github.com/pdiddy/connvault/internal/vault"
	"github.com/pdiddy/connvault/pkg/types"
)

// ErrNoSeeds is returned when no usable seed identifier was supplied.
var ErrNoSeeds = errors.New("no seed notes given")

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, run types.Run) error
}

// Summary is the structured outcome of an export.
type Summary struct {
	Run        types.Run
	Reachable  reach.Result
	Batch      materialize.BatchResult
	Collisions map[string][]string
}

// Exporter performs exports with fixed settings.
type Exporter struct {
	settings types.Settings
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder records every finished run with r.
func WithRecorder(r Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// New returns an Exporter for settings. A relative destination root is
// taken relative to the vault directory.
func New(settings types.Settings, opts ...Option) *Exporter {
	e := &Exporter{
		settings: config.Resolve(settings),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseSeeds flattens seed arguments. Each argument may hold several
// identifiers separated by '|'; blanks are dropped and order is kept.
func ParseSeeds(args []string) []string {
	var seeds []string
	for _, a := range args {
		for _, s := range strings.Split(a, "|") {
			if s = strings.TrimSpace(s); s != "" {
				seeds = append(seeds, s)
			}
		}
	}
	return seeds
}

// Plan indexes the vault and computes the reachable set without copying
// anything.
func (e *Exporter) Plan(ctx context.Context, seeds []string) (reach.Result, *vault.Index, error) {
	_, idx, res, err := e.plan(ctx, seeds)
	return res, idx, err
}

func (e *Exporter) plan(ctx context.Context, seeds []string) (*vault.FS, *vault.Index, reach.Result, error) {
	if err := config.Validate(e.settings); err != nil {
		return nil, nil, reach.Result{}, err
	}
	seeds = ParseSeeds(seeds)
	if len(seeds) == 0 {
		return nil, nil, reach.Result{}, ErrNoSeeds
	}

	store, err := e.OpenVault()
	if err != nil {
		return nil, nil, reach.Result{}, err
	}
	idx, err := vault.LoadIndex(ctx, store)
	if err != nil {
		return nil, nil, reach.Result{}, err
	}
	e.logger.Info("indexed vault", "vault", e.settings.VaultDir, "notes", idx.Len())

	collisions := idx.Collisions()
	names := make([]string, 0, len(collisions))
	for name := range collisions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.logger.Warn("note name is not unique; link by path to disambiguate", "name", name, "paths", collisions[name])
	}

	res, err := reach.Compute(ctx, seeds, idx, store, reach.WithLogger(e.logger))
	if err != nil {
		return nil, nil, res, fmt.Errorf("computing reachable notes: %w", err)
	}
	return store, idx, res, nil
}

// Run exports the notes reachable from seeds into the destination root.
// Per-note failures never abort the export; they are reported in the
// summary. An error is returned only for invalid settings, an unreadable
// vault, missing seeds or cancellation.
func (e *Exporter) Run(ctx context.Context, seeds []string, w io.Writer) (Summary, error) {
	started := e.now()
	parsed := ParseSeeds(seeds)

	store, idx, res, err := e.plan(ctx, parsed)
	if err != nil {
		return Summary{}, err
	}
	fmt.Fprintf(w, "reachable: %d identifiers, %d notes, %d unresolved\n",
		len(res.IDs), len(res.Resolved), len(res.Unresolved))
	fmt.Fprintf(w, "exporting to: %s\n", e.settings.DestinationRoot)

	m := materialize.New(store,
		materialize.WithWorkers(e.settings.Workers),
		materialize.WithLogger(e.logger),
	)
	batch := m.Materialize(ctx, res, e.settings.DestinationRoot, w)

	run := types.Run{
		ID:              uuid.NewString(),
		StartedAt:       started,
		FinishedAt:      e.now(),
		VaultDir:        e.settings.VaultDir,
		DestinationRoot: e.settings.DestinationRoot,
		Seeds:           parsed,
		Copied:          batch.Copied,
		Failed:          batch.Failed + batch.Dangling,
		Items:           batch.Items,
	}
	if e.recorder != nil {
		// History is best effort; the export itself already happened.
		if err := e.recorder.Record(ctx, run); err != nil {
			e.logger.Warn("recording run history", "run", run.ID, "error", err)
		}
	}
	e.logger.Info("export finished", "run", run.ID, "copied", run.Copied, "failed", run.Failed,
		"duration", run.FinishedAt.Sub(run.StartedAt))

	summary := Summary{
		Run:        run,
		Reachable:  res,
		Batch:      batch,
		Collisions: idx.Collisions(),
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Settings returns the settings in effect, with the destination resolved.
func (e *Exporter) Settings() types.Settings {
	return e.settings
}

// OpenVault opens the source vault, skipping the state directory when it
// lives inside the vault.
func (e *Exporter) OpenVault() (*vault.FS, error) {
	return vault.NewFS(e.settings.VaultDir, e.stateDirInVault()...)
}

// stateDirInVault returns the state directory relative to the vault when
// it lives inside it, so that listing skips it.
func (e *Exporter) stateDirInVault() []string {
	if e.settings.StateDir == "" {
		return nil
	}
	vaultAbs, err := filepath.Abs(e.settings.VaultDir)
	if err != nil {
		return nil
	}
	stateAbs, err := filepath.Abs(e.settings.StateDir)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(vaultAbs, stateAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{rel}
}
