// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/connvault/internal/export"
	"github.com/pdiddy/connvault/internal/manifest"
)

var exportCmd = &cobra.Command{
	Use:   "export [seed...]",
	Short: "Copy the notes reachable from the seeds into a new vault",
	Long: `Export resolves each seed note, follows [[links]] transitively and copies
every reachable note into the destination root, keeping its path relative
to the vault. Existing files at the destination are overwritten.

Seeds may be note names, relative paths, or a single argument with names
separated by '|' (for example "chores.md|my dreams.md"). Links to notes that
do not exist are reported and skipped; they never abort the export.

Each run is recorded in the state directory and a manifest is written next
to it.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	seedsFile, _ := cmd.Flags().GetString("seeds-file")
	if seedsFile != "" {
		more, err := readSeedsFile(seedsFile)
		if err != nil {
			return err
		}
		args = append(args, more...)
	}
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := manifest.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	noHistory, _ := cmd.Flags().GetBool("no-history")

	opts := []export.Option{export.WithLogger(logger)}
	var store *manifest.Store
	if !noHistory {
		store, err = manifest.NewStore(settings.StateDir)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, export.WithRecorder(store))
	}

	ctx, cancel := commandContext()
	defer cancel()

	summary, err := export.New(settings, opts...).Run(ctx, args, os.Stdout)
	if err != nil {
		return err
	}

	if store != nil {
		path, err := store.WriteManifest(summary.Run, format)
		if err != nil {
			logger.Warn("writing manifest", "run", summary.Run.ID, "error", err)
		} else {
			fmt.Printf("Run %s recorded in %s\n", summary.Run.ID, path)
		}
	}

	if summary.Batch.HasFailures() {
		return fmt.Errorf("%d note(s) failed, %d link(s) unresolved", summary.Batch.Failed, summary.Batch.Dangling)
	}
	return nil
}

// readSeedsFile reads a YAML list of seed identifiers.
func readSeedsFile(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading seeds file: %w", err)
	}
	var seeds []string
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parsing seeds file %s: %w", path, err)
	}
	return seeds, nil
}

func init() {
	exportCmd.Flags().String("vault", "", "source vault directory (default from vault_dir)")
	exportCmd.Flags().String("dest", "", "destination root (default from destination_root)")
	exportCmd.Flags().Int("workers", 0, "parallel copies (default from workers)")
	exportCmd.Flags().String("seeds-file", "", "YAML file listing seed notes")
	exportCmd.Flags().String("format", "yaml", "manifest format: yaml or json")
	exportCmd.Flags().Bool("no-history", false, "do not record the run or write a manifest")

	rootCmd.AddCommand(exportCmd)
}
