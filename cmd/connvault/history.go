// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/connvault/internal/config"
	"github.com/pdiddy/connvault/internal/manifest"
	"github.com/pdiddy/connvault/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past exports",
	Long: `History lists recorded export runs, newest first. Use show to print the
items of one run and manifest to write it out as YAML or JSON.`,
	RunE: runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No exports recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-6s  %-6s  %s\n", "Run", "Started", "Copied", "Failed", "Destination")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-6d  %-6d  %s\n",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Copied, r.Failed, r.DestinationRoot)
	}
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show [run]",
	Short: "Show the items of a run (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := lookupRun(store, args)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s\n", run.ID)
		fmt.Printf("  vault:       %s\n", run.VaultDir)
		fmt.Printf("  destination: %s\n", run.DestinationRoot)
		fmt.Printf("  seeds:       %s\n", strings.Join(run.Seeds, ", "))
		fmt.Printf("  duration:    %s\n\n", run.FinishedAt.Sub(run.StartedAt))
		for _, it := range run.Items {
			switch it.Status {
			case types.ItemCopied:
				fmt.Printf("  %-8s %s\n", it.Status, it.Path)
			default:
				fmt.Printf("  %-8s %s (%s)\n", it.Status, it.ID, it.Error)
			}
		}
		fmt.Printf("\n%d copied, %d failed\n", run.Copied, run.Failed)
		return nil
	},
}

// --- manifest subcommand ---

var historyManifestCmd = &cobra.Command{
	Use:   "manifest [run]",
	Short: "Write a run manifest as YAML or JSON (default: the latest run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := manifest.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		stdout, _ := cmd.Flags().GetBool("stdout")

		store, err := historyStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := lookupRun(store, args)
		if err != nil {
			return err
		}

		if stdout {
			data, err := manifest.Encode(run, format)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		path, err := store.WriteManifest(run, format)
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	},
}

// --- shared helpers ---

func historyStore() (*manifest.Store, error) {
	stateDir := viper.GetString(config.KeyStateDir)
	if stateDir == "" {
		stateDir = config.DefaultStateDir
	}
	return manifest.NewStore(stateDir)
}

func lookupRun(store *manifest.Store, args []string) (types.Run, error) {
	if len(args) == 0 {
		return store.Latest(context.Background())
	}
	return store.Run(context.Background(), args[0])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for the default)")
	historyManifestCmd.Flags().String("format", "yaml", "manifest format: yaml or json")
	historyManifestCmd.Flags().Bool("stdout", false, "print the manifest instead of writing it")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyManifestCmd)
	rootCmd.AddCommand(historyCmd)
}
