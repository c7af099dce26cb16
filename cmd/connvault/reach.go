// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/connvault/internal/export"
	"github.com/pdiddy/connvault/internal/reach"
)

var reachCmd = &cobra.Command{
	Use:   "reach [seed...]",
	Short: "Show the notes an export would copy, without copying",
	Long: `Reach indexes the vault and prints every note reachable from the seeds,
followed by the link targets that do not resolve to a note. Nothing is
written.`,
	RunE: runReach,
}

// reachReport is the JSON shape printed by reach --json.
type reachReport struct {
	IDs        []string          `json:"ids"`
	Notes      []string          `json:"notes"`
	Unresolved map[string]string `json:"unresolved,omitempty"`
}

func runReach(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	res, idx, err := export.New(settings, export.WithLogger(logger)).Plan(ctx, args)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return writeReachJSON(res, os.Stdout)
	}

	fmt.Printf("Indexed %d notes in %s\n\n", idx.Len(), settings.VaultDir)
	for _, n := range res.Notes() {
		fmt.Println("  ", n.Path)
	}
	if len(res.Unresolved) > 0 {
		fmt.Println("\nUnresolved:")
		for _, u := range res.Unresolved {
			fmt.Printf("   %s (%v)\n", u.ID, u.Err)
		}
	}
	fmt.Printf("\n%d notes reachable, %d unresolved\n", len(res.Resolved), len(res.Unresolved))
	return nil
}

func writeReachJSON(res reach.Result, w io.Writer) error {
	report := reachReport{IDs: res.IDs}
	for _, n := range res.Notes() {
		report.Notes = append(report.Notes, n.Path)
	}
	if len(res.Unresolved) > 0 {
		report.Unresolved = make(map[string]string, len(res.Unresolved))
		for _, u := range res.Unresolved {
			report.Unresolved[u.ID] = u.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	reachCmd.Flags().String("vault", "", "source vault directory (default from vault_dir)")
	reachCmd.Flags().Bool("json", false, "output the reachable set as JSON")

	rootCmd.AddCommand(reachCmd)
}
