// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/connvault/internal/export"
	"github.com/pdiddy/connvault/internal/links"
	"github.com/pdiddy/connvault/internal/vault"
)

var linksCmd = &cobra.Command{
	Use:   "links <note>",
	Short: "List the outgoing links of a note",
	Long: `Links prints every distinct [[link]] target in a note, in the order it
first appears, together with the note it resolves to in the vault.`,
	Args: cobra.ExactArgs(1),
	RunE: runLinks,
}

func runLinks(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	fs, err := export.New(settings, export.WithLogger(logger)).OpenVault()
	if err != nil {
		return err
	}
	idx, err := vault.LoadIndex(ctx, fs)
	if err != nil {
		return err
	}
	note, err := idx.Resolve(args[0])
	if err != nil {
		return err
	}
	content, err := fs.Read(ctx, note)
	if err != nil {
		return err
	}

	targets := links.Outgoing(content)
	fmt.Printf("%s: %d link(s)\n", note.Path, len(targets))
	for _, t := range targets {
		target, err := idx.Resolve(t)
		switch {
		case err == nil:
			fmt.Printf("  %-30s -> %s\n", t, target.Path)
		case errors.Is(err, vault.ErrAmbiguous):
			fmt.Printf("  %-30s (ambiguous)\n", t)
		default:
			fmt.Printf("  %-30s (missing)\n", t)
		}
	}
	return nil
}

func init() {
	linksCmd.Flags().String("vault", "", "source vault directory (default from vault_dir)")

	rootCmd.AddCommand(linksCmd)
}
