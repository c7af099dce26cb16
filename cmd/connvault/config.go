// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/connvault/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change connvault settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(s)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting and save it to the config file",
	Long: `Set validates the new value against the other settings and writes the
result to the config file in use, or to ./connvault.yaml when none was
found. Keys: ` + strings.Join(config.Keys(), ", ") + `.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if err := config.Set(v, args[0], args[1]); err != nil {
			return err
		}
		path, err := config.Save(v, config.FileName+".yaml")
		if err != nil {
			return err
		}
		fmt.Printf("Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
