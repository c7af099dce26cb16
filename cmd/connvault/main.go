// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the connvault CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/connvault/internal/config"
	"github.com/pdiddy/connvault/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger carries diagnostics for every subcommand. It is replaced in
// PersistentPreRunE once the log level is known.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the connvault CLI.
var rootCmd = &cobra.Command{
	Use:   "connvault",
	Short: "Export the connected part of a linked note vault",
	Long: `connvault copies the notes reachable from one or more seed notes into a
new vault. A note links to another with [[name]]; every note reachable by
following those links from a seed is copied, keeping its folder layout.

Use reach to preview the set, export to copy it, and history to review past
exports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
			viper.Set(config.KeyLogLevel, f.Value.String())
		}
		level, err := parseLevel(viper.GetString(config.KeyLogLevel))
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./connvault.yaml or ~/.config/connvault/connvault.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: debug, info, warn, error")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.FileName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "connvault"))
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q: use debug, info, warn or error", s)
}

// bindSettingFlags binds the setting flags a command defines so that they
// override the config file and environment. Binding happens at run time
// because several commands define the same flag names.
func bindSettingFlags(cmd *cobra.Command) {
	for flag, key := range map[string]string{
		"vault":   config.KeyVaultDir,
		"dest":    config.KeyDestinationRoot,
		"workers": config.KeyWorkers,
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// loadSettings returns the effective, validated settings for cmd.
func loadSettings(cmd *cobra.Command) (types.Settings, error) {
	bindSettingFlags(cmd)
	return config.Load(viper.GetViper())
}

// commandContext returns a context cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
