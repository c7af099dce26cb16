// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads, validates and persists connvault settings on top of
// viper. Settings come from connvault.yaml, CONNVAULT_* environment
// variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/connvault/pkg/types"
)

// Setting keys.
const (
	KeyVaultDir           = "vault_dir"
	KeyDestinationRoot    = "destination_root"
	KeyIncludeAttachments = "include_attachments"
	KeyClobberExisting    = "clobber_existing"
	KeyWorkers            = "workers"
	KeyStateDir           = "state_dir"
	KeyLogLevel           = "log_level"
)

const (
	// FileName is the config file base name searched for in . and
	// ~/.config/connvault/.
	FileName = "connvault"

	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "CONNVAULT"

	// DefaultStateDir holds run history relative to the working directory.
	DefaultStateDir = ".connvault"
)

// ErrInvalid wraps every configuration problem.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
)

var known = map[string]keyKind{
	KeyVaultDir:           kindString,
	KeyDestinationRoot:    kindString,
	KeyIncludeAttachments: kindBool,
	KeyClobberExisting:    kindBool,
	KeyWorkers:            kindInt,
	KeyStateDir:           kindString,
	KeyLogLevel:           kindString,
}

// Keys returns the recognized setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(known))
	for k := range known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyVaultDir, ".")
	v.SetDefault(KeyDestinationRoot, types.DefaultDestination)
	v.SetDefault(KeyIncludeAttachments, false)
	v.SetDefault(KeyClobberExisting, false)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyStateDir, DefaultStateDir)
	v.SetDefault(KeyLogLevel, "info")
}

// Load decodes the settings held by v and validates them.
func Load(v *viper.Viper) (types.Settings, error) {
	var s types.Settings
	if err := v.Unmarshal(&s); err != nil {
		return types.Settings{}, fmt.Errorf("%w: decoding settings: %v", ErrInvalid, err)
	}
	if err := Validate(s); err != nil {
		return types.Settings{}, err
	}
	return s, nil
}

// Resolve returns s with a relative destination_root anchored at the vault
// directory, so that the default ../new-vault/ lands next to the vault
// whatever the working directory is.
func Resolve(s types.Settings) types.Settings {
	if s.DestinationRoot != "" && !filepath.IsAbs(s.DestinationRoot) {
		s.DestinationRoot = filepath.Join(s.VaultDir, s.DestinationRoot)
	}
	return s
}

// Validate checks field constraints and that the resolved destination does
// not lie inside the source vault.
func Validate(s types.Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	vaultAbs, err := filepath.Abs(s.VaultDir)
	if err != nil {
		return fmt.Errorf("%w: vault_dir: %v", ErrInvalid, err)
	}
	destAbs, err := filepath.Abs(Resolve(s).DestinationRoot)
	if err != nil {
		return fmt.Errorf("%w: destination_root: %v", ErrInvalid, err)
	}
	rel, err := filepath.Rel(vaultAbs, destAbs)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: destination_root %s resolves to %s, inside vault %s",
			ErrInvalid, s.DestinationRoot, destAbs, vaultAbs)
	}
	return nil
}

// Set parses value for key and stores it on v. The resulting settings must
// validate; the previous value is restored when they do not.
func Set(v *viper.Viper, key, value string) error {
	kind, ok := known[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q (known: %s)", ErrInvalid, key, strings.Join(Keys(), ", "))
	}

	var parsed any
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false, got %q", ErrInvalid, key, value)
		}
		parsed = b
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalid, key, value)
		}
		parsed = n
	default:
		parsed = value
	}

	prev := v.Get(key)
	v.Set(key, parsed)
	if _, err := Load(v); err != nil {
		v.Set(key, prev)
		return err
	}
	return nil
}

// Save writes the settings held by v to the config file in use, or to
// fallback when no config file was loaded. It returns the path written.
func Save(v *viper.Viper, fallback string) (string, error) {
	if used := v.ConfigFileUsed(); used != "" {
		if err := v.WriteConfig(); err != nil {
			return "", fmt.Errorf("writing config %s: %w", used, err)
		}
		return used, nil
	}
	if err := v.WriteConfigAs(fallback); err != nil {
		return "", fmt.Errorf("writing config %s: %w", fallback, err)
	}
	return fallback, nil
}
