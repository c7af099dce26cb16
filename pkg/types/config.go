// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DefaultDestination is where a new vault is written when nothing else is
// configured.
const DefaultDestination = "../new-vault/"

// Settings holds the user-facing configuration for an export.
// Values are loaded from connvault.yaml, CONNVAULT_* environment variables
// and command-line flags, in increasing order of precedence.
type Settings struct {
	// VaultDir is the root of the source vault.
	VaultDir string `json:"vault_dir" yaml:"vault_dir" mapstructure:"vault_dir" validate:"required"`

	// DestinationRoot is the directory that receives the exported notes.
	DestinationRoot string `json:"destination_root" yaml:"destination_root" mapstructure:"destination_root" validate:"required"`

	// IncludeAttachments is reserved: attachments are not resolved yet.
	IncludeAttachments bool `json:"include_attachments" yaml:"include_attachments" mapstructure:"include_attachments"`

	// ClobberExisting is reserved: existing destination files are always
	// replaced.
	ClobberExisting bool `json:"clobber_existing" yaml:"clobber_existing" mapstructure:"clobber_existing"`

	// Workers bounds the number of notes copied concurrently (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0,lte=64"`

	// StateDir holds the run history database and manifests.
	StateDir string `json:"state_dir" yaml:"state_dir" mapstructure:"state_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}
