// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ItemStatus records what happened to one identifier during materialization.
type ItemStatus string

const (
	ItemCopied   ItemStatus = "copied"
	ItemFailed   ItemStatus = "failed"
	ItemDangling ItemStatus = "dangling"
)

// ItemResult is the outcome for a single identifier in an export batch.
type ItemResult struct {
	// ID is the identifier as it appeared in a seed or link.
	ID string `json:"id" yaml:"id"`

	// Path is the source location relative to the vault root. Empty when
	// the identifier did not resolve.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Dest is the destination path written (or attempted).
	Dest string `json:"dest,omitempty" yaml:"dest,omitempty"`

	Status ItemStatus `json:"status" yaml:"status"`

	// Error records the failure message. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Run summarizes one export operation.
type Run struct {
	ID              string       `json:"id" yaml:"id"`
	StartedAt       time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time    `json:"finished_at" yaml:"finished_at"`
	VaultDir        string       `json:"vault_dir" yaml:"vault_dir"`
	DestinationRoot string       `json:"destination_root" yaml:"destination_root"`
	Seeds           []string     `json:"seeds" yaml:"seeds"`
	Copied          int          `json:"copied" yaml:"copied"`
	Failed          int          `json:"failed" yaml:"failed"`
	Items           []ItemResult `json:"items,omitempty" yaml:"items,omitempty"`
}
