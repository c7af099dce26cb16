// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package links parses wiki-style references out of note content.
package links

import (
	"regexp"
	"strings"
)

// wikiLinkRe matches [[target]], [[target|alias]], [[target#anchor]] and
// [[target#anchor|alias]]. Group 1 is the target; the target may not contain
// brackets, pipes or hashes.
var wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]|#]+)(?:[|#][^\[\]]*)?\]\]`)

// Extract returns the link targets found in content, in the order they
// occur. Aliases and anchors are stripped and targets are trimmed of
// surrounding whitespace. Duplicates are kept; targets are not checked
// against any index.
func Extract(content string) []string {
	matches := wikiLinkRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	targets := make([]string, 0, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		targets = append(targets, target)
	}
	return targets
}

// Outgoing returns the distinct targets of content in first-occurrence order.
func Outgoing(content string) []string {
	all := Extract(content)
	seen := make(map[string]bool, len(all))
	var out []string
	for _, t := range all {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
