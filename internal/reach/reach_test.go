// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/connvault/internal/vault"
	"github.com/pdiddy/connvault/pkg/types"
)

// memVault is an in-memory vault keyed by relative path.
type memVault struct {
	content map[string]string
	failing map[string]bool
	reads   map[string]int
}

func newMemVault(content map[string]string) *memVault {
	return &memVault{content: content, failing: map[string]bool{}, reads: map[string]int{}}
}

func (m *memVault) index() *vault.Index {
	var notes []types.Note
	for p := range m.content {
		notes = append(notes, types.NewNote(p))
	}
	return vault.BuildIndex(notes)
}

func (m *memVault) Read(_ context.Context, note types.Note) (string, error) {
	m.reads[note.Path]++
	if m.failing[note.Path] {
		return "", fmt.Errorf("reading %s: permission denied", note.Path)
	}
	return m.content[note.Path], nil
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func compute(t *testing.T, m *memVault, seeds ...string) Result {
	t.Helper()
	res, err := Compute(context.Background(), seeds, m.index(), m)
	require.NoError(t, err)
	return res
}

func TestComputeChain(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md": "[[B]]",
		"B.md": "[[C]]",
		"C.md": "",
	})

	res := compute(t, m, "A")

	assert.Equal(t, []string{"A", "B", "C"}, sorted(res.IDs))
	assert.Len(t, res.Resolved, 3)
	assert.Empty(t, res.Unresolved)
}

func TestComputeSingleNoteWithoutLinks(t *testing.T) {
	m := newMemVault(map[string]string{
		"Lonely.md": "no links here",
		"Other.md":  "[[Lonely]]",
	})

	res := compute(t, m, "Lonely")

	assert.Equal(t, []string{"Lonely"}, res.IDs)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "Lonely.md", res.Resolved[0].Note.Path)
}

func TestComputeCycle(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md": "[[B]] and back to [[A]]",
		"B.md": "[[A]]",
	})

	res := compute(t, m, "A")

	assert.Equal(t, []string{"A", "B"}, sorted(res.IDs))
	assert.Equal(t, 1, m.reads["A.md"], "A expanded once")
	assert.Equal(t, 1, m.reads["B.md"], "B expanded once")
}

func TestComputeDangling(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md": "[[Ghost]] and [[B]]",
		"B.md": "",
	})

	res := compute(t, m, "A", "Missing")

	assert.Equal(t, []string{"A", "B", "Ghost", "Missing"}, sorted(res.IDs))
	assert.Len(t, res.Resolved, 2)
	require.Len(t, res.Unresolved, 2)
	for _, u := range res.Unresolved {
		assert.True(t, errors.Is(u.Err, vault.ErrDangling), "%s: %v", u.ID, u.Err)
	}
}

func TestComputeSupersetOfSeeds(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md": "[[B]]",
		"B.md": "",
		"C.md": "[[A]]",
	})

	seedSets := [][]string{
		{"A"},
		{"C", "B"},
		{"Nope"},
		{"A", "A", "Nope", "C"},
		{},
	}
	for _, seeds := range seedSets {
		res := compute(t, m, seeds...)
		for _, s := range seeds {
			assert.True(t, res.Contains(s), "seeds %v: %q missing from %v", seeds, s, res.IDs)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md":      "[[B]] [[C]] [[D]]",
		"B.md":      "[[dir/E]]",
		"C.md":      "[[A]]",
		"D.md":      "[[Dangling]]",
		"dir/E.md":  "[[B]] [[F#x|alias]]",
		"dir/F.md":  "",
		"Island.md": "[[A]]",
	})

	first := compute(t, m, "A")
	second := compute(t, m, "A")

	assert.Equal(t, sorted(first.IDs), sorted(second.IDs))
	assert.Equal(t, []string{"A", "B", "C", "D", "Dangling", "F", "dir/E"}, sorted(first.IDs))
	assert.False(t, first.Contains("Island"))
}

func TestComputeDepthFirstOrder(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md":  "[[A1]] [[A2]]",
		"A1.md": "",
		"A2.md": "",
		"B.md":  "",
	})

	res := compute(t, m, "A", "B")

	// The last seed is popped first; within A the last link is expanded first.
	assert.Equal(t, []string{"B", "A", "A2", "A1"}, res.IDs)
}

func TestComputeSameNoteTwoIdentifiers(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md":        "[[Beta]] [[dir/Beta]] [[dir/Beta.md]]",
		"dir/Beta.md": "",
	})

	res := compute(t, m, "A")

	assert.Len(t, res.IDs, 4)
	assert.Len(t, res.Resolved, 2, "Beta is materialized once")
	assert.Equal(t, 1, m.reads["dir/Beta.md"])
}

func TestComputeAmbiguous(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md":     "[[Dup]]",
		"x/Dup.md": "",
		"y/Dup.md": "",
	})

	res := compute(t, m, "A")

	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, "Dup", res.Unresolved[0].ID)
	assert.ErrorIs(t, res.Unresolved[0].Err, vault.ErrAmbiguous)
}

func TestComputeReadFailure(t *testing.T) {
	m := newMemVault(map[string]string{
		"A.md": "[[B]]",
		"B.md": "[[C]]",
		"C.md": "",
	})
	m.failing["B.md"] = true

	res := compute(t, m, "A")

	assert.Equal(t, []string{"A", "B"}, sorted(res.IDs))
	assert.Len(t, res.Resolved, 2, "unreadable note is still resolved")
}

func TestComputeCancelled(t *testing.T) {
	m := newMemVault(map[string]string{"A.md": "[[B]]", "B.md": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Compute(ctx, []string{"A"}, m.index(), m)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.IDs)
}

func TestResultNotes(t *testing.T) {
	m := newMemVault(map[string]string{"A.md": "[[B]]", "B.md": ""})
	res := compute(t, m, "A")

	var paths []string
	for _, n := range res.Notes() {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"A.md", "B.md"}, sorted(paths))
}

func TestComputeLargeGraph(t *testing.T) {
	content := make(map[string]string)
	const n = 500
	for i := 0; i < n; i++ {
		content[fmt.Sprintf("n%03d.md", i)] = fmt.Sprintf("[[n%03d]] [[n%03d]]", (i+1)%n, (i*7)%n)
	}
	m := newMemVault(content)

	res := compute(t, m, "n000")

	assert.Len(t, res.IDs, n)
	for p, count := range m.reads {
		assert.Equal(t, 1, count, "%s read more than once", p)
	}
}
