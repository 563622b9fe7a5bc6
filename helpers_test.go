package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// sequentialIDs hands out prefix1, prefix2, ... in call order.
func sequentialIDs() func(prefix string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// newTestBoard initialises a board over store (a fresh memory store when nil)
// with deterministic ids, placement and clock. A first run seeds sheets s_1
// "Planning" and s_2 "DSA", with s_1 active.
func newTestBoard(t *testing.T, store Store) *Board {
	t.Helper()
	if store == nil {
		store = newMemoryStore()
	}
	b := NewBoard(store,
		WithIDs(sequentialIDs()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, b.Init())
	return b
}

// emptyBoard is a test board whose active sheet has no notes.
func emptyBoard(t *testing.T) *Board {
	t.Helper()
	b := newTestBoard(t, nil)
	b.ClearNotes()
	return b
}

func addNoteAt(t *testing.T, b *Board, x, y float64, text string) Note {
	t.Helper()
	n := b.AddNote(NoteOptions{Position: &Point{X: x, Y: y}, Content: text})
	n.W, n.H = 120, 80
	require.NoError(t, b.ReplaceNote(n))
	return n
}

// storedList decodes the JSON list stored under key.
func storedList[T any](t *testing.T, s Store, key string) []T {
	t.Helper()
	raw, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok, "key %s not stored", key)
	var out []T
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func newTestModel(t *testing.T, b *Board) model {
	t.Helper()
	m := newModel(b, &Config{Confirmations: true, SaveDirectory: t.TempDir()}, nil)
	m.now = func() time.Time { return testNow }
	m.readClipboard = func() (string, error) { return "", nil }
	m.writeClipboard = func(string) error { return nil }
	m.openFile = func(string) error { return nil }
	return m
}
