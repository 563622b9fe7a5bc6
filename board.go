package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSheetNotFound   = errors.New("sheet not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrSelfConnection  = errors.New("cannot connect a note to itself")
	ErrEmptyName       = errors.New("name must not be empty")
	ErrNoBiggestSheets = errors.New(`no sheets with size "biggest" found`)
	ErrNothingToExport = errors.New("nothing to export")
)

// Board owns the application state: the sheet list, the active sheet's notes and
// connections, and the theme. Every mutation writes through to the Store; write
// failures are logged and the in-memory copy stays authoritative.
type Board struct {
	store Store
	log   *slog.Logger
	rng   *rand.Rand
	newID func(prefix string) string
	now   func() time.Time

	sheets      []Sheet
	activeID    string
	notes       []Note
	connections []Connection
	theme       Theme
}

type BoardOption func(*Board)

func WithLogger(l *slog.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.log = l
		}
	}
}

func WithRand(r *rand.Rand) BoardOption {
	return func(b *Board) { b.rng = r }
}

func WithIDs(gen func(prefix string) string) BoardOption {
	return func(b *Board) { b.newID = gen }
}

func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

func NewBoard(store Store, opts ...BoardOption) *Board {
	b := &Board{
		store: store,
		log:   discardLogger(),
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		newID: func(prefix string) string { return prefix + uuid.NewString() },
		now:   time.Now,
		theme: ThemeLight,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("component", "board")
	return b
}

func sheetKey(prefix, sheetID string) string {
	return prefix + "_" + sheetID
}

// write marshals v and stores it under key. Failures are logged, never returned.
func (b *Board) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error("failed encoding", "key", key, "error", err)
		return
	}
	if err := b.store.Set(key, string(data)); err != nil {
		b.log.Warn("failed saving to store", "key", key, "error", err)
	}
}

func (b *Board) remove(key string) {
	if err := b.store.Remove(key); err != nil {
		b.log.Warn("failed removing from store", "key", key, "error", err)
	}
}

// readList loads a JSON array stored under key. Missing or malformed data yields an empty list.
func readList[T any](b *Board, key string) []T {
	raw, ok, err := b.store.Get(key)
	if err != nil {
		b.log.Error("failed reading from store", "key", key, "error", err)
		return []T{}
	}
	if !ok || raw == "" {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		b.log.Error("failed to parse stored data", "key", key, "error", err)
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

func (b *Board) save() {
	if b.activeID == "" {
		return
	}
	b.write(sheetKey(notesKey, b.activeID), nonNil(b.notes))
}

func (b *Board) saveConnections() {
	if b.activeID == "" {
		return
	}
	b.write(sheetKey(connectionsKey, b.activeID), nonNil(b.connections))
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Save persists the active sheet's notes. Drags call it once on release.
func (b *Board) Save() {
	b.save()
}

func (b *Board) Notes() []Note {
	return slices.Clone(b.notes)
}

func (b *Board) Connections() []Connection {
	return slices.Clone(b.connections)
}

func (b *Board) Note(id string) (Note, bool) {
	if i := b.noteIndex(id); i >= 0 {
		return b.notes[i], true
	}
	return Note{}, false
}

func (b *Board) noteIndex(id string) int {
	return slices.IndexFunc(b.notes, func(n Note) bool { return n.ID == id })
}

func (b *Board) mustNote(id string) (int, error) {
	i := b.noteIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("note %s: %w", id, ErrNoteNotFound)
	}
	return i, nil
}

// NoteOptions customises a new note. Zero values take the defaults.
type NoteOptions struct {
	Color    Color
	Content  string
	Position *Point
}

func (b *Board) newNote(opts NoteOptions) Note {
	n := Note{
		ID:      b.newID("n_"),
		X:       spawnOriginX + b.rng.Float64()*spawnRangeX,
		Y:       spawnOriginY + b.rng.Float64()*spawnRangeY,
		W:       defaultNoteWidth,
		H:       defaultNoteHeight,
		Color:   ColorYellow,
		Content: defaultNoteText,
	}
	if c, ok := parseColor(string(opts.Color)); ok {
		n.Color = c
	}
	if opts.Content != "" {
		n.Content = opts.Content
	}
	if opts.Position != nil {
		n.X, n.Y = clampPosition(opts.Position.X, opts.Position.Y)
	}
	return n
}

func (b *Board) AddNote(opts NoteOptions) Note {
	n := b.newNote(opts)
	b.notes = append(b.notes, n)
	b.save()
	return n
}

// DeleteNote removes the note and every connection that references it.
func (b *Board) DeleteNote(id string) (DeleteNoteData, error) {
	i, err := b.mustNote(id)
	if err != nil {
		return DeleteNoteData{}, err
	}
	removed := DeleteNoteData{Note: b.notes[i], Index: i}
	b.notes = slices.Delete(b.notes, i, i+1)

	kept := b.connections[:0:0]
	for _, c := range b.connections {
		if c.touches(id) {
			removed.Connections = append(removed.Connections, c)
			continue
		}
		kept = append(kept, c)
	}
	b.connections = kept
	b.saveConnections()
	b.save()
	return removed, nil
}

// RestoreNote puts a deleted note back at its old index together with its connections.
func (b *Board) RestoreNote(n Note, index int, conns []Connection) {
	index = max(0, min(index, len(b.notes)))
	b.notes = slices.Insert(b.notes, index, n)
	b.connections = append(b.connections, conns...)
	b.save()
	b.saveConnections()
}

// MoveNote repositions a note in memory only. Callers persist with Save.
func (b *Board) MoveNote(id string, x, y float64) (Note, error) {
	i, err := b.mustNote(id)
	if err != nil {
		return Note{}, err
	}
	b.notes[i].X, b.notes[i].Y = clampPosition(x, y)
	return b.notes[i], nil
}

func (b *Board) ResizeNote(id string, w, h float64) (Note, error) {
	i, err := b.mustNote(id)
	if err != nil {
		return Note{}, err
	}
	b.notes[i].W, b.notes[i].H = clampSize(w, h)
	b.save()
	return b.notes[i], nil
}

// SetNoteText replaces the content and grows or shrinks the note to fit it.
func (b *Board) SetNoteText(id, text string) (Note, error) {
	i, err := b.mustNote(id)
	if err != nil {
		return Note{}, err
	}
	b.notes[i].Content = text
	b.notes[i].H = autoGrowHeight(text, b.notes[i].W)
	b.save()
	return b.notes[i], nil
}

func (b *Board) CycleColor(id string) (Note, error) {
	i, err := b.mustNote(id)
	if err != nil {
		return Note{}, err
	}
	b.notes[i].Color = b.notes[i].Color.Next()
	b.save()
	return b.notes[i], nil
}

// ReplaceNote overwrites a note wholesale, keeping its place in the list.
func (b *Board) ReplaceNote(n Note) error {
	i, err := b.mustNote(n.ID)
	if err != nil {
		return err
	}
	b.notes[i] = n
	b.save()
	return nil
}

// ClearNotes empties the active sheet.
func (b *Board) ClearNotes() {
	b.notes = []Note{}
	b.connections = []Connection{}
	b.save()
	b.saveConnections()
}

func (b *Board) AddConnection(from, to string) (Connection, error) {
	if from == to {
		return Connection{}, ErrSelfConnection
	}
	if _, err := b.mustNote(from); err != nil {
		return Connection{}, err
	}
	if _, err := b.mustNote(to); err != nil {
		return Connection{}, err
	}
	c := Connection{From: from, To: to}
	b.connections = append(b.connections, c)
	b.saveConnections()
	return c, nil
}

// RemoveConnection drops every connection with exactly this from/to pair.
func (b *Board) RemoveConnection(from, to string) int {
	before := len(b.connections)
	b.connections = slices.DeleteFunc(b.connections, func(c Connection) bool {
		return c.From == from && c.To == to
	})
	removed := before - len(b.connections)
	if removed > 0 {
		b.saveConnections()
	}
	return removed
}

// removeLastConnection drops only the most recent copy of c.
func (b *Board) removeLastConnection(c Connection) bool {
	for i := len(b.connections) - 1; i >= 0; i-- {
		if b.connections[i] == c {
			b.connections = slices.Delete(b.connections, i, i+1)
			b.saveConnections()
			return true
		}
	}
	return false
}

func (b *Board) restoreConnection(c Connection, count int) {
	for range max(count, 1) {
		b.connections = append(b.connections, c)
	}
	b.saveConnections()
}

func (b *Board) Theme() Theme {
	return b.theme
}

func (b *Board) SetTheme(t Theme) {
	b.theme = parseTheme(string(t))
	if err := b.store.Set(themeKey, string(b.theme)); err != nil {
		b.log.Warn("failed saving theme", "error", err)
	}
}

func (b *Board) ToggleTheme() Theme {
	if b.theme == ThemeDark {
		b.SetTheme(ThemeLight)
	} else {
		b.SetTheme(ThemeDark)
	}
	return b.theme
}

func (b *Board) loadTheme() {
	raw, _, err := b.store.Get(themeKey)
	if err != nil {
		b.log.Error("failed reading theme", "error", err)
	}
	b.theme = parseTheme(raw)
}
