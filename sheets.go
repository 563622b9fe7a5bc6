package main

import (
	"fmt"
	"slices"
	"strings"
)

// Init loads the theme and sheet list and activates a sheet. First run seeds two sheets.
// A panic anywhere in here comes back as an error so the caller can report it.
func (b *Board) Init() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("initialization failed: %v", r)
		}
	}()

	b.log.Info("initializing")
	b.loadTheme()
	b.sheets = readList[Sheet](b, sheetsKey)
	if len(b.sheets) == 0 {
		first := b.CreateSheet("Planning", string(SizeBiggest))
		b.CreateSheet("DSA", string(SizeBiggest))
		b.switchTo(first.ID, false)
		return nil
	}

	active := b.sheets[0].ID
	if raw, ok, err := b.store.Get(activeSheetKey); err == nil && ok && b.sheetIndex(raw) >= 0 {
		active = raw
	}
	b.switchTo(active, false)
	b.log.Info("initialized", "sheets", len(b.sheets), "notes", len(b.notes))
	return nil
}

func (b *Board) Sheets() []Sheet {
	return slices.Clone(b.sheets)
}

func (b *Board) ActiveSheetID() string {
	return b.activeID
}

func (b *Board) ActiveSheet() Sheet {
	if i := b.sheetIndex(b.activeID); i >= 0 {
		return b.sheets[i]
	}
	return Sheet{ID: b.activeID, Name: "sheet"}
}

func (b *Board) sheetIndex(id string) int {
	return slices.IndexFunc(b.sheets, func(s Sheet) bool { return s.ID == id })
}

// FindSheet resolves a sheet by id, then by case-insensitive name.
func (b *Board) FindSheet(ref string) (Sheet, error) {
	if i := b.sheetIndex(ref); i >= 0 {
		return b.sheets[i], nil
	}
	for _, s := range b.sheets {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return Sheet{}, fmt.Errorf("sheet %q: %w", ref, ErrSheetNotFound)
}

func (b *Board) saveSheetsMeta() {
	b.write(sheetsKey, nonNil(b.sheets))
}

// CreateSheet appends a sheet. It does not switch to it.
func (b *Board) CreateSheet(name, size string) Sheet {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Sheet %d", len(b.sheets)+1)
	}
	s := Sheet{ID: b.newID("s_"), Name: name, Size: NormalizeSize(size)}
	b.sheets = append(b.sheets, s)
	b.saveSheetsMeta()
	return s
}

// SwitchSheet flushes the current sheet and loads another one.
func (b *Board) SwitchSheet(id string) error {
	if b.sheetIndex(id) < 0 {
		return fmt.Errorf("sheet %s: %w", id, ErrSheetNotFound)
	}
	b.switchTo(id, true)
	return nil
}

func (b *Board) switchTo(id string, flush bool) {
	if flush && b.activeID != "" {
		b.save()
		b.saveConnections()
	}
	b.activeID = id
	if err := b.store.Set(activeSheetKey, id); err != nil {
		b.log.Warn("failed saving active sheet", "error", err)
	}
	b.notes = readList[Note](b, sheetKey(notesKey, id))
	b.connections = readList[Connection](b, sheetKey(connectionsKey, id))
	if len(b.notes) == 0 {
		b.notes = []Note{b.newNote(NoteOptions{Content: newSheetNoteText})}
		b.save()
	}
}

// Reload re-reads sheet metadata, theme and the active sheet from the store,
// dropping in-memory state. Used when another process changed the store.
func (b *Board) Reload() {
	b.loadTheme()
	sheets := readList[Sheet](b, sheetsKey)
	if len(sheets) > 0 {
		b.sheets = sheets
	}
	if b.sheetIndex(b.activeID) < 0 && len(b.sheets) > 0 {
		b.switchTo(b.sheets[0].ID, false)
		return
	}
	b.notes = readList[Note](b, sheetKey(notesKey, b.activeID))
	b.connections = readList[Connection](b, sheetKey(connectionsKey, b.activeID))
}

func (b *Board) RenameSheet(id, name string) error {
	i := b.sheetIndex(id)
	if i < 0 {
		return fmt.Errorf("sheet %s: %w", id, ErrSheetNotFound)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	b.sheets[i].Name = name
	b.saveSheetsMeta()
	return nil
}

// DeleteSheet removes a sheet and its stored notes and connections. Deleting the
// active sheet activates the first remaining one, creating a fresh sheet if none are left.
func (b *Board) DeleteSheet(id string) error {
	i := b.sheetIndex(id)
	if i < 0 {
		return fmt.Errorf("sheet %s: %w", id, ErrSheetNotFound)
	}
	b.sheets = slices.Delete(b.sheets, i, i+1)
	b.remove(sheetKey(notesKey, id))
	b.remove(sheetKey(connectionsKey, id))
	b.saveSheetsMeta()

	if id != b.activeID {
		return nil
	}
	b.activeID = ""
	b.notes = nil
	b.connections = nil
	if len(b.sheets) > 0 {
		b.switchTo(b.sheets[0].ID, false)
		return nil
	}
	s := b.CreateSheet("Sheet 1", "")
	b.switchTo(s.ID, false)
	return nil
}

// SetSheetSize changes the layout category and re-applies the sheet if it is active.
func (b *Board) SetSheetSize(id, size string) error {
	i := b.sheetIndex(id)
	if i < 0 {
		return fmt.Errorf("sheet %s: %w", id, ErrSheetNotFound)
	}
	b.sheets[i].Size = NormalizeSize(size)
	b.saveSheetsMeta()
	if id == b.activeID {
		b.switchTo(id, true)
	}
	return nil
}

func (b *Board) ConvertToExcel(id string) error {
	return b.SetSheetSize(id, string(SizeExcel))
}

// BiggestCount is how many sheets ConvertAllBiggestToExcel would touch.
func (b *Board) BiggestCount() int {
	n := 0
	for _, s := range b.sheets {
		if s.Size == SizeBiggest {
			n++
		}
	}
	return n
}

func (b *Board) ConvertAllBiggestToExcel() (int, error) {
	n := 0
	for i := range b.sheets {
		if b.sheets[i].Size == SizeBiggest {
			b.sheets[i].Size = SizeExcel
			n++
		}
	}
	if n == 0 {
		return 0, ErrNoBiggestSheets
	}
	b.saveSheetsMeta()
	b.switchTo(b.activeID, true)
	return n, nil
}

// ImportSheet stores a complete sheet without activating it.
func (b *Board) ImportSheet(name string, size string, notes []Note, conns []Connection) Sheet {
	s := b.CreateSheet(name, size)
	b.write(sheetKey(notesKey, s.ID), nonNil(notes))
	b.write(sheetKey(connectionsKey, s.ID), nonNil(conns))
	return s
}

// OrphanKeys lists per-sheet storage keys whose sheet no longer exists.
func (b *Board) OrphanKeys() ([]string, error) {
	var orphans []string
	for _, prefix := range []string{notesKey, connectionsKey} {
		keys, err := b.store.Keys(prefix + "_*")
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			id := strings.TrimPrefix(k, prefix+"_")
			if b.sheetIndex(id) < 0 {
				orphans = append(orphans, k)
			}
		}
	}
	return orphans, nil
}

// RemoveOrphans deletes the keys reported by OrphanKeys.
func (b *Board) RemoveOrphans() ([]string, error) {
	orphans, err := b.OrphanKeys()
	if err != nil {
		return nil, err
	}
	for _, k := range orphans {
		b.remove(k)
	}
	return orphans, nil
}
