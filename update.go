package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// frameMsg fires once per scheduled frame while a drag is running.
type frameMsg struct{}

// storeChangedMsg reports a write to the store by another process.
type storeChangedMsg struct{ key string }

// openFileMsg asks to open an exported file once it has settled on disk.
type openFileMsg struct{ path string }

func newModel(b *Board, cfg *Config, logger *slog.Logger) model {
	if logger == nil {
		logger = discardLogger()
	}
	prompt := textinput.New()
	prompt.CharLimit = 256
	return model{
		board:          b,
		ix:             &Interaction{},
		pans:           make(map[string]point),
		mode:           ModeNormal,
		newColor:       ColorYellow,
		prompt:         prompt,
		config:         cfg,
		logger:         logger.With("component", "tui"),
		now:            time.Now,
		readClipboard:  readClipboardText,
		writeClipboard: writeClipboardText,
		openFile:       openInViewer,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.setPan(m.pan())
		m.ensureCursorInBounds()
		return m, nil

	case frameMsg:
		m.frameScheduled = false
		if m.drag != nil {
			m.overlay = buildLinks(m.board.Notes(), m.board.Connections())
		}
		return m, nil

	case storeChangedMsg:
		// In-flight moves live only in memory; a reload now would undo them.
		if m.mode != ModeNormal || m.drag != nil {
			return m, nil
		}
		m.logger.Debug("store changed externally", "key", msg.key)
		m.board.Reload()
		return m, nil

	case openFileMsg:
		if err := m.openFile(msg.path); err != nil {
			m.logger.Warn("failed opening export", "path", msg.path, "error", err)
			m.errorMessage = err.Error()
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.help {
			return m.handleHelpKey(msg.String())
		}
		switch m.mode {
		case ModeEditing:
			return m.handleEditKey(msg)
		case ModeMove:
			return m.handleMoveKey(msg.String())
		case ModeResize:
			return m.handleResizeKey(msg.String())
		case ModePrompt:
			return m.handlePromptKey(msg)
		case ModeSheetPicker:
			return m.handlePickerKey(msg.String())
		case ModeSizeMenu:
			return m.handleSizeMenuKey(msg.String())
		case ModeConfirm:
			return m.handleConfirmKey(msg.String())
		}
		return m.handleNormalKey(msg)
	}
	return m, nil
}

func (m model) handleHelpKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		maxScroll := max(len(helpLines)-(m.height-1), 0)
		if m.helpScroll < maxScroll {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	}
	return m, nil
}

// noteAtCursor is the id of the note under the keyboard cursor, or "".
func (m *model) noteAtCursor() string {
	return m.canvas().HitAt(m.cursorX, m.cursorY).noteID
}

func (m *model) needNote() (Note, bool) {
	n, ok := m.board.Note(m.noteAtCursor())
	if !ok {
		m.errorMessage = "No note under cursor"
	}
	return n, ok
}

func (m *model) clearMessages() {
	m.errorMessage = ""
	m.successMessage = ""
}

func (m *model) fail(action string, err error) {
	m.logger.Warn(action+" failed", "error", err)
	m.errorMessage = err.Error()
}

func (m *model) confirm(action ConfirmAction) {
	if m.config != nil && !m.config.Confirmations {
		m.runConfirmed(action)
		return
	}
	m.mode = ModeConfirm
	m.confirmAction = action
}

func (m model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	m.clearMessages()

	if isDirection(key) {
		m.handleCursorMove(key, m.getMoveSpeed(key))
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		if m.config != nil && !m.config.Confirmations {
			return m, tea.Quit
		}
		m.mode = ModeConfirm
		m.confirmAction = ConfirmQuit
	case "?":
		m.help = true
	case "esc":
		m.ix.Reset()
		m.selectedNote = ""
	case "a":
		pos := m.cursorPoint()
		n := m.board.AddNote(NoteOptions{Position: &pos, Color: m.newColor})
		m.recordAction(ActionAddNote, NoteData{Note: n, Index: len(m.board.notes) - 1})
		m.startEditing(n)
	case "p":
		m.pasteAsNote()
	case "e", "enter":
		if n, ok := m.needNote(); ok {
			m.startEditing(n)
		}
	case "d":
		if n, ok := m.needNote(); ok {
			m.deleteNote(n.ID)
		}
	case "m":
		if n, ok := m.needNote(); ok {
			m.mode = ModeMove
			m.selectedNote = n.ID
			m.original = n
		}
	case "r":
		if n, ok := m.needNote(); ok {
			m.mode = ModeResize
			m.selectedNote = n.ID
			m.original = n
		}
	case "c":
		if n, ok := m.board.Note(m.noteAtCursor()); ok {
			m.recolorNote(n.ID)
		} else {
			m.newColor = m.newColor.Next()
			m.successMessage = "New notes: " + m.newColor.Name()
		}
	case "y":
		if n, ok := m.needNote(); ok {
			if err := m.writeClipboard(n.Content); err != nil {
				m.fail("copy", err)
			} else {
				m.successMessage = "Copied note text"
			}
		}
	case "x":
		if m.ix.ToggleConnect() {
			m.successMessage = "Connect mode: pick two notes"
		} else {
			m.successMessage = "Connect mode off"
		}
	case "X":
		if m.ix.ToggleRemove() {
			m.successMessage = "Remove mode: pick a connection"
		} else {
			m.successMessage = "Remove mode off"
		}
	case " ":
		m.click(m.cursorX, m.cursorY)
	case "o":
		if n, ok := m.needNote(); ok {
			m.branch(n.ID, false)
		}
	case "O":
		if n, ok := m.needNote(); ok {
			m.branch(n.ID, true)
		}
	case "D":
		m.confirm(ConfirmClearNotes)
	case "s":
		m.mode = ModeSheetPicker
		m.pickerIndex = max(m.board.sheetIndex(m.board.ActiveSheetID()), 0)
	case "n":
		return m, m.startPrompt(PromptNewSheet, "small, medium, large, biggest, excel", string(SizeBiggest))
	case "R":
		return m, m.startPrompt(PromptRenameSheet, "sheet name", m.board.ActiveSheet().Name)
	case "W":
		m.confirm(ConfirmDeleteSheet)
	case "z":
		m.mode = ModeSizeMenu
		m.sizeIndex = max(slices.Index(sizeCategories, m.board.ActiveSheet().Size.orDefault()), 0)
	case "E":
		if err := m.board.ConvertToExcel(m.board.ActiveSheetID()); err != nil {
			m.fail("convert to excel", err)
		} else {
			m.successMessage = "Sheet size: excel"
		}
	case "A":
		if m.board.BiggestCount() == 0 {
			m.errorMessage = ErrNoBiggestSheets.Error()
		} else {
			m.confirm(ConfirmConvertAllToExcel)
		}
	case "S":
		return m, m.export(ExportJSON)
	case "Y":
		return m, m.export(ExportYAML)
	case "P":
		return m, m.export(ExportPNG)
	case "V":
		return m, m.export(ExportSVG)
	case "T":
		return m, m.export(ExportTXT)
	case "I":
		return m, m.startPrompt(PromptImportFile, "path to a JSON or YAML export", "")
	case "t":
		m.successMessage = fmt.Sprintf("Theme: %s", m.board.ToggleTheme())
	case "u":
		m.undo()
	case "U":
		m.redo()
	case "{", "}":
		m.cycleSheet(key == "}")
	}
	return m, nil
}

func (m *model) deleteNote(id string) {
	removed, err := m.board.DeleteNote(id)
	if err != nil {
		m.fail("delete", err)
		return
	}
	m.recordAction(ActionDeleteNote, removed)
	m.ix.Forget(id)
}

func (m *model) recolorNote(id string) {
	before, _ := m.board.Note(id)
	after, err := m.board.CycleColor(id)
	if err != nil {
		m.fail("recolor", err)
		return
	}
	m.recordAction(ActionRecolorNote, NoteChangeData{Before: before, After: after})
	m.successMessage = "Color: " + after.Color.Name()
}

func (m *model) branch(id string, sibling bool) {
	var (
		child Note
		conn  *Connection
		err   error
	)
	if sibling {
		child, conn, err = m.board.AddSibling(id)
	} else {
		var c Connection
		child, c, err = m.board.AddBranch(id)
		conn = &c
	}
	if err != nil {
		m.fail("branch", err)
		return
	}
	m.recordAction(ActionAddNote, NoteData{Note: child, Index: m.board.noteIndex(child.ID)})
	if conn != nil {
		m.recordAction(ActionAddConnection, ConnectionData{Connection: *conn, Count: 1})
	}
	m.startEditing(child)
}

func (m *model) pasteAsNote() {
	text, err := m.readClipboard()
	if err != nil {
		m.fail("paste", err)
		return
	}
	text = cleanClipboardText(text)
	if strings.TrimSpace(text) == "" {
		m.errorMessage = "Clipboard is empty"
		return
	}
	pos := m.cursorPoint()
	n := m.board.AddNote(NoteOptions{Position: &pos, Content: text, Color: m.newColor})
	n, _ = m.board.SetNoteText(n.ID, text)
	m.recordAction(ActionAddNote, NoteData{Note: n, Index: len(m.board.notes) - 1})
}

func (m *model) switchSheet(id string) {
	if err := m.board.SwitchSheet(id); err != nil {
		m.fail("switch sheet", err)
		return
	}
	m.afterSheetChange()
}

// afterSheetChange drops everything that belonged to the previous sheet.
func (m *model) afterSheetChange() {
	m.ix.Reset()
	m.clearHistory()
	m.selectedNote = ""
	m.drag = nil
	m.overlay = nil
	m.setPan(m.pan())
}

func (m *model) cycleSheet(forward bool) {
	sheets := m.board.Sheets()
	if len(sheets) < 2 {
		return
	}
	i := m.board.sheetIndex(m.board.ActiveSheetID())
	if forward {
		i = (i + 1) % len(sheets)
	} else {
		i = (i - 1 + len(sheets)) % len(sheets)
	}
	m.switchSheet(sheets[i].ID)
}

func (m *model) export(kind ExportKind) tea.Cmd {
	path, err := m.board.ExportSheet(m.board.ActiveSheetID(), kind, m.config.ExportDir())
	if err != nil {
		m.fail("export", err)
		return nil
	}
	m.successMessage = "Exported " + path
	if (kind == ExportPNG || kind == ExportSVG) && m.config != nil && m.config.OpenAfterExport {
		return tea.Tick(printSettleDelay, func(time.Time) tea.Msg { return openFileMsg{path: path} })
	}
	return nil
}

func (m *model) startEditing(n Note) {
	m.mode = ModeEditing
	m.selectedNote = n.ID
	m.original = n
	m.editText = n.Content
	m.editCursorPos = len([]rune(n.Content))
}

func (m model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	runes := []rune(m.editText)
	pos := max(0, min(m.editCursorPos, len(runes)))
	insert := func(s string) {
		ins := []rune(s)
		runes = slices.Insert(runes, pos, ins...)
		pos += len(ins)
	}

	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlS:
		m.finishEditing()
		return m, nil
	case tea.KeyEnter:
		insert("\n")
	case tea.KeyTab:
		insert("\t")
	case tea.KeySpace:
		insert(" ")
	case tea.KeyRunes:
		insert(string(msg.Runes))
	case tea.KeyCtrlV:
		text, err := m.readClipboard()
		if err != nil {
			m.fail("paste", err)
			return m, nil
		}
		insert(cleanClipboardText(text))
	case tea.KeyBackspace:
		if pos == 0 {
			return m, nil
		}
		runes = slices.Delete(runes, pos-1, pos)
		pos--
	case tea.KeyDelete:
		if pos >= len(runes) {
			return m, nil
		}
		runes = slices.Delete(runes, pos, pos+1)
	case tea.KeyLeft:
		m.editCursorPos = max(pos-1, 0)
		return m, nil
	case tea.KeyRight:
		m.editCursorPos = min(pos+1, len(runes))
		return m, nil
	case tea.KeyHome:
		m.editCursorPos = lineStart(runes, pos)
		return m, nil
	case tea.KeyEnd:
		m.editCursorPos = lineEnd(runes, pos)
		return m, nil
	default:
		return m, nil
	}

	m.editText = string(runes)
	m.editCursorPos = pos
	if _, err := m.board.SetNoteText(m.selectedNote, m.editText); err != nil {
		m.fail("edit", err)
		m.mode = ModeNormal
		m.selectedNote = ""
	}
	return m, nil
}

func lineStart(runes []rune, pos int) int {
	for pos > 0 && runes[pos-1] != '\n' {
		pos--
	}
	return pos
}

func lineEnd(runes []rune, pos int) int {
	for pos < len(runes) && runes[pos] != '\n' {
		pos++
	}
	return pos
}

func (m *model) finishEditing() {
	if n, ok := m.board.Note(m.selectedNote); ok && n != m.original {
		m.recordAction(ActionEditNote, NoteChangeData{Before: m.original, After: n})
	}
	m.mode = ModeNormal
	m.selectedNote = ""
}

func (m model) handleMoveKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		m.board.Save()
		if n, ok := m.board.Note(m.selectedNote); ok && n != m.original {
			m.recordAction(ActionMoveNote, NoteChangeData{Before: m.original, After: n})
		}
	case "esc":
		if err := m.board.ReplaceNote(m.original); err != nil {
			m.fail("move", err)
		}
	default:
		if !isDirection(key) {
			return m, nil
		}
		dx, dy := direction(key)
		speed := float64(m.getMoveSpeed(key))
		n, _ := m.board.Note(m.selectedNote)
		if _, err := m.board.MoveNote(n.ID, n.X+float64(dx)*speed*charWidth, n.Y+float64(dy)*speed*charHeight); err != nil {
			m.fail("move", err)
			break
		}
		return m, nil
	}
	m.mode = ModeNormal
	m.selectedNote = ""
	return m, nil
}

func (m model) handleResizeKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		if n, ok := m.board.Note(m.selectedNote); ok && n != m.original {
			m.recordAction(ActionResizeNote, NoteChangeData{Before: m.original, After: n})
		}
	case "esc":
		if err := m.board.ReplaceNote(m.original); err != nil {
			m.fail("resize", err)
		}
	default:
		if !isDirection(key) {
			return m, nil
		}
		dx, dy := direction(key)
		speed := float64(m.getMoveSpeed(key))
		n, _ := m.board.Note(m.selectedNote)
		if _, err := m.board.ResizeNote(n.ID, n.W+float64(dx)*speed*charWidth, n.H+float64(dy)*speed*charHeight); err != nil {
			m.fail("resize", err)
			break
		}
		return m, nil
	}
	m.mode = ModeNormal
	m.selectedNote = ""
	return m, nil
}

func (m *model) startPrompt(kind PromptKind, placeholder, value string) tea.Cmd {
	m.mode = ModePrompt
	m.promptKind = kind
	m.prompt.Placeholder = placeholder
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt.Blur()
		m.mode = ModeNormal
		return m, nil
	case tea.KeyEnter:
		m.prompt.Blur()
		m.mode = ModeNormal
		m.submitPrompt(strings.TrimSpace(m.prompt.Value()))
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *model) submitPrompt(value string) {
	switch m.promptKind {
	case PromptNewSheet:
		s := m.board.CreateSheet("", value)
		m.switchSheet(s.ID)
		m.successMessage = fmt.Sprintf("Created %s (%s)", s.Name, s.Size)
	case PromptRenameSheet:
		if err := m.board.RenameSheet(m.board.ActiveSheetID(), value); err != nil {
			m.fail("rename", err)
		}
	case PromptImportFile:
		if value == "" {
			return
		}
		s, err := m.board.ImportFile(value)
		if err != nil {
			m.fail("import", err)
			return
		}
		m.switchSheet(s.ID)
		m.successMessage = "Imported " + s.Name
	}
}

func (m model) handlePickerKey(key string) (tea.Model, tea.Cmd) {
	sheets := m.board.Sheets()
	switch key {
	case "j", "down":
		m.pickerIndex = min(m.pickerIndex+1, len(sheets)-1)
	case "k", "up":
		m.pickerIndex = max(m.pickerIndex-1, 0)
	case "enter":
		m.mode = ModeNormal
		if m.pickerIndex < len(sheets) && sheets[m.pickerIndex].ID != m.board.ActiveSheetID() {
			m.switchSheet(sheets[m.pickerIndex].ID)
		}
	case "esc", "q":
		m.mode = ModeNormal
	}
	return m, nil
}

func (m model) handleSizeMenuKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		m.sizeIndex = min(m.sizeIndex+1, len(sizeCategories)-1)
	case "k", "up":
		m.sizeIndex = max(m.sizeIndex-1, 0)
	case "enter":
		m.mode = ModeNormal
		size := sizeCategories[m.sizeIndex]
		if err := m.board.SetSheetSize(m.board.ActiveSheetID(), string(size)); err != nil {
			m.fail("resize sheet", err)
			return m, nil
		}
		m.setPan(m.pan())
		m.successMessage = "Sheet size: " + string(size)
	case "esc", "q":
		m.mode = ModeNormal
	}
	return m, nil
}

func (m model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.mode = ModeNormal
		if m.confirmAction == ConfirmQuit {
			return m, tea.Quit
		}
		m.runConfirmed(m.confirmAction)
	case "n", "N", "esc":
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *model) runConfirmed(action ConfirmAction) {
	switch action {
	case ConfirmClearNotes:
		m.board.ClearNotes()
		m.ix.Reset()
		m.clearHistory()
		m.successMessage = "Cleared all notes"
	case ConfirmDeleteSheet:
		name := m.board.ActiveSheet().Name
		if err := m.board.DeleteSheet(m.board.ActiveSheetID()); err != nil {
			m.fail("delete sheet", err)
			return
		}
		m.afterSheetChange()
		m.successMessage = "Deleted " + name
	case ConfirmConvertAllToExcel:
		n, err := m.board.ConvertAllBiggestToExcel()
		if err != nil {
			m.fail("convert", err)
			return
		}
		m.setPan(m.pan())
		m.successMessage = fmt.Sprintf("Converted %d sheet(s) to excel", n)
	}
}

func (m model) confirmMessage() string {
	switch m.confirmAction {
	case ConfirmClearNotes:
		return "Delete all notes?"
	case ConfirmDeleteSheet:
		return "Delete this sheet and all its notes?"
	case ConfirmConvertAllToExcel:
		return fmt.Sprintf("Convert %d sheet(s) from biggest → excel?", m.board.BiggestCount())
	case ConfirmQuit:
		return "Quit stickies?"
	}
	return ""
}
