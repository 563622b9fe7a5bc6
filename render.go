package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1e1e1e")).Background(lipgloss.Color("#f9f871"))
	barModeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color(linkColor))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(linkColor))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2f9e44"))
	listStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	pickStyle    = lipgloss.NewStyle().Bold(true).Reverse(true)
)

// boardView describes the active sheet. During a drag the connection curves
// come from the per-frame overlay instead of the live note positions.
func (m *model) boardView() BoardView {
	st := ViewState{Pending: m.ix.Pending()}
	if m.drag != nil {
		st.Dragging = m.drag.noteID
	}
	if m.mode == ModeMove || m.mode == ModeResize || m.mode == ModeEditing {
		st.Selected = m.selectedNote
	}
	v := BuildView(m.board.ActiveSheet(), m.board.Notes(), m.board.Connections(), m.board.Theme(), st)
	if m.drag != nil && m.overlay != nil {
		v.Links = m.overlay
	}
	return v
}

func (m *model) canvas() *Canvas {
	p := m.pan()
	c := NewCanvas(m.width, m.boardHeight(), p.X, p.Y, m.board.Theme())
	v := m.boardView()
	c.Draw(v)
	switch m.mode {
	case ModeEditing:
		for _, n := range v.Notes {
			if n.ID == m.selectedNote {
				c.DrawCaret(n, m.editText, m.editCursorPos)
			}
		}
	case ModeNormal:
		if m.drag == nil {
			c.DrawCursor(m.cursorX, m.cursorY)
		}
	}
	return c
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return m.helpView()
	}

	var result strings.Builder
	result.WriteString(m.topBar())
	result.WriteString("\n")

	switch m.mode {
	case ModeSheetPicker:
		result.WriteString(m.placeList("Sheets", m.sheetNames(), m.pickerIndex))
	case ModeSizeMenu:
		sizes := make([]string, len(sizeCategories))
		for i, s := range sizeCategories {
			w, h := s.Dimensions()
			sizes[i] = fmt.Sprintf("%-8s %4.0f×%.0f", s, w, h)
		}
		result.WriteString(m.placeList("Sheet size", sizes, m.sizeIndex))
	default:
		result.WriteString(strings.Join(m.canvas().Lines(), "\n"))
	}

	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

func (m *model) sheetNames() []string {
	sheets := m.board.Sheets()
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = fmt.Sprintf("%s (%s)", s.Name, s.Size.orDefault())
		if s.ID == m.board.ActiveSheetID() {
			names[i] += " *"
		}
	}
	return names
}

// placeList centres a bordered list in the board area.
func (m *model) placeList(title string, items []string, selected int) string {
	var body strings.Builder
	body.WriteString(title)
	for i, item := range items {
		body.WriteString("\n")
		if i == selected {
			body.WriteString(pickStyle.Render("> " + item))
		} else {
			body.WriteString("  " + item)
		}
	}
	return lipgloss.Place(m.width, m.boardHeight(), lipgloss.Center, lipgloss.Center, listStyle.Render(body.String()))
}

func (m *model) topBar() string {
	sheet := m.board.ActiveSheet()
	left := barStyle.Render(fmt.Sprintf(" %s · %s · %s · new %s ", sheet.Name, sheet.Size.orDefault(), m.board.Theme(), m.newColor.Name()))
	var mode string
	switch {
	case m.ix.ConnectMode():
		mode = barModeStyle.Render(" CONNECT ")
	case m.ix.RemoveMode():
		mode = barModeStyle.Render(" REMOVE ")
	}
	sheets := m.board.Sheets()
	right := fmt.Sprintf(" sheet %d/%d ", m.board.sheetIndex(sheet.ID)+1, len(sheets))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(mode) - lipgloss.Width(right)
	return left + mode + strings.Repeat(" ", max(gap, 0)) + right
}

func (m model) modeString() string {
	switch m.mode {
	case ModeEditing:
		return "EDIT"
	case ModeResize:
		return "RESIZE"
	case ModeMove:
		return "MOVE"
	case ModePrompt:
		return "PROMPT"
	case ModeSheetPicker:
		return "SHEETS"
	case ModeSizeMenu:
		return "SIZE"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "NORMAL"
	}
}

func (m model) statusLine() string {
	switch m.mode {
	case ModeEditing:
		return "Mode: EDIT | type to edit, Enter=newline, Ctrl+V=paste, Esc/Ctrl+S=done"
	case ModeMove:
		return "Mode: MOVE | hjkl/arrows=move, Enter=finish, Esc=cancel"
	case ModeResize:
		return "Mode: RESIZE | hjkl/arrows=resize, Enter=finish, Esc=cancel"
	case ModePrompt:
		label := map[PromptKind]string{
			PromptNewSheet:    "Sheet size",
			PromptRenameSheet: "Rename sheet",
			PromptImportFile:  "Import file",
		}[m.promptKind]
		return fmt.Sprintf("%s: %s", label, m.prompt.View())
	case ModeSheetPicker, ModeSizeMenu:
		return fmt.Sprintf("Mode: %s | j/k=select, Enter=apply, Esc=cancel", m.modeString())
	case ModeConfirm:
		return fmt.Sprintf("Mode: CONFIRM | %s (y/n)", m.confirmMessage())
	}

	status := fmt.Sprintf("Mode: %s | Notes: %d", m.modeString(), len(m.board.notes))
	if p := m.ix.Pending(); p != "" {
		status += " | Connecting from selected note"
	}
	switch {
	case m.errorMessage != "":
		status += " | " + errorStyle.Render("ERROR: "+m.errorMessage)
	case m.successMessage != "":
		status += " | " + okStyle.Render(m.successMessage)
	default:
		status += " | ? for help | q to quit"
	}
	return status
}

var helpLines = []string{
	"stickies help",
	"=============",
	"",
	"Navigation:",
	"  h/←/j/↓/k/↑/l/→  Move cursor (the board pans at the edges)",
	"  Shift+h/j/k/l    Move cursor 2x faster",
	"  Mouse wheel      Pan the board",
	"",
	"Notes:",
	"  a                Add a note at the cursor and edit it",
	"  p                Add a note from the clipboard",
	"  e/Enter          Edit the note under the cursor",
	"  d                Delete the note under the cursor (also click ×)",
	"  m                Move the note (or drag it with the mouse)",
	"  r                Resize the note (or drag ◢)",
	"  c                Cycle the note color (or double click);",
	"                   on empty board, the color of new notes",
	"  y                Copy the note text",
	"  o / O            Branch a child / sibling note",
	"  D                Delete all notes on this sheet",
	"",
	"Connections:",
	"  x                Toggle connect mode, then click two notes",
	"  X                Toggle remove mode, then click a connection",
	"  Space            Click at the cursor",
	"",
	"Sheets:",
	"  s                Pick a sheet",
	"  { / }            Previous / next sheet",
	"  n                New sheet",
	"  R                Rename sheet",
	"  W                Delete sheet",
	"  z                Change sheet size",
	"  E                Convert this sheet to excel size",
	"  A                Convert all biggest sheets to excel",
	"",
	"Export:",
	"  S / Y            Export JSON / YAML",
	"  P / V            Print to PNG / SVG",
	"  T                Export as text",
	"  I                Import a JSON or YAML export",
	"",
	"General:",
	"  t                Toggle light/dark theme",
	"  u / U            Undo / redo",
	"  Esc              Leave connect/remove mode",
	"  ?                Toggle this help",
	"  q/Ctrl+C         Quit",
}

func (m model) helpView() string {
	visibleHeight := max(m.height-1, 1)
	start := min(m.helpScroll, max(len(helpLines)-visibleHeight, 0))
	end := min(start+visibleHeight, len(helpLines))

	result := strings.Join(helpLines[start:end], "\n")
	result += fmt.Sprintf("\nHelp (%d-%d of %d lines) | j/k to scroll, Esc to close", start+1, end, len(helpLines))
	return result
}
