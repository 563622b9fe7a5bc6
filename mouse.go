package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.help || (m.mode != ModeNormal && m.drag == nil) {
		return m, nil
	}
	x, y := msg.X, msg.Y-topBarRows

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.clearMessages()
			if y < 0 || y >= m.boardHeight() {
				return m, nil
			}
			m.cursorX, m.cursorY = x, y
			return m, m.press(x, y)
		case tea.MouseButtonWheelUp:
			m.handlePan(0, -3)
		case tea.MouseButtonWheelDown:
			m.handlePan(0, 3)
		case tea.MouseButtonWheelLeft:
			m.handlePan(-6, 0)
		case tea.MouseButtonWheelRight:
			m.handlePan(6, 0)
		}
		return m, nil

	case tea.MouseActionMotion:
		if m.drag == nil {
			return m, nil
		}
		return m, m.dragTo(x, y)

	case tea.MouseActionRelease:
		if m.drag != nil {
			m.endDrag()
		}
	}
	return m, nil
}

// press handles a left press on a board cell: controls first, then the
// connect/remove modes, then double click, and otherwise starts a drag.
func (m *model) press(x, y int) tea.Cmd {
	h := m.canvas().HitAt(x, y)
	switch h.kind {
	case hitDelete:
		m.deleteNote(h.noteID)
		return nil
	case hitResize:
		m.startDrag(h.noteID, true, x, y)
		return nil
	case hitLink:
		m.clickLink(h.link)
		return nil
	case hitNote, hitKnot:
	default:
		return nil
	}

	if m.ix.ConnectMode() {
		m.clickNote(h.noteID)
		return nil
	}

	now := m.now()
	if m.lastClickNote == h.noteID && now.Sub(m.lastClickAt) <= doubleClickWindow {
		m.lastClickNote = ""
		m.recolorNote(h.noteID)
		return nil
	}
	m.lastClickNote = h.noteID
	m.lastClickAt = now
	m.startDrag(h.noteID, false, x, y)
	return nil
}

// click is the keyboard equivalent of a press without dragging.
func (m *model) click(x, y int) {
	h := m.canvas().HitAt(x, y)
	switch h.kind {
	case hitNote, hitKnot:
		if m.ix.ConnectMode() {
			m.clickNote(h.noteID)
		}
	case hitLink:
		m.clickLink(h.link)
	case hitDelete:
		m.deleteNote(h.noteID)
	}
}

func (m *model) clickNote(id string) {
	from := m.ix.Pending()
	outcome, err := m.ix.ClickNote(m.board, id)
	if err != nil {
		if !errors.Is(err, ErrNoteNotFound) {
			m.fail("connect", err)
		}
		return
	}
	switch outcome {
	case ConnectPending:
		m.successMessage = "Pick the note to connect to"
	case ConnectCancelled:
		m.successMessage = "Connection cancelled"
	case ConnectCreated:
		m.recordAction(ActionAddConnection, ConnectionData{Connection: Connection{From: from, To: id}, Count: 1})
		m.successMessage = "Connected"
	}
}

func (m *model) clickLink(c Connection) {
	if n := m.ix.ClickLink(m.board, c); n > 0 {
		m.recordAction(ActionDeleteConnection, ConnectionData{Connection: c, Count: n})
		m.successMessage = "Connection removed"
	}
}

func (m *model) startDrag(id string, resize bool, x, y int) {
	n, ok := m.board.Note(id)
	if !ok {
		return
	}
	px, py := m.pointerPx(x, y)
	m.original = n
	m.drag = &dragState{noteID: id, resize: resize}
	if resize {
		m.drag.offsetX, m.drag.offsetY = px-(n.X+n.W), py-(n.Y+n.H)
	} else {
		m.drag.offsetX, m.drag.offsetY = px-n.X, py-n.Y
	}
	m.overlay = buildLinks(m.board.Notes(), m.board.Connections())
}

// dragTo applies pointer motion. Notes follow the pointer immediately; the
// connection overlay is recomputed at most once per frame.
func (m *model) dragTo(x, y int) tea.Cmd {
	px, py := m.pointerPx(x, y)
	n, ok := m.board.Note(m.drag.noteID)
	if !ok {
		m.drag = nil
		return nil
	}
	var err error
	if m.drag.resize {
		_, err = m.board.ResizeNote(n.ID, px-m.drag.offsetX-n.X, py-m.drag.offsetY-n.Y)
	} else {
		_, err = m.board.MoveNote(n.ID, px-m.drag.offsetX, py-m.drag.offsetY)
	}
	if err != nil {
		m.fail("drag", err)
		return nil
	}
	m.drag.moved = true
	if m.frameScheduled {
		return nil
	}
	m.frameScheduled = true
	return frameTick()
}

// endDrag finishes a drag. Moves are persisted here, once.
func (m *model) endDrag() {
	d := m.drag
	m.drag = nil
	m.overlay = nil
	if !d.moved {
		return
	}
	n, ok := m.board.Note(d.noteID)
	if !ok {
		return
	}
	if d.resize {
		m.recordAction(ActionResizeNote, NoteChangeData{Before: m.original, After: n})
		return
	}
	m.board.Save()
	m.recordAction(ActionMoveNote, NoteChangeData{Before: m.original, After: n})
	m.lastClickNote = ""
}
