package main

func (m *model) recordAction(actionType ActionType, data interface{}) {
	m.undoStack = append(m.undoStack, Action{Type: actionType, Data: data})
	m.redoStack = m.redoStack[:0]
}

// clearHistory drops undo and redo stacks. History does not survive a sheet switch.
func (m *model) clearHistory() {
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
}

func (m *model) undo() {
	if len(m.undoStack) == 0 {
		m.successMessage = "Nothing to undo"
		return
	}

	lastIndex := len(m.undoStack) - 1
	action := m.undoStack[lastIndex]
	m.undoStack = m.undoStack[:lastIndex]

	var err error
	switch action.Type {
	case ActionAddNote:
		data := action.Data.(NoteData)
		_, err = m.board.DeleteNote(data.Note.ID)
	case ActionDeleteNote:
		data := action.Data.(DeleteNoteData)
		m.board.RestoreNote(data.Note, data.Index, data.Connections)
	case ActionEditNote, ActionResizeNote, ActionMoveNote, ActionRecolorNote:
		data := action.Data.(NoteChangeData)
		err = m.board.ReplaceNote(data.Before)
	case ActionAddConnection:
		data := action.Data.(ConnectionData)
		m.board.removeLastConnection(data.Connection)
	case ActionDeleteConnection:
		data := action.Data.(ConnectionData)
		m.board.restoreConnection(data.Connection, data.Count)
	}
	if err != nil {
		m.logger.Warn("undo failed", "action", action.Type, "error", err)
		m.errorMessage = err.Error()
		return
	}

	m.redoStack = append(m.redoStack, action)
}

func (m *model) redo() {
	if len(m.redoStack) == 0 {
		m.successMessage = "Nothing to redo"
		return
	}

	lastIndex := len(m.redoStack) - 1
	action := m.redoStack[lastIndex]
	m.redoStack = m.redoStack[:lastIndex]

	var err error
	switch action.Type {
	case ActionAddNote:
		data := action.Data.(NoteData)
		m.board.RestoreNote(data.Note, data.Index, nil)
	case ActionDeleteNote:
		data := action.Data.(DeleteNoteData)
		_, err = m.board.DeleteNote(data.Note.ID)
	case ActionEditNote, ActionResizeNote, ActionMoveNote, ActionRecolorNote:
		data := action.Data.(NoteChangeData)
		err = m.board.ReplaceNote(data.After)
	case ActionAddConnection:
		data := action.Data.(ConnectionData)
		m.board.restoreConnection(data.Connection, 1)
	case ActionDeleteConnection:
		data := action.Data.(ConnectionData)
		m.board.RemoveConnection(data.Connection.From, data.Connection.To)
	}
	if err != nil {
		m.logger.Warn("redo failed", "action", action.Type, "error", err)
		m.errorMessage = err.Error()
		return
	}

	m.undoStack = append(m.undoStack, action)
}
