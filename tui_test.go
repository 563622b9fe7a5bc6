package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tuiFixture is a 120x30 terminal over a sheet holding two notes.
// On screen (top bar included) alpha spans cells x 10-24, y 3-7 and beta
// spans x 60-74, y 3-7.
type tuiFixture struct {
	d     *driver
	board *Board
	store Store
	alpha Note
	beta  Note
}

func newTUIFixture(t *testing.T, setup ...func(*model)) *tuiFixture {
	t.Helper()
	store := newMemoryStore()
	b := newTestBoard(t, store)
	b.ClearNotes()
	f := &tuiFixture{board: b, store: store}
	f.alpha = addNoteAt(t, b, 80, 32, "alpha")
	f.beta = addNoteAt(t, b, 480, 32, "beta")

	m := newTestModel(t, b)
	for _, fn := range setup {
		fn(&m)
	}
	f.d = newDriver(t, m, 120, 30)
	return f
}

func cursorAt(x, y int) func(*model) {
	return func(m *model) { m.cursorX, m.cursorY = x, y }
}

func (f *tuiFixture) storedNote(t *testing.T, id string) Note {
	t.Helper()
	for _, n := range storedList[Note](t, f.store, sheetKey(notesKey, f.board.ActiveSheetID())) {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("note %s not stored", id)
	return Note{}
}

func TestViewShowsBoard(t *testing.T) {
	f := newTUIFixture(t)
	out := f.d.view()
	assert.Contains(t, out, "Planning")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "Mode: NORMAL | Notes: 2")
	assert.Len(t, strings.Split(out, "\n"), 30)
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := newTestModel(t, newTestBoard(t, nil))
	assert.Empty(t, m.View())
}

func TestHelpToggle(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('?')
	assert.Contains(t, f.d.view(), "stickies help")
	f.d.press('j')
	assert.Equal(t, 1, f.d.m().helpScroll)
	f.d.key(tea.KeyEsc)
	assert.False(t, f.d.m().help)
}

func TestAddAndEditNote(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('a')
	m := f.d.m()
	require.Equal(t, ModeEditing, m.mode)
	require.Len(t, f.board.Notes(), 3)
	added := f.board.Notes()[2]
	assert.Equal(t, dragMargin, added.X, "placed at the cursor")

	for range len(defaultNoteText) {
		f.d.key(tea.KeyBackspace)
	}
	f.d.typeText("Buy milk\nand eggs")
	assert.Equal(t, "Buy milk\nand eggs", f.storedNote(t, added.ID).Content, "edits persist as typed")

	f.d.key(tea.KeyEsc)
	assert.Equal(t, ModeNormal, f.d.m().mode)
	assert.Len(t, f.d.m().undoStack, 2)

	f.d.press('u')
	n, ok := f.board.Note(added.ID)
	require.True(t, ok)
	assert.Equal(t, defaultNoteText, n.Content)

	f.d.press('u')
	_, ok = f.board.Note(added.ID)
	assert.False(t, ok)

	f.d.press('U')
	_, ok = f.board.Note(added.ID)
	assert.True(t, ok)
}

func TestEditCursorKeys(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('e')
	require.Equal(t, ModeEditing, f.d.m().mode)
	require.Equal(t, f.alpha.ID, f.d.m().selectedNote)

	f.d.key(tea.KeyHome)
	f.d.press('>')
	f.d.key(tea.KeyEnd)
	f.d.press('!')
	f.d.key(tea.KeyLeft)
	f.d.key(tea.KeyDelete)
	f.d.key(tea.KeyCtrlS)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, ">alpha", n.Content)
}

func TestEditWithoutChangesRecordsNothing(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.key(tea.KeyEnter)
	f.d.key(tea.KeyEsc)
	assert.Empty(t, f.d.m().undoStack)
}

func TestKeyOnEmptyCellReportsError(t *testing.T) {
	f := newTUIFixture(t, cursorAt(40, 20))
	f.d.press('d')
	assert.Equal(t, "No note under cursor", f.d.m().errorMessage)
	assert.Len(t, f.board.Notes(), 2)
}

func TestColorKeyOnEmptyCellSetsNewNoteColor(t *testing.T) {
	f := newTUIFixture(t, cursorAt(40, 20))
	f.d.press('c')
	f.d.press('c')
	assert.Equal(t, "New notes: green", f.d.m().successMessage)
	assert.Contains(t, f.d.view(), "new green")
	assert.Equal(t, ColorYellow, f.storedNote(t, f.alpha.ID).Color, "no note was recolored")

	f.d.press('a')
	added := f.board.Notes()[2]
	assert.Equal(t, ColorGreen, added.Color)
	assert.Equal(t, ColorGreen, f.storedNote(t, added.ID).Color)
}

func TestDragPersistsOnRelease(t *testing.T) {
	f := newTUIFixture(t)
	_, err := f.board.AddConnection(f.alpha.ID, f.beta.ID)
	require.NoError(t, err)

	f.d.mouse(tea.MouseActionPress, 15, 4)
	require.NotNil(t, f.d.m().drag)
	f.d.mouse(tea.MouseActionMotion, 25, 9)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 160.0, n.X)
	assert.Equal(t, 112.0, n.Y)
	assert.Equal(t, 80.0, f.storedNote(t, f.alpha.ID).X, "nothing is written mid-drag")

	m := f.d.m()
	assert.True(t, m.frameScheduled)
	require.Len(t, m.overlay, 1)
	assert.Equal(t, Point{88, 40}, m.overlay[0].Start, "curves wait for the next frame")

	f.d.send(frameMsg{})
	m = f.d.m()
	assert.False(t, m.frameScheduled)
	assert.Equal(t, Point{168, 120}, m.overlay[0].Start)

	f.d.mouse(tea.MouseActionRelease, 25, 9)
	assert.Nil(t, f.d.m().drag)
	assert.Nil(t, f.d.m().overlay)
	assert.Equal(t, 160.0, f.storedNote(t, f.alpha.ID).X)

	f.d.press('u')
	n, _ = f.board.Note(f.alpha.ID)
	assert.Equal(t, 80.0, n.X)
}

func TestDragCoalescesFrames(t *testing.T) {
	f := newTUIFixture(t)
	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionMotion, 16, 4)
	f.d.mouse(tea.MouseActionMotion, 17, 4)
	f.d.mouse(tea.MouseActionMotion, 18, 4)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 104.0, n.X, "every motion moves the note")
	assert.True(t, f.d.m().frameScheduled)
}

func TestResizeDrag(t *testing.T) {
	f := newTUIFixture(t)
	f.d.mouse(tea.MouseActionPress, 24, 7)
	require.NotNil(t, f.d.m().drag)
	require.True(t, f.d.m().drag.resize)

	f.d.mouse(tea.MouseActionMotion, 34, 9)
	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 200.0, n.W)
	assert.Equal(t, 112.0, n.H)
	assert.Equal(t, 80.0, n.X)

	f.d.mouse(tea.MouseActionRelease, 34, 9)
	require.Len(t, f.d.m().undoStack, 1)
	assert.Equal(t, ActionResizeNote, f.d.m().undoStack[0].Type)
}

func TestDoubleClickRecolors(t *testing.T) {
	clock := testNow
	f := newTUIFixture(t, func(m *model) {
		m.now = func() time.Time { return clock }
	})

	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionRelease, 15, 4)
	clock = clock.Add(300 * time.Millisecond)
	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionRelease, 15, 4)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, ColorPink, n.Color)
	assert.Equal(t, ColorPink, f.storedNote(t, f.alpha.ID).Color)
}

func TestSlowClicksDoNotRecolor(t *testing.T) {
	clock := testNow
	f := newTUIFixture(t, func(m *model) {
		m.now = func() time.Time { return clock }
	})

	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionRelease, 15, 4)
	clock = clock.Add(time.Second)
	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionRelease, 15, 4)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, ColorYellow, n.Color)
}

func TestConnectModeWithMouse(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('x')
	require.True(t, f.d.m().ix.ConnectMode())

	f.d.mouse(tea.MouseActionPress, 15, 4)
	assert.Equal(t, f.alpha.ID, f.d.m().ix.Pending())
	assert.Contains(t, f.d.view(), "┏", "the pending note is highlighted")

	f.d.mouse(tea.MouseActionPress, 65, 4)
	assert.Equal(t, []Connection{{From: f.alpha.ID, To: f.beta.ID}}, f.board.Connections())
	assert.Nil(t, f.d.m().drag, "connect clicks never drag")

	// Same note twice cancels.
	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionPress, 15, 4)
	assert.Empty(t, f.d.m().ix.Pending())
	assert.Len(t, f.board.Connections(), 1)

	// Duplicates are allowed; undo removes only the newest copy.
	f.d.mouse(tea.MouseActionPress, 15, 4)
	f.d.mouse(tea.MouseActionPress, 65, 4)
	assert.Len(t, f.board.Connections(), 2)
	f.d.press('u')
	assert.Len(t, f.board.Connections(), 1)

	f.d.key(tea.KeyEsc)
	assert.False(t, f.d.m().ix.ConnectMode())
}

func TestConnectModeWithKeyboard(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('x')
	f.d.key(tea.KeySpace)
	for range 50 {
		f.d.press('l')
	}
	f.d.key(tea.KeySpace)
	assert.Len(t, f.board.Connections(), 1)
}

func TestRemoveModeDeletesClickedLink(t *testing.T) {
	f := newTUIFixture(t)
	for range 2 {
		_, err := f.board.AddConnection(f.alpha.ID, f.beta.ID)
		require.NoError(t, err)
	}
	f.d.press('X')
	f.d.mouse(tea.MouseActionPress, 36, 1)
	assert.Empty(t, f.board.Connections())

	f.d.press('u')
	assert.Len(t, f.board.Connections(), 2)
}

func TestDeleteControlRemovesNote(t *testing.T) {
	f := newTUIFixture(t)
	f.d.mouse(tea.MouseActionPress, 23, 3)
	_, ok := f.board.Note(f.alpha.ID)
	assert.False(t, ok)

	f.d.press('u')
	assert.Equal(t, f.alpha.ID, f.board.Notes()[0].ID)
}

func TestDeletingPendingNoteClearsPending(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('x')
	f.d.key(tea.KeySpace)
	require.Equal(t, f.alpha.ID, f.d.m().ix.Pending())
	f.d.press('d')
	assert.Empty(t, f.d.m().ix.Pending())
	assert.True(t, f.d.m().ix.ConnectMode())
}

func TestKeyboardMoveMode(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('m')
	require.Equal(t, ModeMove, f.d.m().mode)
	f.d.keys("lll")
	f.d.press('J')

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 104.0, n.X)
	assert.Equal(t, 64.0, n.Y)
	assert.Equal(t, 80.0, f.storedNote(t, f.alpha.ID).X)

	f.d.key(tea.KeyEnter)
	assert.Equal(t, 104.0, f.storedNote(t, f.alpha.ID).X)
	assert.Equal(t, ModeNormal, f.d.m().mode)
}

func TestKeyboardMoveCancel(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('m')
	f.d.keys("llll")
	f.d.key(tea.KeyEsc)
	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 80.0, n.X)
	assert.Empty(t, f.d.m().undoStack)
}

func TestKeyboardResizeMode(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('r')
	f.d.keys("ll")
	f.d.press('j')
	f.d.key(tea.KeyEnter)

	n, _ := f.board.Note(f.alpha.ID)
	assert.Equal(t, 136.0, n.W)
	assert.Equal(t, 96.0, n.H)
	assert.Len(t, f.d.m().undoStack, 1)
}

func TestBranchKeys(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('o')
	require.Equal(t, ModeEditing, f.d.m().mode)
	f.d.key(tea.KeyEsc)
	require.Len(t, f.board.Connections(), 1)
	assert.Equal(t, f.alpha.ID, f.board.Connections()[0].From)

	f.d.press('u')
	f.d.press('u')
	assert.Empty(t, f.board.Connections())
	assert.Len(t, f.board.Notes(), 2)
}

func TestPasteAsNote(t *testing.T) {
	f := newTUIFixture(t, func(m *model) {
		m.readClipboard = func() (string, error) { return "<p>Hello <b>there</b></p>", nil }
	})
	f.d.press('p')
	notes := f.board.Notes()
	require.Len(t, notes, 3)
	assert.Equal(t, "Hello there", notes[2].Content)
}

func TestPasteEmptyClipboard(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('p')
	assert.Equal(t, "Clipboard is empty", f.d.m().errorMessage)
	assert.Len(t, f.board.Notes(), 2)
}

func TestCopyNoteText(t *testing.T) {
	var copied string
	f := newTUIFixture(t, cursorAt(15, 3), func(m *model) {
		m.writeClipboard = func(s string) error { copied = s; return nil }
	})
	f.d.press('y')
	assert.Equal(t, "alpha", copied)
}

func TestClearNotesNeedsConfirmation(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('D')
	require.Equal(t, ModeConfirm, f.d.m().mode)
	assert.Contains(t, f.d.view(), "Delete all notes?")
	f.d.press('n')
	assert.Len(t, f.board.Notes(), 2)

	f.d.press('D')
	f.d.press('y')
	assert.Empty(t, f.board.Notes())
}

func TestConfirmationsCanBeDisabled(t *testing.T) {
	f := newTUIFixture(t, func(m *model) { m.config.Confirmations = false })
	f.d.press('D')
	assert.Equal(t, ModeNormal, f.d.m().mode)
	assert.Empty(t, f.board.Notes())

	f.d.press('q')
	assert.True(t, f.d.quitting)
}

func TestQuitConfirmation(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('q')
	assert.False(t, f.d.quitting)
	f.d.press('y')
	assert.True(t, f.d.quitting)
}

func TestSheetCycleResetsState(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	f.d.press('c')
	f.d.press('x')
	f.d.key(tea.KeySpace)
	require.NotEmpty(t, f.d.m().undoStack)

	f.d.press('}')
	m := f.d.m()
	assert.Equal(t, "s_2", f.board.ActiveSheetID())
	assert.Empty(t, m.undoStack)
	assert.False(t, m.ix.ConnectMode())
	assert.Empty(t, m.ix.Pending())

	f.d.press('{')
	assert.Equal(t, "s_1", f.board.ActiveSheetID())
}

func TestPansArePerSheet(t *testing.T) {
	f := newTUIFixture(t)
	f.d.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	f.d.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelRight})
	assert.Equal(t, point{X: 6, Y: 3}, f.d.pan())

	f.d.press('}')
	assert.Equal(t, point{}, f.d.pan())
	f.d.press('{')
	assert.Equal(t, point{X: 6, Y: 3}, f.d.pan())
}

func TestCursorPansAtEdges(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('h')
	assert.Equal(t, point{}, f.d.pan(), "cannot pan past the board")

	for range 30 {
		f.d.press('j')
	}
	m := f.d.m()
	assert.Equal(t, m.boardHeight()-1, m.cursorY)
	assert.Equal(t, 30-m.boardHeight()+1, m.pan().Y)
}

func TestSheetPicker(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('s')
	require.Equal(t, ModeSheetPicker, f.d.m().mode)
	assert.Contains(t, f.d.view(), "DSA (biggest)")
	f.d.press('j')
	f.d.key(tea.KeyEnter)
	assert.Equal(t, "s_2", f.board.ActiveSheetID())
}

func TestNewSheetPrompt(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('n')
	require.Equal(t, ModePrompt, f.d.m().mode)
	f.d.key(tea.KeyCtrlU)
	f.d.keys("small")
	f.d.key(tea.KeyEnter)

	s := f.board.ActiveSheet()
	assert.Equal(t, "Sheet 3", s.Name)
	assert.Equal(t, SizeSmall, s.Size)
}

func TestRenamePrompt(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('R')
	f.d.key(tea.KeyCtrlU)
	f.d.keys("Roadmap")
	f.d.key(tea.KeyEnter)
	assert.Equal(t, "Roadmap", f.board.ActiveSheet().Name)

	f.d.press('R')
	f.d.key(tea.KeyCtrlU)
	f.d.key(tea.KeyEnter)
	assert.Equal(t, ErrEmptyName.Error(), f.d.m().errorMessage)
	assert.Equal(t, "Roadmap", f.board.ActiveSheet().Name)
}

func TestSizeMenu(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('z')
	require.Equal(t, ModeSizeMenu, f.d.m().mode)
	assert.Equal(t, 3, f.d.m().sizeIndex)
	f.d.press('k')
	f.d.press('k')
	f.d.key(tea.KeyEnter)
	assert.Equal(t, SizeMedium, f.board.ActiveSheet().Size)
}

func TestDeleteSheetKey(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('W')
	f.d.press('y')
	assert.Equal(t, "s_2", f.board.ActiveSheetID())
	assert.Len(t, f.board.Sheets(), 1)
}

func TestConvertAllBiggestKey(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('A')
	assert.Contains(t, f.d.view(), "Convert 2 sheet(s) from biggest → excel?")
	f.d.press('y')
	assert.Zero(t, f.board.BiggestCount())

	f.d.press('A')
	assert.Equal(t, ModeNormal, f.d.m().mode)
	assert.Equal(t, ErrNoBiggestSheets.Error(), f.d.m().errorMessage)
}

func TestExportKey(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('S')
	msg := f.d.m().successMessage
	require.True(t, strings.HasPrefix(msg, "Exported "), msg)
	assert.FileExists(t, strings.TrimPrefix(msg, "Exported "))
}

func TestPrintOpensViewer(t *testing.T) {
	var opened string
	f := newTUIFixture(t, func(m *model) {
		m.config.OpenAfterExport = true
		m.openFile = func(path string) error { opened = path; return nil }
	})
	f.d.press('V')
	path := strings.TrimPrefix(f.d.m().successMessage, "Exported ")
	assert.Empty(t, opened, "the viewer waits for the settle delay")

	f.d.send(openFileMsg{path: path})
	assert.Equal(t, path, opened)
}

func TestViewerFailureIsReported(t *testing.T) {
	f := newTUIFixture(t, func(m *model) {
		m.openFile = func(string) error { return errors.New("no viewer") }
	})
	f.d.send(openFileMsg{path: "x.png"})
	assert.Equal(t, "no viewer", f.d.m().errorMessage)
}

func TestImportPrompt(t *testing.T) {
	f := newTUIFixture(t)
	path, err := f.board.ExportSheet("s_1", ExportYAML, t.TempDir())
	require.NoError(t, err)

	f.d.press('I')
	f.d.keys(path)
	f.d.key(tea.KeyEnter)

	assert.Len(t, f.board.Sheets(), 3)
	assert.Equal(t, "Imported Planning", f.d.m().successMessage)
	assert.Len(t, f.board.Notes(), 2)
}

func TestThemeKey(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('t')
	assert.Equal(t, ThemeDark, f.board.Theme())
	assert.Equal(t, "Theme: dark", f.d.m().successMessage)
}

func TestStoreChangeReloadsOnlyWhenIdle(t *testing.T) {
	f := newTUIFixture(t, cursorAt(15, 3))
	other := newTestBoard(t, f.store)

	f.d.press('m')
	other.ClearNotes()
	f.d.send(storeChangedMsg{key: sheetKey(notesKey, "s_1")})
	assert.Len(t, f.board.Notes(), 2, "ignored while moving")

	// Cancelling the move writes this process's notes back.
	f.d.key(tea.KeyEsc)
	other.ClearNotes()
	f.d.send(storeChangedMsg{key: sheetKey(notesKey, "s_1")})
	assert.Empty(t, f.board.Notes())
}

func TestUndoRedoEmptyStacks(t *testing.T) {
	f := newTUIFixture(t)
	f.d.press('u')
	assert.Equal(t, "Nothing to undo", f.d.m().successMessage)
	f.d.press('U')
	assert.Equal(t, "Nothing to redo", f.d.m().successMessage)
}

func TestExportWriteFailureIsShown(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f := newTUIFixture(t, func(m *model) { m.config.SaveDirectory = blocker })
	f.d.press('T')
	assert.NotEmpty(t, f.d.m().errorMessage)
}
