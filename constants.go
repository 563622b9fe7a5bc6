package main

import "time"

type Mode int

const (
	ModeNormal Mode = iota
	ModeEditing
	ModeResize
	ModeMove
	ModePrompt
	ModeSheetPicker
	ModeSizeMenu
	ModeConfirm
)

type PromptKind int

const (
	PromptNewSheet PromptKind = iota
	PromptRenameSheet
	PromptImportFile
)

type ConfirmAction int

const (
	ConfirmClearNotes ConfirmAction = iota
	ConfirmDeleteSheet
	ConfirmConvertAllToExcel
	ConfirmQuit
)

type ExportKind int

const (
	ExportJSON ExportKind = iota
	ExportYAML
	ExportPNG
	ExportSVG
	ExportTXT
)

type ActionType int

const (
	ActionAddNote ActionType = iota
	ActionDeleteNote
	ActionEditNote
	ActionResizeNote
	ActionMoveNote
	ActionRecolorNote
	ActionAddConnection
	ActionDeleteConnection
)

// Storage keys. Per-sheet keys get "_<sheetID>" appended.
const (
	sheetsKey      = "sticky_sheets_v1"
	notesKey       = "sticky_notes_v1"
	connectionsKey = "sticky_notes_connections_v1"
	themeKey       = "sticky_theme_v1"
	activeSheetKey = "sticky_active_sheet_v1"
)

// Board geometry, in board pixels.
const (
	charWidth  = 8.0
	charHeight = 16.0

	defaultNoteWidth  = 200.0
	defaultNoteHeight = 160.0
	minNoteWidth      = 120.0
	minNoteHeight     = 80.0
	minBodyHeight     = 32.0
	headerHeight      = charHeight
	lineHeight        = charHeight
	notePadding       = 8.0
	dragMargin        = 8.0
	anchorInset       = 8.0
	maxCurveLift      = 80.0
	spawnOriginX      = 40.0
	spawnOriginY      = 40.0
	spawnRangeX       = 200.0
	spawnRangeY       = 140.0
	branchGap         = 48.0
)

const (
	defaultNoteText  = "New note"
	newSheetNoteText = "New sheet — start planning here"
)

const (
	frameInterval     = 16 * time.Millisecond
	doubleClickWindow = 400 * time.Millisecond
	printSettleDelay  = 600 * time.Millisecond
)
