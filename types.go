package main

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
)

// Note is a positioned, sized, colored block of text on a sheet.
// X/Y/W/H are board pixels.
type Note struct {
	ID      string  `json:"id" yaml:"id"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	W       float64 `json:"w" yaml:"w"`
	H       float64 `json:"h" yaml:"h"`
	Color   Color   `json:"color" yaml:"color"`
	Content string  `json:"content" yaml:"content"`
}

// Connection links two notes of the same sheet. Duplicates are allowed.
type Connection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func (c Connection) touches(id string) bool {
	return c.From == id || c.To == id
}

type Sheet struct {
	ID   string       `json:"id" yaml:"id"`
	Name string       `json:"name" yaml:"name"`
	Size SizeCategory `json:"size,omitempty" yaml:"size,omitempty"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func parseTheme(s string) Theme {
	if s == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// Color is a palette entry stored as its hex value.
type Color string

const (
	ColorYellow Color = "#f9f871"
	ColorPink   Color = "#ffd1dc"
	ColorGreen  Color = "#c8f7c5"
	ColorBlue   Color = "#c9ddff"
	ColorPeach  Color = "#f7e6c2"
)

// palette is cycled in this order by recolor.
var palette = []Color{ColorYellow, ColorPink, ColorGreen, ColorBlue, ColorPeach}

func (c Color) Name() string {
	switch c {
	case ColorPink:
		return "pink"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorPeach:
		return "peach"
	default:
		return "yellow"
	}
}

// Next returns the following palette entry. Unknown colors restart the cycle.
func (c Color) Next() Color {
	idx := -1
	for i, p := range palette {
		if p == c {
			idx = i
			break
		}
	}
	return palette[(idx+1)%len(palette)]
}

// parseColor accepts a palette name or hex value.
func parseColor(s string) (Color, bool) {
	for _, p := range palette {
		if s == string(p) || s == p.Name() {
			return p, true
		}
	}
	return "", false
}

// Point is a position in board pixels.
type Point struct {
	X, Y float64
}

// point is a terminal cell position.
type point struct {
	X, Y int
}

type model struct {
	width          int
	height         int
	cursorX        int
	cursorY        int
	pans           map[string]point
	board          *Board
	ix             *Interaction
	mode           Mode
	help           bool
	helpScroll     int
	selectedNote   string
	newColor       Color
	editText       string
	editCursorPos  int
	original       Note
	drag           *dragState
	frameScheduled bool
	overlay        []LinkView
	lastClickNote  string
	lastClickAt    time.Time
	prompt         textinput.Model
	promptKind     PromptKind
	pickerIndex    int
	sizeIndex      int
	confirmAction  ConfirmAction
	undoStack      []Action
	redoStack      []Action
	errorMessage   string
	successMessage string
	config         *Config
	logger         *slog.Logger
	now            func() time.Time
	readClipboard  func() (string, error)
	writeClipboard func(string) error
	openFile       func(path string) error
}

// dragState tracks an in-progress pointer drag of a note or its resize handle.
type dragState struct {
	noteID  string
	resize  bool
	offsetX float64
	offsetY float64
	moved   bool
}

// Action is one undoable step. Data holds the payload type matching Type.
type Action struct {
	Type ActionType
	Data interface{}
}

type NoteData struct {
	Note  Note
	Index int
}

type DeleteNoteData struct {
	Note        Note
	Index       int
	Connections []Connection
}

// NoteChangeData covers edit, move, resize and recolor: the whole note is swapped.
type NoteChangeData struct {
	Before Note
	After  Note
}

type ConnectionData struct {
	Connection Connection
	Count      int
}
