package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type hitKind int

const (
	hitNone hitKind = iota
	hitNote
	hitDelete
	hitResize
	hitLink
	hitKnot
)

// hit is what sits under a cell: a note part or a connection.
type hit struct {
	kind   hitKind
	noteID string
	link   Connection
}

// paint is the colour of one cell. Comparable so runs of equal paint render together.
type paint struct {
	fg   string
	bg   string
	bold bool
}

type border struct {
	tl, tr, bl, br, h, v rune
}

var (
	roundBorder  = border{'╭', '╮', '╰', '╯', '─', '│'}
	heavyBorder  = border{'┏', '┓', '┗', '┛', '━', '┃'}
	doubleBorder = border{'╔', '╗', '╚', '╝', '═', '║'}
)

const (
	linkColor    = "#dc143c"
	noteInk      = "#222222"
	pendingColor = "#d9480f"
)

type themePaints struct {
	board   paint
	outside paint
	cursor  paint
}

func themeColors(t Theme) themePaints {
	if t == ThemeDark {
		return themePaints{
			board:   paint{fg: "#cccccc", bg: "#1e1e1e"},
			outside: paint{fg: "#444444", bg: "#111111"},
			cursor:  paint{fg: "#1e1e1e", bg: "#cccccc"},
		}
	}
	return themePaints{
		board:   paint{fg: "#333333", bg: "#fafafa"},
		outside: paint{fg: "#bbbbbb", bg: "#e4e4e4"},
		cursor:  paint{fg: "#fafafa", bg: "#333333"},
	}
}

// Canvas is a viewport-sized cell grid. Draw a BoardView into it, then read
// Lines for the terminal or PlainLines for text output. HitAt answers what is
// under a cell for mouse handling.
type Canvas struct {
	width  int
	height int
	panX   int
	panY   int
	colors themePaints
	cells  [][]rune
	paints [][]paint
	hits   [][]hit
	styles map[paint]lipgloss.Style
}

func NewCanvas(width, height, panX, panY int, theme Theme) *Canvas {
	width = max(width, 1)
	height = max(height, 1)
	c := &Canvas{
		width:  width,
		height: height,
		panX:   panX,
		panY:   panY,
		colors: themeColors(theme),
		cells:  make([][]rune, height),
		paints: make([][]paint, height),
		hits:   make([][]hit, height),
		styles: make(map[paint]lipgloss.Style),
	}
	for y := range height {
		c.cells[y] = make([]rune, width)
		c.paints[y] = make([]paint, width)
		c.hits[y] = make([]hit, width)
	}
	return c
}

// boardCells is how many cells a board of the given pixel size covers.
func boardCells(w, h float64) (int, int) {
	return int(math.Ceil(w / charWidth)), int(math.Ceil(h / charHeight))
}

// toCell converts board pixels to a viewport cell.
func (c *Canvas) toCell(p Point) (int, int) {
	return int(math.Floor(p.X/charWidth)) - c.panX, int(math.Floor(p.Y/charHeight)) - c.panY
}

func (c *Canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// wideTail fills the cell under the right half of a double-width rune.
const wideTail rune = -1

func (c *Canvas) set(x, y int, r rune, p paint) {
	if !c.inside(x, y) {
		return
	}
	row := c.cells[y]
	if row[x] == wideTail && x > 0 {
		row[x-1] = ' '
	}
	if x+1 < c.width && row[x+1] == wideTail {
		row[x+1] = ' '
	}
	row[x] = r
	c.paints[y][x] = p
}

// put writes r at its display width and returns the cells it covers.
// Zero-width runes are dropped; a wide rune cut by the viewport edge is blanked.
func (c *Canvas) put(x, y int, r rune, p paint) int {
	w := runewidth.RuneWidth(r)
	if w < 2 {
		if w == 1 {
			c.set(x, y, r, p)
		}
		return w
	}
	if !c.inside(x, y) || !c.inside(x+1, y) {
		c.set(x, y, ' ', p)
		c.set(x+1, y, ' ', p)
		return w
	}
	c.set(x, y, r, p)
	c.set(x+1, y, wideTail, p)
	return w
}

func rowString(cells []rune) string {
	var sb strings.Builder
	for _, r := range cells {
		if r != wideTail {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (c *Canvas) mark(x, y int, h hit) {
	if c.inside(x, y) {
		c.hits[y][x] = h
	}
}

// Draw rasterises v: background, curves, notes, then knots on top.
func (c *Canvas) Draw(v BoardView) {
	c.colors = themeColors(v.Theme)
	bw, bh := boardCells(v.Width, v.Height)
	for y := range c.height {
		for x := range c.width {
			bx, by := x+c.panX, y+c.panY
			p := c.colors.outside
			r := '·'
			if bx >= 0 && by >= 0 && bx < bw && by < bh {
				p, r = c.colors.board, ' '
			}
			c.cells[y][x] = r
			c.paints[y][x] = p
			c.hits[y][x] = hit{}
		}
	}
	for _, l := range v.Links {
		c.drawLink(l)
	}
	for _, n := range v.Notes {
		c.drawNote(n)
	}
	byID := make(map[string]NoteView, len(v.Notes))
	for _, n := range v.Notes {
		byID[n.ID] = n
	}
	for _, l := range v.Links {
		for _, p := range []struct {
			at Point
			id string
		}{{l.Start, l.From}, {l.End, l.To}} {
			x, y := c.toCell(p.at)
			c.set(x, y, '●', paint{fg: linkColor, bg: c.noteBg(byID[p.id])})
			c.mark(x, y, hit{kind: hitKnot, noteID: p.id})
		}
	}
}

func (c *Canvas) noteBg(n NoteView) string {
	if n.ID == "" {
		return c.colors.board.bg
	}
	return string(n.Color)
}

func (c *Canvas) drawLink(l LinkView) {
	pts := l.Samples(charWidth / 2)
	for i, p := range pts {
		x, y := c.toCell(p)
		if !c.inside(x, y) {
			continue
		}
		next := pts[min(i+1, len(pts)-1)]
		prev := pts[max(i-1, 0)]
		c.set(x, y, lineRune((next.X-prev.X)/charWidth, (next.Y-prev.Y)/charHeight),
			paint{fg: linkColor, bg: c.paints[y][x].bg})
		c.mark(x, y, hit{kind: hitLink, link: l.Connection()})
	}
}

// lineRune picks a box-drawing character for a direction given in cells.
func lineRune(dx, dy float64) rune {
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ay <= ax/2:
		return '─'
	case ax <= ay/2:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// noteRect is the cell rectangle covered by a note, inclusive.
func (c *Canvas) noteRect(n NoteView) (x0, y0, x1, y1 int) {
	x0, y0 = c.toCell(Point{n.X, n.Y})
	x1 = int(math.Ceil((n.X+n.W)/charWidth)) - 1 - c.panX
	y1 = int(math.Ceil((n.Y+n.H)/charHeight)) - 1 - c.panY
	return x0, y0, max(x1, x0+2), max(y1, y0+2)
}

func (c *Canvas) drawNote(n NoteView) {
	x0, y0, x1, y1 := c.noteRect(n)
	b, edge := roundBorder, noteInk
	switch {
	case n.Pending:
		b, edge = heavyBorder, pendingColor
	case n.Dragging, n.Selected:
		b = doubleBorder
	}
	body := paint{fg: noteInk, bg: string(n.Color)}
	frame := paint{fg: edge, bg: string(n.Color), bold: n.Pending}

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			r := ' '
			p := body
			switch {
			case y == y0 && x == x0:
				r, p = b.tl, frame
			case y == y0 && x == x1:
				r, p = b.tr, frame
			case y == y1 && x == x0:
				r, p = b.bl, frame
			case y == y1 && x == x1:
				r, p = b.br, frame
			case y == y0 || y == y1:
				r, p = b.h, frame
			case x == x0 || x == x1:
				r, p = b.v, frame
			}
			c.set(x, y, r, p)
			c.mark(x, y, hit{kind: hitNote, noteID: n.ID})
		}
	}

	for i, line := range n.Lines {
		y := y0 + 1 + i
		if y >= y1 {
			break
		}
		x := x0 + 1
		for _, r := range line {
			if x+runewidth.RuneWidth(r) > x1 {
				break
			}
			x += c.put(x, y, r, body)
		}
	}

	c.set(x1-1, y0, '×', paint{fg: noteInk, bg: string(n.Color), bold: true})
	c.mark(x1-1, y0, hit{kind: hitDelete, noteID: n.ID})
	c.set(x1, y1, '◢', frame)
	c.mark(x1, y1, hit{kind: hitResize, noteID: n.ID})
}

// DrawCaret marks the text cursor of a note being edited.
func (c *Canvas) DrawCaret(n NoteView, text string, pos int) {
	runes := []rune(text)
	pos = max(0, min(pos, len(runes)))
	cols := textColumns(n.W)
	lines := wrapText(string(runes[:pos]), cols)
	row := len(lines) - 1
	col := runewidth.StringWidth(lines[row])
	if col >= cols {
		row, col = row+1, 0
	}
	x0, y0, x1, y1 := c.noteRect(n)
	x, y := x0+1+col, y0+1+row
	if x < x1 && y < y1 {
		c.set(x, y, '█', paint{fg: noteInk, bg: string(n.Color)})
	}
}

// DrawCursor inverts the cell under the keyboard cursor.
func (c *Canvas) DrawCursor(x, y int) {
	if !c.inside(x, y) {
		return
	}
	c.paints[y][x] = c.colors.cursor
	if c.cells[y][x] == ' ' || c.cells[y][x] == '·' {
		c.cells[y][x] = '+'
	}
}

// HitAt reports what is drawn at viewport cell (x, y).
func (c *Canvas) HitAt(x, y int) hit {
	if !c.inside(x, y) {
		return hit{}
	}
	return c.hits[y][x]
}

func (c *Canvas) style(p paint) lipgloss.Style {
	if s, ok := c.styles[p]; ok {
		return s
	}
	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.fg)).
		Background(lipgloss.Color(p.bg)).
		Bold(p.bold)
	c.styles[p] = s
	return s
}

// Lines renders every row with styles applied to runs of equal paint.
func (c *Canvas) Lines() []string {
	out := make([]string, c.height)
	for y := range c.height {
		var sb strings.Builder
		start := 0
		for x := 1; x <= c.width; x++ {
			if x < c.width && c.paints[y][x] == c.paints[y][start] {
				continue
			}
			sb.WriteString(c.style(c.paints[y][start]).Render(rowString(c.cells[y][start:x])))
			start = x
		}
		out[y] = sb.String()
	}
	return out
}

// PlainLines renders the grid without styling, trailing blanks trimmed.
func (c *Canvas) PlainLines() []string {
	out := make([]string, c.height)
	for y := range c.height {
		out[y] = strings.TrimRight(rowString(c.cells[y]), " ")
	}
	return out
}
