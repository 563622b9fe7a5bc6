package main

import "math"

// ViewState carries the interaction flags that change how notes are drawn.
type ViewState struct {
	Pending  string
	Dragging string
	Selected string
}

type NoteView struct {
	ID       string
	X, Y     float64
	W, H     float64
	Color    Color
	Lines    []string
	Pending  bool
	Dragging bool
	Selected bool
}

// LinkView is one connection as a quadratic curve in board pixels.
type LinkView struct {
	From, To string
	Start    Point
	Control  Point
	End      Point
}

// BoardView describes everything that is drawn for a sheet. Renderers only read it.
type BoardView struct {
	SheetName string
	Size      SizeCategory
	Width     float64
	Height    float64
	Theme     Theme
	Notes     []NoteView
	Links     []LinkView
}

// BuildView maps the board state to a view description.
func BuildView(sheet Sheet, notes []Note, conns []Connection, theme Theme, st ViewState) BoardView {
	w, h := sheet.Size.Dimensions()
	v := BoardView{
		SheetName: sheet.Name,
		Size:      sheet.Size.orDefault(),
		Width:     w,
		Height:    h,
		Theme:     theme,
		Notes:     make([]NoteView, 0, len(notes)),
		Links:     buildLinks(notes, conns),
	}
	for _, n := range notes {
		v.Notes = append(v.Notes, NoteView{
			ID:       n.ID,
			X:        n.X,
			Y:        n.Y,
			W:        n.W,
			H:        n.H,
			Color:    n.Color,
			Lines:    wrapText(n.Content, textColumns(n.W)),
			Pending:  n.ID == st.Pending,
			Dragging: n.ID == st.Dragging,
			Selected: n.ID == st.Selected,
		})
	}
	return v
}

// buildLinks computes curves for connections whose endpoints both exist. Dangling ones are skipped.
func buildLinks(notes []Note, conns []Connection) []LinkView {
	byID := make(map[string]Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	links := make([]LinkView, 0, len(conns))
	for _, c := range conns {
		from, ok := byID[c.From]
		if !ok {
			continue
		}
		to, ok := byID[c.To]
		if !ok {
			continue
		}
		links = append(links, curveBetween(c, anchorOf(from), anchorOf(to)))
	}
	return links
}

func anchorOf(n Note) Point {
	return Point{X: n.X + anchorInset, Y: n.Y + anchorInset}
}

// curveBetween lifts the control point above the midpoint by up to half the
// horizontal distance, never more than maxCurveLift.
func curveBetween(c Connection, p1, p2 Point) LinkView {
	dx := math.Abs(p2.X - p1.X)
	return LinkView{
		From:  c.From,
		To:    c.To,
		Start: p1,
		Control: Point{
			X: (p1.X + p2.X) / 2,
			Y: (p1.Y+p2.Y)/2 - math.Min(maxCurveLift, dx/2),
		},
		End: p2,
	}
}

func (l LinkView) Connection() Connection {
	return Connection{From: l.From, To: l.To}
}

// At evaluates the curve at t in [0,1].
func (l LinkView) At(t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*l.Start.X + 2*u*t*l.Control.X + t*t*l.End.X,
		Y: u*u*l.Start.Y + 2*u*t*l.Control.Y + t*t*l.End.Y,
	}
}

// Samples returns points along the curve roughly step pixels apart.
func (l LinkView) Samples(step float64) []Point {
	length := math.Hypot(l.Control.X-l.Start.X, l.Control.Y-l.Start.Y) +
		math.Hypot(l.End.X-l.Control.X, l.End.Y-l.Control.Y)
	n := int(math.Ceil(length / math.Max(step, 0.5)))
	if n < 2 {
		n = 2
	}
	pts := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, l.At(float64(i)/float64(n)))
	}
	return pts
}

// bounds is the box around every note and curve, in board pixels.
func (v BoardView) bounds() (minX, minY, maxX, maxY float64, ok bool) {
	grow := func(x, y float64) {
		if !ok {
			minX, minY, maxX, maxY, ok = x, y, x, y, true
			return
		}
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	for _, n := range v.Notes {
		grow(n.X, n.Y)
		grow(n.X+n.W, n.Y+n.H)
	}
	for _, l := range v.Links {
		for _, p := range l.Samples(16) {
			grow(p.X, p.Y)
		}
	}
	return
}
