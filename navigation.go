package main

// Screen layout: one bar row on top, the board, one status row at the bottom.
const (
	topBarRows = 1
	statusRows = 1
)

func (m *model) boardHeight() int {
	return max(m.height-topBarRows-statusRows, 1)
}

func (m *model) pan() point {
	return m.pans[m.board.ActiveSheetID()]
}

// setPan stores the pan of the active sheet, kept inside the board.
func (m *model) setPan(p point) {
	w, h := m.board.ActiveSheet().Size.Dimensions()
	cols, rows := boardCells(w, h)
	p.X = max(0, min(p.X, cols-m.width))
	p.Y = max(0, min(p.Y, rows-m.boardHeight()))
	m.pans[m.board.ActiveSheetID()] = p
}

func (m *model) handlePan(dx, dy int) {
	p := m.pan()
	m.setPan(point{X: p.X + dx, Y: p.Y + dy})
}

// handleCursorMove moves the cursor and pans when it runs into the viewport edge.
func (m *model) handleCursorMove(key string, speed int) {
	dx, dy := direction(key)
	m.cursorX += dx * speed
	m.cursorY += dy * speed

	panX, panY := 0, 0
	if m.cursorX < 0 {
		panX, m.cursorX = m.cursorX, 0
	}
	if m.cursorY < 0 {
		panY, m.cursorY = m.cursorY, 0
	}
	if m.width > 0 && m.cursorX >= m.width {
		panX, m.cursorX = m.cursorX-m.width+1, m.width-1
	}
	if m.cursorY >= m.boardHeight() {
		panY, m.cursorY = m.cursorY-m.boardHeight()+1, m.boardHeight()-1
	}
	if panX != 0 || panY != 0 {
		m.handlePan(panX, panY)
	}
}

func (m *model) ensureCursorInBounds() {
	m.cursorX = max(0, min(m.cursorX, m.width-1))
	m.cursorY = max(0, min(m.cursorY, m.boardHeight()-1))
}

// direction maps a movement key to a cell delta.
func direction(key string) (int, int) {
	switch key {
	case "h", "left", "H", "shift+left":
		return -1, 0
	case "l", "right", "L", "shift+right":
		return 1, 0
	case "k", "up", "K", "shift+up":
		return 0, -1
	case "j", "down", "J", "shift+down":
		return 0, 1
	}
	return 0, 0
}

func isDirection(key string) bool {
	dx, dy := direction(key)
	return dx != 0 || dy != 0
}

func (m *model) getMoveSpeed(key string) int {
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}

// pointerPx converts a viewport cell to board pixels.
func (m *model) pointerPx(x, y int) (float64, float64) {
	p := m.pan()
	return float64(x+p.X) * charWidth, float64(y+p.Y) * charHeight
}

// cursorPoint is the board position under the keyboard cursor.
func (m *model) cursorPoint() Point {
	x, y := m.pointerPx(m.cursorX, m.cursorY)
	return Point{X: x, Y: y}
}
