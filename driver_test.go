package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxDrainDepth bounds command draining so a self-rescheduling Cmd cannot loop forever.
const maxDrainDepth = 100

// cmdTimeout separates immediate Cmds from timers. Frame ticks, the print
// settle delay and cursor blinks all take longer and are skipped; tests send
// those messages by hand.
const cmdTimeout = 10 * time.Millisecond

// driver runs a tea.Model synchronously: Update is called directly and the
// returned Cmds are drained in the test goroutine.
type driver struct {
	t        *testing.T
	model    tea.Model
	quitting bool
}

func newDriver(t *testing.T, m tea.Model, width, height int) *driver {
	t.Helper()
	d := &driver{t: t, model: m}
	d.send(tea.WindowSizeMsg{Width: width, Height: height})
	return d
}

func (d *driver) send(msg tea.Msg) {
	d.t.Helper()
	if d.quitting {
		return
	}
	updated, cmd := d.model.Update(msg)
	d.model = updated
	d.drain(cmd, 0)
}

// m is the current model state.
func (d *driver) m() model {
	return d.model.(model)
}

// pan is the current sheet's pan offset in cells.
func (d *driver) pan() point {
	m := d.m()
	return m.pan()
}

func (d *driver) press(r rune) {
	d.t.Helper()
	d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func (d *driver) keys(s string) {
	d.t.Helper()
	for _, r := range s {
		d.press(r)
	}
}

func (d *driver) key(t tea.KeyType) {
	d.t.Helper()
	d.send(tea.KeyMsg{Type: t})
}

// typeText enters s in edit mode, sending spaces and newlines as their own keys.
func (d *driver) typeText(s string) {
	d.t.Helper()
	for _, r := range s {
		switch r {
		case ' ':
			d.key(tea.KeySpace)
		case '\n':
			d.key(tea.KeyEnter)
		default:
			d.press(r)
		}
	}
}

// mouse sends a left-button event at screen cell (x, y); y counts the top bar.
func (d *driver) mouse(action tea.MouseAction, x, y int) {
	d.t.Helper()
	d.send(tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft})
}

func (d *driver) view() string {
	return d.model.View()
}

func (d *driver) drain(cmd tea.Cmd, depth int) {
	d.t.Helper()
	if cmd == nil {
		return
	}
	if depth >= maxDrainDepth {
		d.t.Logf("driver: drain depth limit (%d) reached", maxDrainDepth)
		return
	}

	msg := execWithTimeout(cmd)
	if msg == nil || isCursorBlink(msg) {
		return
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			d.drain(sub, depth+1)
		}
		return
	}
	if _, ok := msg.(tea.QuitMsg); ok {
		d.quitting = true
		return
	}
	updated, next := d.model.Update(msg)
	d.model = updated
	d.drain(next, depth+1)
}

func execWithTimeout(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(cmdTimeout):
		return nil
	}
}

func isCursorBlink(msg tea.Msg) bool {
	return strings.Contains(strings.ToLower(fmt.Sprintf("%T", msg)), "blink")
}
