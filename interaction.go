package main

// Interaction holds the connect/remove mode flags and the pending connect endpoint.
// The two modes are mutually exclusive.
type Interaction struct {
	connectMode bool
	removeMode  bool
	pending     string
}

type ConnectOutcome int

const (
	ConnectIgnored ConnectOutcome = iota
	ConnectPending
	ConnectCancelled
	ConnectCreated
)

func (ix *Interaction) ConnectMode() bool { return ix.connectMode }
func (ix *Interaction) RemoveMode() bool  { return ix.removeMode }
func (ix *Interaction) Pending() string   { return ix.pending }

func (ix *Interaction) ToggleConnect() bool {
	ix.connectMode = !ix.connectMode
	ix.pending = ""
	if ix.connectMode {
		ix.removeMode = false
	}
	return ix.connectMode
}

func (ix *Interaction) ToggleRemove() bool {
	ix.removeMode = !ix.removeMode
	ix.pending = ""
	if ix.removeMode {
		ix.connectMode = false
	}
	return ix.removeMode
}

// Reset leaves both modes. Used when the active sheet changes.
func (ix *Interaction) Reset() {
	ix.connectMode = false
	ix.removeMode = false
	ix.pending = ""
}

// Forget drops the pending endpoint if it is id. Used when that note goes away.
func (ix *Interaction) Forget(id string) {
	if ix.pending == id {
		ix.pending = ""
	}
}

// ClickNote applies a click on a note while in connect mode: the first click picks the
// source, a click on another note connects them, a second click on the source cancels.
func (ix *Interaction) ClickNote(b *Board, id string) (ConnectOutcome, error) {
	if !ix.connectMode {
		return ConnectIgnored, nil
	}
	switch ix.pending {
	case "":
		ix.pending = id
		return ConnectPending, nil
	case id:
		ix.pending = ""
		return ConnectCancelled, nil
	}
	from := ix.pending
	ix.pending = ""
	if _, err := b.AddConnection(from, id); err != nil {
		return ConnectIgnored, err
	}
	return ConnectCreated, nil
}

// ClickLink removes the clicked connection pair when remove mode is on.
func (ix *Interaction) ClickLink(b *Board, c Connection) int {
	if !ix.removeMode {
		return 0
	}
	return b.RemoveConnection(c.From, c.To)
}
