package main

import (
	"cmp"
	"slices"
)

// BranchChildren returns the notes that parentID connects to, top to bottom.
func (b *Board) BranchChildren(parentID string) []Note {
	var children []Note
	seen := make(map[string]bool)
	for _, c := range b.connections {
		if c.From != parentID || seen[c.To] {
			continue
		}
		if n, ok := b.Note(c.To); ok {
			children = append(children, n)
			seen[c.To] = true
		}
	}
	slices.SortStableFunc(children, func(x, y Note) int {
		return cmp.Compare(x.Y, y.Y)
	})
	return children
}

// branchParent is the first note with a connection into id, if any.
func (b *Board) branchParent(id string) (Note, bool) {
	for _, c := range b.connections {
		if c.To == id && c.From != id {
			if n, ok := b.Note(c.From); ok {
				return n, true
			}
		}
	}
	return Note{}, false
}

// AddBranch creates a note to the right of parentID, below its existing
// children, and connects parent to it.
func (b *Board) AddBranch(parentID string) (Note, Connection, error) {
	i, err := b.mustNote(parentID)
	if err != nil {
		return Note{}, Connection{}, err
	}
	parent := b.notes[i]

	y := parent.Y
	if children := b.BranchChildren(parentID); len(children) > 0 {
		last := children[len(children)-1]
		y = last.Y + last.H + branchGap/2
	}
	pos := Point{X: parent.X + parent.W + branchGap, Y: y}
	child := b.AddNote(NoteOptions{Color: parent.Color, Position: &pos})
	conn, err := b.AddConnection(parentID, child.ID)
	return child, conn, err
}

// AddSibling creates a note below id. When id has a branch parent the new
// note is connected from that parent as well.
func (b *Board) AddSibling(id string) (Note, *Connection, error) {
	if parent, ok := b.branchParent(id); ok {
		child, conn, err := b.AddBranch(parent.ID)
		return child, &conn, err
	}
	i, err := b.mustNote(id)
	if err != nil {
		return Note{}, nil, err
	}
	src := b.notes[i]
	pos := Point{X: src.X, Y: src.Y + src.H + branchGap/2}
	return b.AddNote(NoteOptions{Color: src.Color, Position: &pos}), nil, nil
}
