package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBranchPlacesChildrenInAColumn(t *testing.T) {
	b := emptyBoard(t)
	parent := addNoteAt(t, b, 40, 100, "root")
	_, err := b.CycleColor(parent.ID)
	require.NoError(t, err)

	first, conn, err := b.AddBranch(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, Connection{From: parent.ID, To: first.ID}, conn)
	assert.Equal(t, 40+120+branchGap, first.X)
	assert.Equal(t, 100.0, first.Y)
	assert.Equal(t, ColorPink, first.Color, "children take the parent's color")

	second, _, err := b.AddBranch(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, first.X, second.X)
	assert.Equal(t, first.Y+first.H+branchGap/2, second.Y)

	children := b.BranchChildren(parent.ID)
	require.Len(t, children, 2)
	assert.Equal(t, first.ID, children[0].ID)
	assert.Equal(t, second.ID, children[1].ID)
}

func TestBranchChildrenIgnoresDuplicatesAndDangling(t *testing.T) {
	b := emptyBoard(t)
	parent := addNoteAt(t, b, 40, 40, "root")
	low := addNoteAt(t, b, 300, 400, "low")
	high := addNoteAt(t, b, 300, 40, "high")
	for _, to := range []string{low.ID, high.ID, low.ID} {
		_, err := b.AddConnection(parent.ID, to)
		require.NoError(t, err)
	}
	b.connections = append(b.connections, Connection{From: parent.ID, To: "n_gone"})

	children := b.BranchChildren(parent.ID)
	require.Len(t, children, 2)
	assert.Equal(t, high.ID, children[0].ID)
	assert.Equal(t, low.ID, children[1].ID)
}

func TestAddSiblingUsesParent(t *testing.T) {
	b := emptyBoard(t)
	parent := addNoteAt(t, b, 40, 100, "root")
	child, _, err := b.AddBranch(parent.ID)
	require.NoError(t, err)

	sibling, conn, err := b.AddSibling(child.ID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, parent.ID, conn.From)
	assert.Equal(t, sibling.ID, conn.To)
	assert.Equal(t, child.X, sibling.X)
	assert.Greater(t, sibling.Y, child.Y)
}

func TestAddSiblingWithoutParent(t *testing.T) {
	b := emptyBoard(t)
	lone := addNoteAt(t, b, 40, 100, "lone")

	sibling, conn, err := b.AddSibling(lone.ID)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Equal(t, lone.X, sibling.X)
	assert.Equal(t, lone.Y+lone.H+branchGap/2, sibling.Y)
	assert.Empty(t, b.Connections())
}

func TestAddBranchUnknownParent(t *testing.T) {
	b := emptyBoard(t)
	_, _, err := b.AddBranch("n_nope")
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, _, err = b.AddSibling("n_nope")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}
