package history

import (
	"testing"

	"github.com/datarhei/settings/document"

	"github.com/stretchr/testify/require"
)

func snapshot(i int) document.Document {
	return document.Document{
		document.General: document.Data{"maxOccupancy": float64(i)},
	}
}

func TestEmpty(t *testing.T) {
	h := New(0)

	require.Equal(t, DefaultLimit, h.limit)
	require.Equal(t, -1, h.Cursor())
	require.False(t, h.CanUndo())
	require.False(t, h.CanRedo())

	_, ok := h.Undo()
	require.False(t, ok)

	_, ok = h.Redo()
	require.False(t, ok)
}

func TestUndoRedo(t *testing.T) {
	h := New(10)

	h.Push(snapshot(0))
	require.False(t, h.CanUndo())

	h.Push(snapshot(1))
	h.Push(snapshot(2))
	require.True(t, h.CanUndo())
	require.False(t, h.CanRedo())

	doc, ok := h.Undo()
	require.True(t, ok)
	require.Equal(t, snapshot(1), doc)
	require.True(t, h.CanRedo())

	doc, ok = h.Undo()
	require.True(t, ok)
	require.Equal(t, snapshot(0), doc)
	require.False(t, h.CanUndo())

	doc, ok = h.Redo()
	require.True(t, ok)
	require.Equal(t, snapshot(1), doc)

	// Undo and redo don't add entries
	require.Equal(t, 3, h.Len())
}

func TestPushDropsRedo(t *testing.T) {
	h := New(10)

	h.Push(snapshot(0))
	h.Push(snapshot(1))
	h.Push(snapshot(2))

	h.Undo()
	h.Undo()

	h.Push(snapshot(3))

	require.Equal(t, 2, h.Len())
	require.False(t, h.CanRedo())

	doc, ok := h.Undo()
	require.True(t, ok)
	require.Equal(t, snapshot(0), doc)
}

func TestLimit(t *testing.T) {
	h := New(50)

	for i := 0; i < 60; i++ {
		h.Push(snapshot(i))
	}

	require.Equal(t, 50, h.Len())
	require.Equal(t, 49, h.Cursor())

	undos := 0
	for {
		if _, ok := h.Undo(); !ok {
			break
		}
		undos++
	}

	require.Equal(t, 49, undos)

	// Snapshots 0 to 9 have been evicted
	require.Equal(t, 0, h.Cursor())

	doc, ok := h.Redo()
	require.True(t, ok)
	require.Equal(t, snapshot(11), doc)
}

func TestCopies(t *testing.T) {
	h := New(10)

	doc := snapshot(0)
	h.Push(doc)
	h.Push(snapshot(1))

	doc[document.General]["maxOccupancy"] = float64(99)

	undone, ok := h.Undo()
	require.True(t, ok)
	require.Equal(t, snapshot(0), undone)

	undone[document.General]["maxOccupancy"] = float64(99)

	h.Redo()
	undone, _ = h.Undo()
	require.Equal(t, snapshot(0), undone)
}

func TestClear(t *testing.T) {
	h := New(10)

	h.Push(snapshot(0))
	h.Push(snapshot(1))
	h.Clear()

	require.Equal(t, 0, h.Len())
	require.Equal(t, -1, h.Cursor())
	require.False(t, h.CanUndo())
}
