package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_ModeAllTracksResults(t *testing.T) {
	rs := NewResultSet()
	rs.Replace(entries("a", "b"), true)
	sel := NewSelection(ModeAll)
	sel.Sync(rs, true)
	assert.Equal(t, []string{"a", "b"}, sel.IDs())

	rs.Append(entries("c"), false)
	sel.Sync(rs, false)
	assert.Equal(t, rs.IDs(), sel.IDs())

	rs.Replace(entries("x"), false)
	sel.Sync(rs, true)
	assert.Equal(t, []string{"x"}, sel.IDs())

	assert.True(t, sel.Toggle("x"), "toggle is a no-op in all mode")
	assert.Equal(t, []string{"x"}, sel.IDs())
}

func TestSelection_ManualPrunesOnReplace(t *testing.T) {
	rs := NewResultSet()
	rs.Replace(entries("a", "b", "c"), true)
	sel := NewSelection(ModeManual)
	sel.Sync(rs, true)
	assert.Zero(t, sel.Len())

	assert.True(t, sel.Toggle("a"))
	assert.True(t, sel.Toggle("c"))
	assert.False(t, sel.Toggle("c"))
	assert.True(t, sel.Toggle("b"))

	rs.Append(entries("d"), false)
	sel.Sync(rs, false)
	assert.Equal(t, []string{"a", "b"}, sel.IDs())

	rs.Replace(entries("b", "e"), false)
	sel.Sync(rs, true)
	assert.Equal(t, []string{"b"}, sel.IDs())
}

func TestSelection_SetMode(t *testing.T) {
	rs := NewResultSet()
	rs.Replace(entries("a", "b"), false)
	sel := NewSelection(ModeManual)
	sel.Toggle("a")

	sel.SetMode(ModeAll, rs)
	assert.Equal(t, ModeAll, sel.Mode())
	assert.Equal(t, []string{"a", "b"}, sel.IDs())

	sel.SetMode(ModeManual, rs)
	assert.Zero(t, sel.Len())
}

func TestSelection_ToggleAll(t *testing.T) {
	rs := NewResultSet()
	rs.Replace(entries("a", "b"), false)
	sel := NewSelection(ModeManual)
	sel.Toggle("a")

	sel.ToggleAll(rs)
	assert.Equal(t, []string{"a", "b"}, sel.IDs())

	sel.ToggleAll(rs)
	assert.Zero(t, sel.Len())
}
