package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddEdgeAndNeighbors(t *testing.T) {
	g := New(4)
	g.AddEdge(0, 1, 2)
	g.AddEdge(0, 2, 5)
	g.AddEdge(1, 2, 3)

	assert.Len(t, g.Neighbors(0), 2)
	assert.Emptyf(t, g.Neighbors(3), "no outgoing edges")
	assert.Len(t, g.Edges(), 3)
}

func TestAddEdgeOutOfRangePanics(t *testing.T) {
	g := New(2)
	assert.Panics(t, func() { g.AddEdge(0, 5, 1) }, "AddEdge with an out-of-range endpoint must panic")
}
