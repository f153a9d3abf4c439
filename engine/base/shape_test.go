package base

import (
	"testing"

	"github.com/scintillator/scsynth/engine/math"
	"github.com/stretchr/testify/assert"
)

func TestNewQuadClampsEdgesBelowOne(t *testing.T) {
	q := NewQuad(0, -3)
	assert.Equal(t, 1, q.WidthEdges)
	assert.Equal(t, 1, q.HeightEdges)
}

func TestNewQuadSingleTileHasFourVerticesAndSixIndices(t *testing.T) {
	q := NewQuad(1, 1)
	assert.Equal(t, 4, q.VertexCount())
	assert.Equal(t, 6, q.IndexCount())
	assert.Len(t, q.Indices(), 6)
}

func TestNewQuadSubdivisionScalesCounts(t *testing.T) {
	q := NewQuad(2, 3)
	assert.Equal(t, 2*3*4, q.VertexCount())
	assert.Equal(t, 2*3*6, q.IndexCount())
}

func TestQuadTopologyAndElementType(t *testing.T) {
	q := NewQuad(1, 1)
	assert.Equal(t, TopologyTriangleList, q.Topology())
	assert.Equal(t, "quad", q.ElementType())
}

func TestQuadStoreVertexAndTexVertexSpanFullRange(t *testing.T) {
	q := NewQuad(1, 1)
	var pos math.Vec2
	q.StoreVertex(0, &pos)
	assert.Equal(t, float32(-1), pos.X)
	assert.Equal(t, float32(-1), pos.Y)

	var tex math.Vec2
	q.StoreTexVertex(0, &tex)
	assert.Equal(t, float32(0), tex.X)
	assert.Equal(t, float32(0), tex.Y)
}

func TestQuadIndicesReferenceValidVertices(t *testing.T) {
	q := NewQuad(2, 2)
	for _, idx := range q.Indices() {
		assert.Less(t, int(idx), q.VertexCount())
	}
}
