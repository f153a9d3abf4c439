package base

import (
	"github.com/scintillator/scsynth/engine/math"
)

// Topology mirrors the handful of primitive topologies the GPU driver
// understands (see engine/gpu.Topology); duplicated here so base has no
// dependency on engine/gpu.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

// Shape is the capability set a ScinthDef needs from its geometry: element
// layout, vertex/index counts, topology, and the ability to generate its
// own vertex/index data. Quad is the only concrete implementation the spec
// requires; the interface leaves room for others without a type hierarchy.
type Shape interface {
	// ElementType names the per-vertex layout this shape stores into a
	// Manifest-compatible buffer.
	ElementType() string
	VertexCount() int
	IndexCount() int
	Topology() Topology
	// StoreVertex writes vertex i's position into out.
	StoreVertex(i int, out *math.Vec2)
	// StoreTexVertex writes vertex i's texture coordinate into out.
	StoreTexVertex(i int, out *math.Vec2)
	Indices() []uint32
}

// Quad is a subdivided rectangle in normalized device space, [-1, 1] on
// each axis, with widthEdges*heightEdges subdivisions. Tiling math follows
// the teacher's plane-geometry generator, reduced to 2D (position +
// texcoord only — no normals/tangents, since shape-rate VGens consume only
// normPos/texPos intrinsics).
type Quad struct {
	WidthEdges  int
	HeightEdges int

	vertices []math.Vertex2D
	indices  []uint32
}

// NewQuad builds a Quad's vertex and index buffers eagerly; a widthEdges or
// heightEdges below 1 is clamped to 1.
func NewQuad(widthEdges, heightEdges int) *Quad {
	if widthEdges < 1 {
		widthEdges = 1
	}
	if heightEdges < 1 {
		heightEdges = 1
	}
	q := &Quad{WidthEdges: widthEdges, HeightEdges: heightEdges}
	q.generate()
	return q
}

func (q *Quad) generate() {
	vertexCount := q.WidthEdges * q.HeightEdges * 4
	indexCount := q.WidthEdges * q.HeightEdges * 6
	q.vertices = make([]math.Vertex2D, vertexCount)
	q.indices = make([]uint32, indexCount)

	segWidth := 2.0 / float32(q.WidthEdges)
	segHeight := 2.0 / float32(q.HeightEdges)

	for y := 0; y < q.HeightEdges; y++ {
		for x := 0; x < q.WidthEdges; x++ {
			minX := (float32(x) * segWidth) - 1.0
			minY := (float32(y) * segHeight) - 1.0
			maxX := minX + segWidth
			maxY := minY + segHeight

			minU := float32(x) / float32(q.WidthEdges)
			minV := float32(y) / float32(q.HeightEdges)
			maxU := float32(x+1) / float32(q.WidthEdges)
			maxV := float32(y+1) / float32(q.HeightEdges)

			vOffset := ((y * q.WidthEdges) + x) * 4
			q.vertices[vOffset+0] = math.Vertex2D{Position: math.NewVec2(minX, minY), Texcoord: math.NewVec2(minU, minV)}
			q.vertices[vOffset+1] = math.Vertex2D{Position: math.NewVec2(maxX, maxY), Texcoord: math.NewVec2(maxU, maxV)}
			q.vertices[vOffset+2] = math.Vertex2D{Position: math.NewVec2(minX, maxY), Texcoord: math.NewVec2(minU, maxV)}
			q.vertices[vOffset+3] = math.Vertex2D{Position: math.NewVec2(maxX, minY), Texcoord: math.NewVec2(maxU, minV)}

			iOffset := ((y * q.WidthEdges) + x) * 6
			q.indices[iOffset+0] = uint32(vOffset + 0)
			q.indices[iOffset+1] = uint32(vOffset + 1)
			q.indices[iOffset+2] = uint32(vOffset + 2)
			q.indices[iOffset+3] = uint32(vOffset + 0)
			q.indices[iOffset+4] = uint32(vOffset + 3)
			q.indices[iOffset+5] = uint32(vOffset + 1)
		}
	}
}

func (q *Quad) ElementType() string      { return "quad" }
func (q *Quad) VertexCount() int         { return len(q.vertices) }
func (q *Quad) IndexCount() int          { return len(q.indices) }
func (q *Quad) Topology() Topology       { return TopologyTriangleList }
func (q *Quad) Indices() []uint32        { return q.indices }

func (q *Quad) StoreVertex(i int, out *math.Vec2) {
	*out = q.vertices[i].Position
}

func (q *Quad) StoreTexVertex(i int, out *math.Vec2) {
	*out = q.vertices[i].Texcoord
}
