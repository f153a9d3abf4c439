package math

// Vec2 represents a 2D vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector.
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Vertex2D is a single vertex of a 2D shape: a position plus texture
// coordinate. VGen shaders at shape rate consume these via the vertex
// manifest.
type Vertex2D struct {
	Position Vec2
	Texcoord Vec2
}
