package model

import (
	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/chewxy/math32"
)

// Mesh is indexed triangle geometry with counter-clockwise front faces.
type Mesh struct {
	Vertices []GPUVertex
	Indices  []uint32
}

// VertexData returns the vertices packed for upload.
func (m Mesh) VertexData() []byte {
	return common.SliceToBytes(m.Vertices)
}

// IndexData returns the uint32 indices packed for upload.
func (m Mesh) IndexData() []byte {
	return common.SliceToBytes(m.Indices)
}

// BoundingRadius returns the largest distance of any vertex from the origin.
func (m Mesh) BoundingRadius() float32 {
	var maxDistSq float32
	for _, v := range m.Vertices {
		p := v.Position
		maxDistSq = max(maxDistSq, p[0]*p[0]+p[1]*p[1]+p[2]*p[2])
	}
	return math32.Sqrt(maxDistSq)
}

// cubeFaces lists each face's outward normal and two in-plane axes whose cross product is the normal.
var cubeFaces = [6]struct {
	normal, u, v [3]float32
}{
	{normal: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
	{normal: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
	{normal: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
}

// Cube builds an axis-aligned cube centred on the origin with per-face normals
// (24 vertices, 36 indices).
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Mesh: the cube mesh
func Cube(size float32) Mesh {
	h := size / 2
	mesh := Mesh{
		Vertices: make([]GPUVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		for _, c := range corners {
			var p [3]float32
			for i := range 3 {
				p[i] = (f.normal[i] + c[0]*f.u[i] + c[1]*f.v[i]) * h
			}
			mesh.Vertices = append(mesh.Vertices, GPUVertex{Position: p, Normal: f.normal})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return mesh
}
