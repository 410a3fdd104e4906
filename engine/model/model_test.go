package model_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubeGeometry(t *testing.T) {
	cube := model.Cube(2)

	require.Len(t, cube.Vertices, 24)
	require.Len(t, cube.Indices, 36)
	for _, v := range cube.Vertices {
		for i := range 3 {
			assert.InDelta(t, 1, math.Abs(float64(v.Position[i])), 1e-6)
		}
	}
	for _, idx := range cube.Indices {
		assert.Less(t, idx, uint32(24))
	}
	assert.InDelta(t, math.Sqrt(3), cube.BoundingRadius(), 1e-5)
}

func TestCubeWindingFacesOutward(t *testing.T) {
	cube := model.Cube(1)

	for tri := 0; tri < len(cube.Indices); tri += 3 {
		a := cube.Vertices[cube.Indices[tri]].Position
		b := cube.Vertices[cube.Indices[tri+1]].Position
		c := cube.Vertices[cube.Indices[tri+2]].Position
		n := cube.Vertices[cube.Indices[tri]].Normal

		e1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		e2 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		cross := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		dot := cross[0]*n[0] + cross[1]*n[1] + cross[2]*n[2]
		assert.Greater(t, dot, float32(0), "triangle %d", tri/3)
	}
}

func TestModelFromMesh(t *testing.T) {
	m := model.NewModel(model.WithName("cube"), model.WithMesh(model.Cube(3)))

	assert.Equal(t, "cube", m.Name())
	assert.Equal(t, 36, m.IndexCount())
	assert.Equal(t, 36, m.MeshProvider().IndexCount())
	assert.Equal(t, "cube mesh", m.MeshProvider().Label())
	assert.Len(t, m.VertexData(), 24*24)
	assert.Len(t, m.IndexData(), 36*4)
}

func TestEmptyModel(t *testing.T) {
	m := model.NewModel()

	assert.Zero(t, m.IndexCount())
	assert.Zero(t, m.BoundingRadius())
}

func TestModelDataMarshal(t *testing.T) {
	d := model.GPUModelData{Color: [4]float32{0, 1, 0, 1}}
	d.Model[15] = 1

	buf := d.Marshal()

	require.Len(t, buf, 80)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[60:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[68:])))
}

func TestVertexLayoutMatchesStruct(t *testing.T) {
	var v model.GPUVertex
	layout := model.VertexLayout()

	assert.Equal(t, uint64(v.Size()), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)
}
