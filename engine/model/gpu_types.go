package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for mesh pipelines.
// Matches GPUVertex layout exactly (24 bytes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// VertexInputStruct registers VertexInput with the WGSL pre-processor under the key "vertex".
var VertexInputStruct = shader.StructSource{
	Key:    "vertex",
	Type:   "VertexInput",
	Source: GPUVertexSource,
}

// GPUVertex is the GPU representation of a single mesh vertex.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space
	Normal   [3]float32 // offset 12: vertex normal
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (24)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(g.Normal[i]))
	}
	return buf
}

// VertexLayout describes GPUVertex to the vertex stage: position at location 0, normal at location 1.
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 24,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		},
	}
}

// GPUModelDataSource is the canonical WGSL definition of the ModelData struct.
// Matches GPUModelData layout exactly (80 bytes).
//
//go:embed assets/model_data.wgsl
var GPUModelDataSource string

// ModelDataStruct registers ModelData with the WGSL pre-processor under the key "model_data".
var ModelDataStruct = shader.StructSource{
	Key:    "model_data",
	Type:   "ModelData",
	Source: GPUModelDataSource,
}

// GPUModelData is the per-object uniform: the model-to-world matrix and a flat colour.
type GPUModelData struct {
	Model [16]float32 // offset  0: 4x4 model-to-world transform matrix
	Color [4]float32  // offset 64: RGBA colour
}

// Size returns the size of the GPUModelData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (80)
func (g *GPUModelData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (g *GPUModelData) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Color[i]))
	}
	return buf
}
