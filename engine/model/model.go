package model

import (
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
)

// model is the implementation of the Model interface.
type model struct {
	name           string
	mesh           Mesh
	meshProvider   bind_group_provider.BindGroupProvider
	boundingRadius float32
}

// Model is a GPU-ready container for one indexed mesh. The mesh data lives on the CPU until the
// scene hands MeshProvider to Renderer.InitMeshBuffers, after which the provider carries the
// vertex and index buffers used by draw calls.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Mesh returns the CPU-side geometry.
	Mesh() Mesh

	// MeshProvider retrieves the BindGroupProvider holding GPU mesh resources.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	MeshProvider() bind_group_provider.BindGroupProvider

	// VertexData returns the raw vertex data for this model's mesh.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the raw index data for this model's mesh.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices in the model's mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// BoundingRadius returns the radius of the sphere around the model origin enclosing every vertex.
	BoundingRadius() float32

	// Release frees the GPU mesh buffers.
	Release()
}

var _ Model = &model{}

// NewModel creates a Model. WithMesh supplies the geometry; without it the model is empty and
// IndexCount reports zero.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Model: the new model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{name: "model"}
	for _, opt := range options {
		opt(m)
	}
	m.boundingRadius = m.mesh.BoundingRadius()
	if m.meshProvider == nil {
		m.meshProvider = bind_group_provider.NewBindGroupProvider(m.name + " mesh")
	}
	m.meshProvider.SetIndexCount(len(m.mesh.Indices))
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Mesh() Mesh {
	return m.mesh
}

func (m *model) MeshProvider() bind_group_provider.BindGroupProvider {
	return m.meshProvider
}

func (m *model) VertexData() []byte {
	return m.mesh.VertexData()
}

func (m *model) IndexData() []byte {
	return m.mesh.IndexData()
}

func (m *model) IndexCount() int {
	return len(m.mesh.Indices)
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Release() {
	m.meshProvider.Release()
}
