package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
)

type gameObject struct {
	mu      sync.Mutex
	id      uint64
	enabled atomic.Bool
	mdl     model.Model

	position      [3]float32
	rotation      [3]float32
	rotationSpeed [3]float32
	scale         [3]float32
	color         [4]float32

	// uniforms holds the object's ModelData buffer and the bind group over it.
	uniforms bind_group_provider.BindGroupProvider
}

// GameObject is a drawable scene entity: a Model placed by a transform and shaded with a
// flat colour.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// SetModel assigns a Model to this object.
	//
	// Parameters:
	//   - m: the Model to associate
	SetModel(m model.Model)

	// Position returns the world-space position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// SetPosition sets the world-space position.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// Rotation returns the Euler rotation in radians.
	//
	// Returns:
	//   - rx, ry, rz: rotation angles
	Rotation() (rx, ry, rz float32)

	// SetRotation sets the Euler rotation in radians.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation angles
	SetRotation(rx, ry, rz float32)

	// RotationSpeed returns the rotation applied per second by Update.
	RotationSpeed() (rx, ry, rz float32)

	// SetRotationSpeed sets the rotation applied per second by Update.
	SetRotationSpeed(rx, ry, rz float32)

	// Scale returns the per-axis scale.
	//
	// Returns:
	//   - sx, sy, sz: scale components
	Scale() (sx, sy, sz float32)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// Color returns the RGBA colour the object is shaded with.
	Color() [4]float32

	// SetColor sets the RGBA colour the object is shaded with.
	//
	// Parameters:
	//   - color: RGBA components in [0, 1]
	SetColor(color [4]float32)

	// Update advances the rotation by RotationSpeed * deltaTime.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Update(deltaTime float32)

	// ModelData returns the per-object uniform for the current transform and colour.
	//
	// Returns:
	//   - model.GPUModelData: the uniform ready to Marshal
	ModelData() model.GPUModelData

	// Uniforms returns the provider holding the object's uniform buffer and bind group.
	Uniforms() bind_group_provider.BindGroupProvider

	// SetUniforms replaces the uniform provider. Scenes set it when the object is added.
	SetUniforms(p bind_group_provider.BindGroupProvider)

	// Release frees the object's uniform buffer and bind group. The Model is left untouched.
	Release()
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled GameObject with unit scale and white colour,
// configured with the given options.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		scale: [3]float32{1, 1, 1},
		color: [4]float32{1, 1, 1, 1},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Model() model.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mdl
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mdl = m
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position[0], g.position[1], g.position[2]
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation[0], g.rotation[1], g.rotation[2]
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) RotationSpeed() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed[0], g.rotationSpeed[1], g.rotationSpeed[2]
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale[0], g.scale[1], g.scale[2]
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) Color() [4]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.color
}

func (g *gameObject) SetColor(color [4]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.color = color
}

func (g *gameObject) Update(deltaTime float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range 3 {
		g.rotation[i] += g.rotationSpeed[i] * deltaTime
	}
}

func (g *gameObject) ModelData() model.GPUModelData {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := model.GPUModelData{Color: g.color}
	common.BuildModelMatrix(d.Model[:],
		g.position[0], g.position[1], g.position[2],
		g.rotation[0], g.rotation[1], g.rotation[2],
		g.scale[0], g.scale[1], g.scale[2],
	)
	return d
}

func (g *gameObject) Uniforms() bind_group_provider.BindGroupProvider {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uniforms
}

func (g *gameObject) SetUniforms(p bind_group_provider.BindGroupProvider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uniforms = p
}

func (g *gameObject) Release() {
	g.mu.Lock()
	p := g.uniforms
	g.uniforms = nil
	g.mu.Unlock()
	if p != nil {
		p.Release()
	}
}
