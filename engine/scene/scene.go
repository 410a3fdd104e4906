package scene

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/camera"
	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/game_object"
	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resources creates and updates the GPU resources of a scene. renderer.Renderer implements it.
type Resources interface {
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
}

type scene struct {
	mu sync.RWMutex

	name   string
	active atomic.Bool
	entity ecs.Entity
	cam    camera.Camera
	meshes *MeshPipeline

	cameraUniforms bind_group_provider.BindGroupProvider

	registry map[uint64]game_object.GameObject
	nextID   uint64
}

// Scene is one camera view and the game objects it draws. Each scene becomes one
// render_graph.View per frame; scenes sharing a window layer by camera order, lowest first.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is rendered.
	Active() bool

	// SetActive sets whether this scene is rendered.
	SetActive(active bool)

	// Entity returns the camera entity components such as post-process settings attach to.
	Entity() ecs.Entity

	// SetEntity sets the camera entity. The engine assigns it when the scene is added.
	SetEntity(e ecs.Entity)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Count returns the number of objects in the scene.
	Count() int

	// Add adds a GameObject and returns its ID. Objects without an ID are assigned one.
	// GPU resources are created on the next Prepare.
	//
	// Panics if the object has no Model.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves an object by ID, or nil if not found.
	Get(id uint64) game_object.GameObject

	// Remove removes an object by ID and releases its uniform buffer.
	Remove(id uint64)

	// Clear removes every object.
	Clear()

	// Update advances the camera and every object by deltaTime seconds.
	Update(deltaTime float32)

	// Prepare creates missing GPU resources and uploads the camera and object uniforms.
	// Called once per frame on the render thread, before View.
	//
	// Parameters:
	//   - res: the resource creator, usually the Renderer
	//
	// Returns:
	//   - error: the first resource creation error
	Prepare(res Resources) error

	// View returns this frame's render view: the camera entity, order and clear colour,
	// plus one phase item per enabled object whose resources are ready and whose bounding
	// sphere touches the camera frustum.
	View() *render_graph.View

	// Release frees the GPU resources of the camera and every object. Models are left untouched.
	Release()
}

var _ Scene = &scene{}

// NewScene creates an active scene drawing with meshes.
//
// Panics if cam or meshes is nil.
//
// Parameters:
//   - name: the scene name
//   - cam: the camera the scene is viewed through
//   - meshes: the mesh pipeline created by the scene Plugin
//   - options: functional options
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, cam camera.Camera, meshes *MeshPipeline, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a camera")
	}
	if meshes == nil {
		panic("scene: NewScene requires a mesh pipeline")
	}
	s := &scene{
		name:     name,
		cam:      cam,
		meshes:   meshes,
		registry: make(map[uint64]game_object.GameObject),
		nextID:   1,
	}
	s.active.Store(true)
	s.cameraUniforms = bind_group_provider.NewBindGroupProvider(name+" camera",
		bind_group_provider.WithBindGroupLayout(meshes.CameraLayout))
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	return s.active.Load()
}

func (s *scene) SetActive(active bool) {
	s.active.Store(active)
}

func (s *scene) Entity() ecs.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entity
}

func (s *scene) SetEntity(e ecs.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entity = e
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	if obj.Model() == nil {
		panic("scene: Add requires an object with a Model")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(obj)
	return obj.ID()
}

// add registers obj. Caller must hold the mutex.
func (s *scene) add(obj game_object.GameObject) {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	s.nextID = max(s.nextID, obj.ID()+1)
	if obj.Uniforms() == nil {
		obj.SetUniforms(bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s object %d", s.name, obj.ID()),
			bind_group_provider.WithBindGroupLayout(s.meshes.ObjectLayout),
		))
	}
	s.registry[obj.ID()] = obj
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	obj, ok := s.registry[id]
	delete(s.registry, id)
	s.mu.Unlock()
	if ok {
		obj.Release()
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	objs := s.registry
	s.registry = make(map[uint64]game_object.GameObject)
	s.mu.Unlock()
	for _, obj := range objs {
		obj.Release()
	}
}

func (s *scene) Update(deltaTime float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.cam.Update()
	for _, obj := range s.registry {
		obj.Update(deltaTime)
	}
}

// objects returns the registered objects sorted by ID. Caller must hold the mutex.
func (s *scene) objects() []game_object.GameObject {
	ids := slices.Sorted(maps.Keys(s.registry))
	out := make([]game_object.GameObject, len(ids))
	for i, id := range ids {
		out[i] = s.registry[id]
	}
	return out
}

func (s *scene) Prepare(res Resources) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cameraUniforms.BindGroup() == nil {
		if err := res.InitBindGroup(s.cameraUniforms, CameraLayoutDescriptor(), nil); err != nil {
			return fmt.Errorf("scene %s: camera bind group: %w", s.name, err)
		}
	}
	uniform := s.cam.Uniform()
	writes := []bind_group_provider.BufferWrite{
		{Provider: s.cameraUniforms, Binding: 0, Data: uniform.Marshal()},
	}

	prepared := make(map[model.Model]bool)
	for _, obj := range s.objects() {
		mdl := obj.Model()
		if mdl == nil {
			continue
		}
		if !prepared[mdl] {
			if err := prepareMesh(res, mdl); err != nil {
				return fmt.Errorf("scene %s: model %s: %w", s.name, mdl.Name(), err)
			}
			prepared[mdl] = true
		}

		p := obj.Uniforms()
		if p.BindGroup() == nil {
			if err := res.InitBindGroup(p, ObjectLayoutDescriptor(), nil); err != nil {
				return fmt.Errorf("scene %s: object %d bind group: %w", s.name, obj.ID(), err)
			}
		}
		data := obj.ModelData()
		writes = append(writes, bind_group_provider.BufferWrite{Provider: p, Binding: 0, Data: data.Marshal()})
	}

	res.WriteBuffers(writes)
	return nil
}

// prepareMesh uploads a model's mesh the first time any scene draws it.
func prepareMesh(res Resources, mdl model.Model) error {
	p := mdl.MeshProvider()
	if p.VertexBuffer() != nil || mdl.IndexCount() == 0 {
		return nil
	}
	return res.InitMeshBuffers(p, mdl.VertexData(), mdl.IndexData(), mdl.IndexCount())
}

func (s *scene) View() *render_graph.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := &render_graph.View{
		Entity:     s.entity,
		Order:      s.cam.Order(),
		ClearColor: s.cam.ClearColor(),
	}
	camGroup := s.cameraUniforms.BindGroup()
	if camGroup == nil {
		return view
	}
	vp := s.cam.ViewProjectionMatrix()
	frustum := common.ExtractFrustumFromMatrix(vp[:])
	for _, obj := range s.objects() {
		if !obj.Enabled() || obj.Model() == nil || !visible(frustum, obj) {
			continue
		}
		mesh := obj.Model().MeshProvider()
		objGroup := obj.Uniforms().BindGroup()
		if objGroup == nil || mesh.VertexBuffer() == nil || mesh.IndexBuffer() == nil {
			continue
		}
		view.Items = append(view.Items, meshItem{
			pipeline:   s.meshes,
			camera:     camGroup,
			object:     objGroup,
			vertex:     mesh.VertexBuffer(),
			index:      mesh.IndexBuffer(),
			indexCount: uint32(mesh.IndexCount()),
		})
	}
	return view
}

// visible tests the object's bounding sphere, scaled by its largest axis, against the frustum.
func visible(f common.Frustum, obj game_object.GameObject) bool {
	x, y, z := obj.Position()
	sx, sy, sz := obj.Scale()
	scale := max(math32.Abs(sx), math32.Abs(sy), math32.Abs(sz))
	return f.ContainsSphere([3]float32{x, y, z}, obj.Model().BoundingRadius()*scale)
}

func (s *scene) Release() {
	s.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameraUniforms.Release()
}
