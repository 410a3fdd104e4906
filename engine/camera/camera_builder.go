package camera

import "github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"

// CameraBuilderOption is a functional option applied by NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithOrder sets the camera's render order. Cameras sharing a target render lowest order first.
//
// Parameters:
//   - order: the render order
//
// Returns:
//   - CameraBuilderOption: a function that sets the order
func WithOrder(order int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.order = order
	}
}

// WithClearColor sets how the camera's first write of a frame treats the target.
//
// Parameters:
//   - clear: ClearColorDefault, ClearColorCustom or ClearColorNone
//
// Returns:
//   - CameraBuilderOption: a function that sets the clear configuration
func WithClearColor(clear render_graph.ClearColorConfig) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clearColor = clear
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = [3]float32{x, y, z}
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithController attaches the controller that positions the camera.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: a function that attaches the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
