package common

// Key is a keyboard key. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeySpace Key = 32
	KeyMinus Key = 45
	KeyEqual Key = 61

	KeyA Key = 65
	KeyD Key = 68
	KeyP Key = 80
	KeyS Key = 83
	KeyW Key = 87

	KeyEscape Key = 256
	KeyRight  Key = 262
	KeyLeft   Key = 263
	KeyDown   Key = 264
	KeyUp     Key = 265
)
