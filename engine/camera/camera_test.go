package camera_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/camera"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerKeepsExplicitPosition(t *testing.T) {
	cc := camera.NewCameraController(camera.WithTarget(0, 0, 0), camera.WithPosition(10, 10, 10))

	x, y, z := cc.Position()
	assert.InDelta(t, 10, x, 1e-3)
	assert.InDelta(t, 10, y, 1e-3)
	assert.InDelta(t, 10, z, 1e-3)
	assert.InDelta(t, math.Sqrt(300), cc.Radius(), 1e-3)
}

func TestControllerClampsZoomAndElevation(t *testing.T) {
	cc := camera.NewCameraController(camera.WithRadius(5), camera.WithRadiusBounds(2, 8), camera.WithOrbitSpeed(1))

	cc.Zoom(100)
	assert.InDelta(t, 2, cc.Radius(), 1e-6)
	cc.Zoom(-100)
	assert.InDelta(t, 8, cc.Radius(), 1e-6)

	for range 10 {
		cc.OrbitUp()
	}
	assert.Less(t, cc.Elevation(), float32(math.Pi/2))
}

func TestSetTargetKeepsOrbit(t *testing.T) {
	cc := camera.NewCameraController(camera.WithPosition(0, 0, 5))
	cc.SetTarget(1, 0, 0)

	x, y, z := cc.Position()
	assert.InDelta(t, 1, x, 1e-4)
	assert.InDelta(t, 0, y, 1e-4)
	assert.InDelta(t, 5, z, 1e-4)
}

func TestCameraDefaults(t *testing.T) {
	c := camera.NewCamera()

	assert.Equal(t, 0, c.Order())
	assert.Equal(t, render_graph.ClearColorDefault(), c.ClearColor())
	assert.Nil(t, c.Controller())
}

func TestCameraOptions(t *testing.T) {
	c := camera.NewCamera(
		camera.WithOrder(-1),
		camera.WithClearColor(render_graph.ClearColorNone()),
	)

	assert.Equal(t, -1, c.Order())
	_, clears := c.ClearColor().Value()
	assert.False(t, clears)
}

func TestCameraUniformProjectsTarget(t *testing.T) {
	cc := camera.NewCameraController(camera.WithTarget(0, 0, 0), camera.WithPosition(10, 10, 10))
	c := camera.NewCamera(camera.WithController(cc))

	u := c.Uniform()
	assert.InDelta(t, 10, u.CameraPosition[0], 1e-3)

	// The target sits in front of the camera: positive clip w, centred on screen.
	vp := u.ViewProj
	clipX := vp[12]
	clipY := vp[13]
	clipW := vp[15]
	require.Greater(t, clipW, float32(0))
	assert.InDelta(t, 0, clipX/clipW, 1e-4)
	assert.InDelta(t, 0, clipY/clipW, 1e-4)
}

func TestCameraUniformMarshal(t *testing.T) {
	u := camera.GPUCameraUniform{CameraPosition: [3]float32{1, 2, 3}}
	u.ViewProj[0] = 4

	buf := u.Marshal()

	require.Len(t, buf, 80)
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[68:])))
}
