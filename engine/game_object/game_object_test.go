package game_object_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/game_object"
	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	obj := game_object.NewGameObject()

	assert.True(t, obj.Enabled())
	sx, sy, sz := obj.Scale()
	assert.Equal(t, [3]float32{1, 1, 1}, [3]float32{sx, sy, sz})
	assert.Equal(t, [4]float32{1, 1, 1, 1}, obj.Color())
	assert.Nil(t, obj.Model())
	assert.Nil(t, obj.Uniforms())
}

func TestModelDataCarriesTransformAndColor(t *testing.T) {
	green := [4]float32{0, 1, 0, 1}
	obj := game_object.NewGameObject(
		game_object.WithModel(model.NewModel(model.WithMesh(model.Cube(3)))),
		game_object.WithPosition(1, 2, 3),
		game_object.WithScale(2, 2, 2),
		game_object.WithColor(green),
	)

	d := obj.ModelData()

	assert.Equal(t, green, d.Color)
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{d.Model[12], d.Model[13], d.Model[14]})
	assert.InDelta(t, 2, d.Model[0], 1e-6)
	assert.InDelta(t, 2, d.Model[5], 1e-6)
	assert.InDelta(t, 2, d.Model[10], 1e-6)
	assert.Equal(t, float32(1), d.Model[15])
}

func TestUpdateAppliesRotationSpeed(t *testing.T) {
	obj := game_object.NewGameObject(game_object.WithRotationSpeed(0, 2, 0))

	obj.Update(0.5)
	obj.Update(0.25)

	_, ry, _ := obj.Rotation()
	assert.InDelta(t, 1.5, ry, 1e-6)
}

func TestReleaseDropsUniforms(t *testing.T) {
	obj := game_object.NewGameObject()
	obj.SetUniforms(bind_group_provider.NewBindGroupProvider("obj"))

	obj.Release()

	assert.Nil(t, obj.Uniforms())
}
