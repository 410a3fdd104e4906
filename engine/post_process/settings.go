package post_process

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
)

//go:embed assets/post_process_settings.wgsl
var settingsSource string

// SettingsStruct is the WGSL definition of Settings.
var SettingsStruct = shader.StructSource{
	Key:    "post_process_settings",
	Type:   "PostProcessSettings",
	Source: settingsSource,
}

// Settings is attached to a camera entity to enable the post-process pass for that view.
// It maps to the WGSL struct PostProcessSettings { color: vec4<f32> }.
type Settings struct {
	// Color is the linear RGBA color the view is blended toward. Alpha scales the blend.
	Color [4]float32
}

var _ extract.Uniform = Settings{}

// Size returns the byte size of the WGSL struct.
func (s Settings) Size() int {
	return int(unsafe.Sizeof(s))
}

// Marshal returns the raw bytes of the settings for upload.
func (s Settings) Marshal() []byte {
	return common.StructToBytes(&s)
}
