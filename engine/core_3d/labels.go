// Package core_3d provides the fixed stages of the 3D render graph and the nodes that
// render the main pass and copy the result to the window.
package core_3d

import (
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// Fixed stage labels, in run order.
const (
	Prepass                   render_graph.Label = "prepass"
	StartMainPass             render_graph.Label = "start_main_pass"
	MainOpaquePass            render_graph.Label = "main_opaque_pass"
	EndMainPass               render_graph.Label = "end_main_pass"
	EndMainPassPostProcessing render_graph.Label = "end_main_pass_post_processing"
	Upscaling                 render_graph.Label = "upscaling"
)

// Stages lists the fixed stage labels in run order.
var Stages = []render_graph.Label{
	Prepass,
	StartMainPass,
	MainOpaquePass,
	EndMainPass,
	EndMainPassPostProcessing,
	Upscaling,
}

// MainTextureFormat is the format of every view's main color textures.
const MainTextureFormat = wgpu.TextureFormatRGBA8UnormSrgb
