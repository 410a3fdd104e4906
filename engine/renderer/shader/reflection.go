package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrInvalidWGSL wraps every parse, lowering or validation failure reported by Reflect.
var ErrInvalidWGSL = errors.New("shader: invalid WGSL")

// Stage is a pipeline stage an entry point runs in.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// BindingKind classifies a resource binding.
type BindingKind int

const (
	BindingKindUniform BindingKind = iota
	BindingKindStorage
	BindingKindTexture
	BindingKindDepthTexture
	BindingKindStorageTexture
	BindingKindSampler
	BindingKindComparisonSampler
)

// EntryPoint is a shader entry point.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// Binding is a module-scope resource with an @group/@binding attribute.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Kind    BindingKind
}

// Reflection describes the interface of a WGSL module.
type Reflection struct {
	EntryPoints []EntryPoint
	Bindings    []Binding
}

// EntryPoint returns the entry point with the given name.
func (r *Reflection) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// HasEntryPoint reports whether the module declares name for stage.
func (r *Reflection) HasEntryPoint(name string, stage Stage) bool {
	ep, ok := r.EntryPoint(name)
	return ok && ep.Stage == stage
}

// Group returns the bindings of one bind group, in declaration order.
func (r *Reflection) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// Reflect parses, lowers and validates WGSL source and describes the resulting module.
//
// Parameters:
//   - source: the WGSL source (already pre-processed)
//
// Returns:
//   - *Reflection: the module's entry points and resource bindings
//   - error: an error wrapping ErrInvalidWGSL if the source does not compile
func Reflect(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	if len(issues) > 0 {
		errs := make([]error, 0, len(issues))
		for _, issue := range issues {
			errs = append(errs, issue)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, errors.Join(errs...))
	}

	r := &Reflection{}
	for _, ep := range module.EntryPoints {
		r.EntryPoints = append(r.EntryPoints, EntryPoint{Name: ep.Name, Stage: stageOf(ep.Stage)})
	}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		r.Bindings = append(r.Bindings, Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
			Kind:    bindingKindOf(module, gv),
		})
	}
	return r, nil
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageVertex
	}
}

func bindingKindOf(module *ir.Module, gv ir.GlobalVariable) BindingKind {
	switch gv.Space {
	case ir.SpaceUniform:
		return BindingKindUniform
	case ir.SpaceStorage:
		return BindingKindStorage
	}
	if int(gv.Type) >= len(module.Types) {
		return BindingKindTexture
	}
	switch inner := module.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		if inner.Comparison {
			return BindingKindComparisonSampler
		}
		return BindingKindSampler
	case ir.ImageType:
		switch inner.Class {
		case ir.ImageClassDepth:
			return BindingKindDepthTexture
		case ir.ImageClassStorage:
			return BindingKindStorageTexture
		}
	}
	return BindingKindTexture
}
