// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// registered struct sources or generated binding declarations and records the binding
// declarations it generated.
package shader

import (
	"fmt"
	"strings"
)

// StructSource is a WGSL struct definition that shaders can include by key.
type StructSource struct {
	// Key is the annotation argument naming the struct.
	Key AnnotationArg

	// Type is the WGSL type name declared by Source.
	Type string

	// Source is the WGSL struct definition.
	Source string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]StructSource
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands every annotation in source. Declarations are reset on each call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed or references an unknown struct
	Process(source string) (string, error)

	// Declarations returns the group annotations expanded by the last Process call, in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor that knows the given structs.
//
// Parameters:
//   - structs: the struct sources available to include and group annotations
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(structs ...StructSource) PreProcessor {
	p := &preProcessor{
		structRegistry: make(map[AnnotationArg]StructSource, len(structs)),
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
	for _, s := range structs {
		p.structRegistry[s.Key] = s
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Args[0])
			}
			// a struct may only be declared once per module
			if !included[entry.Key] {
				out = append(out, entry.Source)
				included[entry.Key] = true
			}
		case AnnotationTypeBindingGroup:
			entry, ok := p.structRegistry[a.Args[2]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", a.Line, a.Args[2])
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
