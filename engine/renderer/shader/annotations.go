// Package shader pre-processes annotated WGSL sources. Annotations are single-line comments
// prefixed with @pano: that inject registered struct definitions, generate @group/@binding
// declarations and record every binding so the bind group layout can be derived from the
// shader instead of being written by hand.
//
// Syntax:
//
//	//@pano:include <struct>
//	//@pano:group <group> <binding> <address_space> <var_name> <struct>
//	//@pano:resource <group> <binding> <kind>
//
// A resource annotation produces no WGSL. The texture or sampler declaration stays hand-written
// directly below it.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const annotationPrefix = "@pano:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered struct source at the annotation site.
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeGroup generates a buffer binding declaration for a registered struct.
	AnnotationTypeGroup AnnotationType = "group"

	// AnnotationTypeResource records a hand-declared texture or sampler binding.
	AnnotationTypeResource AnnotationType = "resource"
)

// AddressSpace is the buffer address space of a group annotation.
type AddressSpace string

const (
	AddressSpaceUniform     AddressSpace = "uniform"
	AddressSpaceStorageRead AddressSpace = "storage_read"
)

var addressSpaceSyntax = map[AddressSpace]string{
	AddressSpaceUniform:     "var<uniform>",
	AddressSpaceStorageRead: "var<storage, read>",
}

// ResourceKind is the binding kind of a resource annotation.
type ResourceKind string

const (
	ResourceTexture2D      ResourceKind = "texture_2d"
	ResourceTexture2DArray ResourceKind = "texture_2d_array"
	ResourceTextureCube    ResourceKind = "texture_cube"
	ResourceSampler        ResourceKind = "sampler"
)

var resourceKinds = []ResourceKind{ResourceTexture2D, ResourceTexture2DArray, ResourceTextureCube, ResourceSampler}

// Annotation is a single parsed @pano: annotation.
type Annotation struct {
	Type AnnotationType

	// Line is the 1-based source line, used for error reporting.
	Line int

	// Group and Binding are set for group and resource annotations.
	Group   int
	Binding int

	// Struct is the registered struct key for include and group annotations.
	Struct string

	// AddressSpace and Var are set for group annotations.
	AddressSpace AddressSpace
	Var          string

	// Kind is set for resource annotations.
	Kind ResourceKind
}

// parseAnnotation returns nil without error for lines that carry no annotation.
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @pano annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @pano include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Line: lineNum, Struct: args[1]}, nil

	case AnnotationTypeGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @pano group annotation requires group, binding, address space, var name and struct", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		space := AddressSpace(args[3])
		if _, ok := addressSpaceSyntax[space]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q", lineNum, args[3])
		}
		return &Annotation{
			Type:         AnnotationTypeGroup,
			Line:         lineNum,
			Group:        group,
			Binding:      binding,
			AddressSpace: space,
			Var:          args[4],
			Struct:       args[5],
		}, nil

	case AnnotationTypeResource:
		if len(args) != 4 {
			return nil, fmt.Errorf("line %d: @pano resource annotation requires group, binding and kind", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		kind := ResourceKind(args[3])
		if !slices.Contains(resourceKinds, kind) {
			return nil, fmt.Errorf("line %d: unknown resource kind %q", lineNum, args[3])
		}
		return &Annotation{Type: AnnotationTypeResource, Line: lineNum, Group: group, Binding: binding, Kind: kind}, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @pano annotation type %q", lineNum, args[0])
	}
}

func parseSlot(group, binding string, lineNum int) (int, int, error) {
	g, err := strconv.Atoi(group)
	if err != nil || g < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q", lineNum, group)
	}
	b, err := strconv.Atoi(binding)
	if err != nil || b < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q", lineNum, binding)
	}
	return g, b, nil
}
