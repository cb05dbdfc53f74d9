package shader

import (
	"fmt"
	"strings"
	"sync"
)

// Struct is a registered WGSL struct that annotations can include and bind.
type Struct struct {
	// Type is the WGSL type name emitted in generated declarations.
	Type string

	// Source is the WGSL struct definition injected by include annotations.
	Source string

	// Size is the struct size in bytes, used as the minimum binding size.
	Size uint64
}

type preProcessor struct {
	mu           *sync.Mutex
	structs      map[string]Struct
	declarations []Annotation
}

// PreProcessor expands @pano: annotations and records the bindings they declare.
type PreProcessor interface {
	// Process replaces annotations with their WGSL output. Include annotations inject struct
	// sources, each at most once. Group annotations become @group/@binding declarations.
	// Resource annotations are only recorded.
	//
	// Parameters:
	//   - source: annotated WGSL source
	//
	// Returns:
	//   - string: the processed source
	//   - error: an error if an annotation is malformed, references an unknown struct or reuses a binding slot
	Process(source string) (string, error)

	// Declarations returns the group and resource annotations collected by the last Process call,
	// in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation

	// Struct looks up a registered struct.
	//
	// Parameters:
	//   - key: the registry key used by annotations
	//
	// Returns:
	//   - Struct: the registered struct
	//   - bool: false when the key is unknown
	Struct(key string) (Struct, bool)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with the given struct registry.
//
// Parameters:
//   - options: functional options registering structs
//
// Returns:
//   - PreProcessor: the new pre-processor
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		mu:      &sync.Mutex{},
		structs: make(map[string]Struct),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.declarations = p.declarations[:0]
	included := make(map[string]bool)
	slots := make(map[[2]int]int)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		if a.Type != AnnotationTypeInclude {
			slot := [2]int{a.Group, a.Binding}
			if prev, ok := slots[slot]; ok {
				return "", fmt.Errorf("line %d: group %d binding %d already declared on line %d", a.Line, a.Group, a.Binding, prev)
			}
			slots[slot] = a.Line
		}

		switch a.Type {
		case AnnotationTypeInclude:
			s, ok := p.structs[a.Struct]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct %q", a.Line, a.Struct)
			}
			if !included[a.Struct] {
				out = append(out, s.Source)
				included[a.Struct] = true
			}
		case AnnotationTypeGroup:
			s, ok := p.structs[a.Struct]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct %q", a.Line, a.Struct)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", a.Group, a.Binding, addressSpaceSyntax[a.AddressSpace], a.Var, s.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeResource:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Annotation, len(p.declarations))
	copy(out, p.declarations)
	return out
}

func (p *preProcessor) Struct(key string) (Struct, bool) {
	s, ok := p.structs[key]
	return s, ok
}
