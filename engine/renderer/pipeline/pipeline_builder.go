package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithSource sets the WGSL module holding the vertex and fragment entry points.
//
// Parameters:
//   - source: the WGSL shader source
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader source for this pipeline
func WithSource(source string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.source = source
	}
}

// WithEntryPoints overrides the default vs_main / fs_main entry point names.
//
// Parameters:
//   - vertex: the vertex stage function name
//   - fragment: the fragment stage function name
//
// Returns:
//   - PipelineBuilderOption: a function that sets the entry points for this pipeline
func WithEntryPoints(vertex, fragment string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexEntryPoint = vertex
		p.fragmentEntryPoint = fragment
	}
}

// WithBindGroupLayout sets the layout of one bind group. Groups are indexed by their position;
// setting group 2 before groups 0 and 1 leaves empty layouts in between.
//
// Parameters:
//   - group: the bind group index used in the shader's @group attribute
//   - descriptor: the layout descriptor
//
// Returns:
//   - PipelineBuilderOption: a function that sets the bind group layout for this pipeline
func WithBindGroupLayout(group int, descriptor wgpu.BindGroupLayoutDescriptor) PipelineBuilderOption {
	return func(p *pipeline) {
		for len(p.bindGroupLayouts) <= group {
			p.bindGroupLayouts = append(p.bindGroupLayouts, wgpu.BindGroupLayoutDescriptor{})
		}
		p.bindGroupLayouts[group] = descriptor
	}
}

// WithBlendEnabled sets whether blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

