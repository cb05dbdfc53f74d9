package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewPipelineDefaults(t *testing.T) {
	t.Parallel()

	p := NewPipeline("panorama", WithSource("@vertex fn vs_main() {}"))
	if p.PipelineKey() != "panorama" {
		t.Fatalf("key = %q", p.PipelineKey())
	}
	if p.VertexEntryPoint() != "vs_main" || p.FragmentEntryPoint() != "fs_main" {
		t.Fatalf("entry points = %q %q", p.VertexEntryPoint(), p.FragmentEntryPoint())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList || p.CullMode() != wgpu.CullModeNone {
		t.Fatalf("unexpected fixed-function defaults")
	}
	if p.BlendState() != nil {
		t.Fatalf("blend state should be nil while blending is disabled")
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Pipeline() != nil {
		t.Fatalf("GPU pipeline should not exist before creation")
	}
	p.Release()
}

func TestValidateRequiresSourceAndEntryPoints(t *testing.T) {
	t.Parallel()

	if err := NewPipeline("empty").Validate(); err == nil {
		t.Fatalf("expected error for missing source")
	}
	if err := NewPipeline("noentry", WithSource("x"), WithEntryPoints("", "fs")).Validate(); err == nil {
		t.Fatalf("expected error for missing vertex entry point")
	}
}

func TestWithBindGroupLayoutPadsGroups(t *testing.T) {
	t.Parallel()

	p := NewPipeline("groups", WithBindGroupLayout(2, wgpu.BindGroupLayoutDescriptor{Label: "third"}))
	layouts := p.BindGroupLayouts()
	if len(layouts) != 3 || layouts[2].Label != "third" || layouts[0].Label != "" {
		t.Fatalf("layouts = %+v", layouts)
	}

	p = NewPipeline("blend", WithBlendEnabled(true))
	if p.BlendState() == nil {
		t.Fatalf("blend state missing when blending is enabled")
	}
}
