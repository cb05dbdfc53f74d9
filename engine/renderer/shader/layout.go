package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

var resourceViewDimensions = map[ResourceKind]wgpu.TextureViewDimension{
	ResourceTexture2D:      wgpu.TextureViewDimension2D,
	ResourceTexture2DArray: wgpu.TextureViewDimension2DArray,
	ResourceTextureCube:    wgpu.TextureViewDimensionCube,
}

// BindGroupLayout derives the layout of one bind group from the declarations recorded by p.
// Entries are ordered by binding index.
//
// Parameters:
//   - p: a pre-processor that has processed the shader
//   - label: the layout label
//   - group: the bind group index
//   - visibility: the shader stages that access the bindings
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
//   - error: an error if the group declares nothing
func BindGroupLayout(p PreProcessor, label string, group int, visibility wgpu.ShaderStage) (wgpu.BindGroupLayoutDescriptor, error) {
	var entries []wgpu.BindGroupLayoutEntry
	for _, a := range p.Declarations() {
		if a.Group != group {
			continue
		}
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(a.Binding),
			Visibility: visibility,
		}
		switch a.Type {
		case AnnotationTypeGroup:
			s, _ := p.Struct(a.Struct)
			entry.Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: s.Size,
			}
			if a.AddressSpace == AddressSpaceStorageRead {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			}
		case AnnotationTypeResource:
			if a.Kind == ResourceSampler {
				entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
			} else {
				entry.Texture = wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: resourceViewDimensions[a.Kind],
				}
			}
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("shader declares no bindings in group %d", group)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return wgpu.BindGroupLayoutDescriptor{Label: label, Entries: entries}, nil
}
