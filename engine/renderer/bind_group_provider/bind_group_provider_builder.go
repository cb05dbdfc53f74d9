package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption configures a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout hands the provider the layout its bind groups are built against.
// The provider owns it from then on and releases it in Release.
//
// Parameters:
//   - bgl: the layout derived from the shader's group annotations
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer stores a buffer that outlives panorama swaps, such as the uniform buffer.
// A nil buffer leaves the binding empty.
//
// Parameters:
//   - binding: the binding index the buffer is bound at
//   - buf: the buffer
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		if buf == nil {
			return
		}
		p.buffers[binding] = buf
	}
}
