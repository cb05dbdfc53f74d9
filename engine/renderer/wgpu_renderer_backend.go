package renderer

import (
	"errors"
	"fmt"
	"image/color"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
	"github.com/Carmen-Shannon/oxy-pano/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-pano/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-pano/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	bindingUniform = 0
	bindingTexture = 1
	bindingSampler = 2
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeFifo (VSync)
	width, height int
	clearColor    wgpu.Color
	background    color.RGBA

	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
	uniform  GPUPanoramaUniform
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// panoramaShader expands panoramaShaderSource and derives its group 0 layout from the annotations.
func panoramaShader() (string, wgpu.BindGroupLayoutDescriptor, error) {
	var cam camera.GPUCameraUniform
	var u GPUPanoramaUniform
	pp := shader.NewPreProcessor(
		shader.WithStruct("camera", shader.Struct{Type: "CameraUniform", Source: camera.GPUCameraUniformSource, Size: uint64(cam.Size())}),
		shader.WithStruct("panorama", shader.Struct{Type: "PanoramaUniform", Source: GPUPanoramaUniformSource, Size: uint64(u.Size())}),
	)
	source, err := pp.Process(panoramaShaderSource)
	if err != nil {
		return "", wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("panorama shader: %w", err)
	}
	layout, err := shader.BindGroupLayout(pp, "Panorama Bind Group Layout", 0, wgpu.ShaderStageFragment)
	if err != nil {
		return "", wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("panorama shader: %w", err)
	}
	return source, layout, nil
}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, mode PresentMode, background color.RGBA) (*wgpuRendererBackendImpl, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("wgpu backend needs a surface descriptor")
	}
	source, layout, err := panoramaShader()
	if err != nil {
		return nil, err
	}
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		background:  background,
		clearColor: wgpu.Color{
			R: float64(background.R) / 255,
			G: float64(background.G) / 255,
			B: float64(background.B) / 255,
			A: 1,
		},
		pipeline: pipeline.NewPipeline("panorama",
			pipeline.WithSource(source),
			pipeline.WithBindGroupLayout(0, layout),
		),
	}
	if mode == PresentModeUncapped {
		w.presentMode = wgpu.PresentModeImmediate
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Panorama Device",
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	capabilities := w.surface.GetCapabilities(w.adapter)
	if len(capabilities.Formats) == 0 {
		w.Release()
		return nil, errors.New("surface reports no texture formats")
	}
	w.surfaceFormat = &capabilities.Formats[0]

	if err := w.registerPipeline(); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 || b.surface == nil {
		return
	}
	b.width, b.height = width, height

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

// registerPipeline creates the shader module, bind group layout, pipeline layout and render
// pipeline for the panorama.
func (b *wgpuRendererBackendImpl) registerPipeline() error {
	p := b.pipeline
	if err := p.Validate(); err != nil {
		return err
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.PipelineKey(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.Source(),
		},
	})
	if err != nil {
		return fmt.Errorf("shader module: %w", err)
	}
	defer module.Release()

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, 0, len(p.BindGroupLayouts()))
	for g, desc := range p.BindGroupLayouts() {
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts = append(bindGroupLayouts, layout)
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.PipelineKey() + " Uniform Buffer",
		Size:  uint64(b.uniform.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.provider = bind_group_provider.NewBindGroupProvider(p.PipelineKey(),
		bind_group_provider.WithBindGroupLayout(bindGroupLayouts[0]),
		bind_group_provider.WithBuffer(bindingUniform, buf),
	)

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: p.VertexEntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: p.FragmentEntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					Blend:     p.BlendState(),
					WriteMask: p.WriteMask(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) Upload(d *adapter.Drawable) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(d.Faces) == 0 {
		return errors.New("drawable has no faces")
	}
	width, height := d.Faces[0].Width, d.Faces[0].Height
	for i, f := range d.Faces {
		if f.Width != width || f.Height != height {
			return fmt.Errorf("face %d is %dx%d, want %dx%d", i, f.Width, f.Height, width, height)
		}
	}
	layers := uint32(len(d.Faces))

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     b.provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	for layer, face := range d.Faces {
		err = b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(layer)},
				Aspect:   wgpu.TextureAspectAll,
			},
			face.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * 4,
				RowsPerImage: height,
			},
			&wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
		)
		if err != nil {
			tex.Release()
			return fmt.Errorf("write face %d: %w", layer, err)
		}
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           b.provider.Label() + " Texture View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return err
	}
	b.provider.ReleaseTextures()
	b.provider.SetTexture(bindingTexture, tex, view)

	s := d.Sampler
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         b.provider.Label() + " Sampler",
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	})
	if err != nil {
		return err
	}
	b.provider.SetSampler(bindingSampler, samp)

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.provider.Label() + " Bind Group",
		Layout: b.provider.BindGroupLayout(),
		Entries: []wgpu.BindGroupEntry{
			{Binding: bindingUniform, Buffer: b.provider.Buffer(bindingUniform), Size: wgpu.WholeSize},
			{Binding: bindingTexture, TextureView: view},
			{Binding: bindingSampler, Sampler: samp},
		},
	})
	if err != nil {
		return err
	}
	b.provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(c camera.Camera, d *adapter.Drawable) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider.BindGroup() == nil {
		return errors.New("no panorama uploaded")
	}
	if b.width == 0 || b.height == 0 {
		return nil
	}

	b.uniform = newPanoramaUniform(c, d, b.background)
	uniformWrite := bind_group_provider.BufferWrite{Provider: b.provider, Binding: bindingUniform, Data: b.uniform.Marshal()}
	if err := uniformWrite.Apply(b.queue); err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	})
	pass.SetPipeline(b.pipeline.Pipeline())
	pass.SetBindGroup(0, b.provider.BindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		pass.Release()
		return err
	}
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()

	b.queue.Submit(commandBuffer)
	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider != nil {
		b.provider.Release()
	}
	if b.pipeline != nil {
		b.pipeline.Release()
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
