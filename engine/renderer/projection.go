package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/go-gl/mathgl/mgl32"
)

// SphereUV maps a view direction onto equirectangular texture coordinates. u grows eastwards
// from the -Z seam at u = 0.5; v grows downwards from the zenith.
//
// Parameters:
//   - d: a unit view direction
//
// Returns:
//   - u, v: texture coordinates in [0, 1]
func SphereUV(d mgl32.Vec3) (u, v float32) {
	y := math.Max(-1, math.Min(1, float64(d.Y())))
	u = float32(0.5 + math.Atan2(float64(d.X()), -float64(d.Z()))/(2*math.Pi))
	v = float32(0.5 - math.Asin(y)/math.Pi)
	return u, v
}

// CubeFaceUV picks the cube face a view direction hits and the coordinates on that face.
// Each face is mapped as seen from inside the cube: u grows to the viewer's right and v grows
// downwards. The top face's lower edge and the bottom face's upper edge meet the front face.
//
// Parameters:
//   - d: a view direction, need not be normalized
//
// Returns:
//   - face: the face index in texture layer order
//   - u, v: coordinates on the face in [0, 1]
func CubeFaceUV(d mgl32.Vec3) (face adapter.CubeFace, u, v float32) {
	x, y, z := d.X(), d.Y(), d.Z()
	ax, ay, az := abs32(x), abs32(y), abs32(z)

	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma, tc = ax, -y
		if x > 0 {
			face, sc = adapter.FaceRight, z
		} else {
			face, sc = adapter.FaceLeft, -z
		}
	case ay >= az:
		ma, sc = ay, x
		if y > 0 {
			face, tc = adapter.FaceTop, -z
		} else {
			face, tc = adapter.FaceBottom, z
		}
	default:
		ma, tc = az, -y
		if z > 0 {
			face, sc = adapter.FaceBack, -x
		} else {
			face, sc = adapter.FaceFront, x
		}
	}
	if ma == 0 {
		return adapter.FaceFront, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// panoramaShaderSource renders the panorama with a single full-screen triangle. Each fragment
// rebuilds its view ray from the inverse view-projection matrix and samples either the
// equirectangular layer or one of six cube layers with the same mapping as SphereUV and CubeFaceUV.
// It is annotated for the shader pre-processor, see panoramaShader.
const panoramaShaderSource = `
//@pano:include camera
//@pano:include panorama

//@pano:group 0 0 uniform u panorama
//@pano:resource 0 1 texture_2d_array
@group(0) @binding(1) var pano_tex: texture_2d_array<f32>;
//@pano:resource 0 2 sampler
@group(0) @binding(2) var pano_sampler: sampler;

const PI: f32 = 3.14159265358979;

struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) ndc: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> VertexOut {
    let x = f32((i << 1u) & 2u) * 2.0 - 1.0;
    let y = f32(i & 2u) * 2.0 - 1.0;
    var out: VertexOut;
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.ndc = vec2<f32>(x, y);
    return out;
}

fn view_ray(ndc: vec2<f32>) -> vec3<f32> {
    let p = u.camera.inv_view_proj * vec4<f32>(ndc, 1.0, 1.0);
    return normalize(p.xyz / p.w);
}

fn sample_cube(d: vec3<f32>) -> vec4<f32> {
    let a = abs(d);
    var layer: i32;
    var sc: f32;
    var tc: f32;
    var ma: f32;
    if (a.x >= a.y && a.x >= a.z) {
        ma = a.x;
        tc = -d.y;
        if (d.x > 0.0) { layer = 0; sc = d.z; } else { layer = 1; sc = -d.z; }
    } else if (a.y >= a.z) {
        ma = a.y;
        sc = d.x;
        if (d.y > 0.0) { layer = 2; tc = -d.z; } else { layer = 3; tc = d.z; }
    } else {
        ma = a.z;
        tc = -d.y;
        if (d.z > 0.0) { layer = 4; sc = -d.x; } else { layer = 5; sc = d.x; }
    }
    let uv = (vec2<f32>(sc, tc) / ma + vec2<f32>(1.0)) * 0.5;
    return textureSampleLevel(pano_tex, pano_sampler, uv, layer, 0.0);
}

fn sample_sphere(d: vec3<f32>) -> vec4<f32> {
    let uv = vec2<f32>(
        0.5 + atan2(d.x, -d.z) / (2.0 * PI),
        0.5 - asin(clamp(d.y, -1.0, 1.0)) / PI,
    );
    let local = (uv - u.crop.xy) / u.crop.zw;
    if (any(local < vec2<f32>(0.0)) || any(local > vec2<f32>(1.0))) {
        return u.background;
    }
    return textureSampleLevel(pano_tex, pano_sampler, local, 0, 0.0);
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let d = view_ray(in.ndc);
    if (u.params.x > 0.5) {
        return sample_cube(d);
    }
    return sample_sphere(d);
}
`
