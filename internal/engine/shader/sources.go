package shader

// Vertex attribute locations shared by every program: 0 position, 1 color,
// 2 normal, 3 texture coordinate (u, v, layer).

// WorldVertex transforms scene geometry by the camera MVP and forwards the
// light-space position for shadow lookup.
const WorldVertex = `#version 410 core
layout(location = 0) in vec3 vertex_position;
layout(location = 1) in vec3 vertex_color;
layout(location = 2) in vec3 vertex_normal;
layout(location = 3) in vec3 vertex_tex_coords;

uniform mat4 matrix;
uniform mat4 light_space_matrix;

out vec3 local_position;
out vec3 interpolated_color;
out vec3 interpolated_normal;
out vec3 interpolated_tex_coords;
out vec4 light_space_position;

void main() {
	local_position = vertex_position;
	interpolated_color = vertex_color;
	interpolated_normal = vertex_normal;
	interpolated_tex_coords = vertex_tex_coords;
	light_space_position = light_space_matrix * vec4(vertex_position, 1.0);
	gl_Position = matrix * vec4(vertex_position, 1.0);
}
`

// WorldFragment shades textured and flat-colored geometry. Layer -2 marks a
// tombstoned slot and is discarded; any other negative layer is untextured.
const WorldFragment = `#version 410 core
in vec3 local_position;
in vec3 interpolated_color;
in vec3 interpolated_normal;
in vec3 interpolated_tex_coords;
in vec4 light_space_position;

uniform sampler2DArray texture_array_sampler;
uniform sampler2DArray avatar_array_sampler;
uniform sampler2D shadow_map;
uniform int tile_texture;
uniform int shadows_enabled;
uniform vec3 camera;
uniform vec3 sun_position;

out vec4 fragment_color;

float shadow_factor(vec3 normal) {
	if (shadows_enabled == 0) {
		return 0.0;
	}
	vec3 projected = light_space_position.xyz / light_space_position.w;
	projected = projected * 0.5 + 0.5;
	if (projected.z > 1.0) {
		return 0.0;
	}
	float bias = max(0.005 * (1.0 - dot(normal, normalize(sun_position))), 0.0005);
	float closest = texture(shadow_map, projected.xy).r;
	return projected.z - bias > closest ? 1.0 : 0.0;
}

void main() {
	float layer = interpolated_tex_coords.z;
	if (layer < -1.5) {
		discard;
	}

	vec4 base = vec4(interpolated_color, 1.0);
	if (layer >= 0.0) {
		if (tile_texture == 1) {
			base = texture(texture_array_sampler, interpolated_tex_coords);
		} else {
			base = texture(avatar_array_sampler, interpolated_tex_coords);
		}
		if (base.a < 0.1) {
			discard;
		}
	}

	vec3 normal = normalize(interpolated_normal);
	float daylight = clamp(sun_position.y * 4.0, 0.15, 1.0);
	float diffuse = max(dot(normal, normalize(sun_position)), 0.0);
	float fog = clamp(distance(camera, local_position) / 120.0, 0.0, 1.0);
	float lit = 0.45 + 0.55 * diffuse * (1.0 - shadow_factor(normal));

	vec3 color = base.rgb * lit * daylight;
	color = mix(color, vec3(0.529, 0.808, 0.922) * daylight, fog * fog);
	fragment_color = vec4(color, base.a);
}
`

// SkyVertex draws a fullscreen quad and reconstructs the view ray.
const SkyVertex = `#version 410 core
layout(location = 0) in vec3 vertex_position;

uniform mat4 rotation_matrix;
uniform mat4 projection_matrix;

out vec3 view_ray;

void main() {
	vec2 ndc = vertex_position.xy;
	vec4 eye = inverse(projection_matrix) * vec4(ndc, 1.0, 1.0);
	view_ray = (inverse(rotation_matrix) * vec4(eye.xyz / eye.w, 0.0)).xyz;
	gl_Position = vec4(ndc, 0.9999, 1.0);
}
`

// SkyFragment renders atmosphere, sun and moon disks and an optional
// celestial grid. The moon is lit from the sun, so it shows its phase.
const SkyFragment = `#version 410 core
in vec3 view_ray;

uniform mat4 celestial_matrix;
uniform vec3 sun_position;
uniform vec3 moon_position;
uniform mat4 moon_matrix;
uniform int show_grid;
uniform int show_atmosphere;

out vec4 fragment_color;

const float PI = 3.14159265359;
const float MOON_RADIUS = 0.0045;

void main() {
	vec3 ray = normalize(view_ray);
	vec3 sun = normalize(sun_position);

	vec3 night = vec3(0.01, 0.01, 0.04);
	vec3 color = night;
	if (show_atmosphere == 1) {
		float day = clamp(sun.y * 4.0 + 0.5, 0.0, 1.0);
		vec3 zenith = mix(night, vec3(0.25, 0.55, 0.95), day);
		vec3 horizon = mix(vec3(0.05, 0.05, 0.12), vec3(0.53, 0.81, 0.92), day);
		float h = clamp(ray.y, 0.0, 1.0);
		color = mix(horizon, zenith, sqrt(h));
		float glow = pow(max(dot(ray, sun), 0.0), 8.0);
		color += vec3(1.0, 0.6, 0.3) * glow * (1.0 - day) * 0.6;
	}

	float disk = smoothstep(0.9995, 0.9998, dot(ray, sun));
	color = mix(color, vec3(1.0, 0.95, 0.8), disk);

	vec3 moon = normalize(moon_position);
	float c = dot(ray, moon);
	vec3 off = (ray - moon * c) / MOON_RADIUS;
	float r2 = dot(off, off);
	if (c > 0.0 && r2 < 1.0) {
		vec3 normal = off - moon * sqrt(1.0 - r2);
		vec2 uv = (transpose(mat3(moon_matrix)) * off).xy;
		float mare = 0.85 + 0.15 * sin(uv.x * 9.0) * sin(uv.y * 7.0);
		float lit = 0.06 + 0.94 * clamp(dot(normal, sun), 0.0, 1.0);
		color = mix(color, vec3(0.92, 0.92, 0.88) * mare * lit, smoothstep(1.0, 0.9, r2));
	}

	if (show_grid == 1) {
		vec3 celestial = (celestial_matrix * vec4(ray, 0.0)).xyz;
		float ra = atan(celestial.z, celestial.x) / PI * 12.0;
		float dec = asin(clamp(celestial.y, -1.0, 1.0)) / PI * 18.0;
		float line = max(
			1.0 - smoothstep(0.0, 0.03, abs(fract(ra) - 0.5) * 2.0 - 0.97),
			1.0 - smoothstep(0.0, 0.03, abs(fract(dec) - 0.5) * 2.0 - 0.97));
		color = mix(color, vec3(0.4, 0.6, 0.8), 0.25 * (1.0 - line));
	}

	fragment_color = vec4(color, 1.0);
}
`

// ShadowVertex projects geometry into light space for the depth pass.
const ShadowVertex = `#version 410 core
layout(location = 0) in vec3 vertex_position;
layout(location = 3) in vec3 vertex_tex_coords;

uniform mat4 light_space_matrix;

out float layer;

void main() {
	layer = vertex_tex_coords.z;
	gl_Position = light_space_matrix * vec4(vertex_position, 1.0);
}
`

// ShadowFragment writes depth only; tombstoned slots cast no shadow.
const ShadowFragment = `#version 410 core
in float layer;

void main() {
	if (layer < -1.5) {
		discard;
	}
}
`

// ShadowQuadVertex places a debug quad in the lower left corner.
const ShadowQuadVertex = `#version 410 core
layout(location = 0) in vec3 vertex_position;

out vec2 uv;

void main() {
	uv = vertex_position.xy;
	gl_Position = vec4(vertex_position.xy * 0.5 - 1.0, 0.0, 1.0);
}
`

// ShadowQuadFragment shows the depth map in grayscale.
const ShadowQuadFragment = `#version 410 core
in vec2 uv;

uniform sampler2D depth_map;

out vec4 fragment_color;

void main() {
	float depth = texture(depth_map, uv).r;
	fragment_color = vec4(vec3(depth), 1.0);
}
`
