package shader

// SceneVertex reads per-instance data from the sorted instance buffer.
// gl_BaseInstance is the command's FirstInstance, so each command indexes its own range.
const SceneVertex = `
#version 460 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aUV;
layout(location = 3) in vec4 aTangent;

struct Instance {
	mat4 model;
	uint geometry;
	uint material;
	uint pad0;
	uint pad1;
};

layout(std430, binding = 0) readonly buffer Instances {
	Instance instances[];
};

uniform mat4 uViewProj;

out vec3 vWorldPos;
out vec3 vNormal;
out vec2 vUV;
flat out uint vMaterial;

void main() {
	Instance inst = instances[gl_BaseInstance + gl_InstanceID];
	vec4 world = inst.model * vec4(aPosition, 1.0);
	vWorldPos = world.xyz;
	vNormal = mat3(transpose(inverse(inst.model))) * aNormal;
	vUV = aUV;
	vMaterial = inst.material;
	gl_Position = uViewProj * world;
}
`

// SceneFragment shades with a fixed sun plus the packed point lights.
const SceneFragment = `
#version 460 core

struct Light {
	vec4 positionRange;
	vec4 directionIntensity;
	vec4 cones;
};

layout(std430, binding = 1) readonly buffer Lights {
	Light lights[];
};

uniform vec3 uCameraPos;
uniform int uLightCount;

in vec3 vWorldPos;
in vec3 vNormal;
in vec2 vUV;
flat in uint vMaterial;

out vec4 FragColor;

vec3 materialColor(uint id) {
	const vec3 palette[8] = vec3[](
		vec3(0.80, 0.80, 0.80), vec3(0.85, 0.35, 0.30),
		vec3(0.35, 0.70, 0.40), vec3(0.30, 0.45, 0.85),
		vec3(0.90, 0.75, 0.30), vec3(0.65, 0.40, 0.80),
		vec3(0.30, 0.75, 0.80), vec3(0.55, 0.45, 0.35)
	);
	return palette[id % 8u];
}

void main() {
	vec3 n = normalize(vNormal);
	vec3 base = materialColor(vMaterial);

	vec3 sun = normalize(vec3(0.4, 1.0, 0.3));
	vec3 color = base * (0.15 + 0.6 * max(dot(n, sun), 0.0));

	for (int i = 0; i < uLightCount; i++) {
		Light l = lights[i];
		vec3 toLight = l.positionRange.xyz - vWorldPos;
		float dist = length(toLight);
		if (dist > l.positionRange.w) {
			continue;
		}
		vec3 dir = toLight / dist;
		float spot = smoothstep(l.cones.y, l.cones.x, dot(-dir, normalize(l.directionIntensity.xyz)));
		float falloff = 1.0 - dist / l.positionRange.w;
		color += base * max(dot(n, dir), 0.0) * l.directionIntensity.w * falloff * falloff * spot;
	}

	FragColor = vec4(color, 1.0);
}
`
