package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// --- Capacity ---

const (
	// MaxBones is the number of bone slots in a Pose and the maximum node count of a rig.
	// It must match the length of the bone matrix array declared by the skinning shader.
	MaxBones = 100

	// MaxChildren is the maximum number of children a single BoneNode may link to.
	MaxChildren = 8

	// PoseByteSize is the size in bytes of a Pose as uploaded to the GPU (MaxBones column-major mat4x4<f32>).
	PoseByteSize = MaxBones * 16 * 4

	// NoParent marks the root BoneNode's Parent field.
	NoParent int32 = -1

	// DefaultTicksPerSecond is used when an imported animation does not specify a tick rate.
	DefaultTicksPerSecond = 25.0
)

// --- Skeleton Types ---

// Bone is one animatable bone. ID is the bone's slot in the Pose array and always
// equals the bone's position in RigDefinition.Bones.
type Bone struct {
	// ID is the dense slot index into the Pose array used at skin time.
	ID int32

	// Offset maps a mesh vertex from bind space into this bone's local space.
	// It is the inverse of the bone's bind-pose model transform.
	Offset mgl32.Mat4

	// Name identifies the bone and is the key animation tracks target.
	Name string
}

// BoneNode is one node of the bone tree. Parent and Children are indices into
// RigDefinition.Nodes; nodes are stored parent-before-child and node 0 is the root.
type BoneNode struct {
	// Name is the scene node name, equal to the name of the Bone it references.
	Name string

	// BoneIndex references RigDefinition.Bones.
	BoneIndex int32

	// Parent is the index of the parent node, or NoParent for the root.
	Parent int32

	// Children are ordered indices of child nodes (at most MaxChildren).
	Children []int32

	// LocalTransform is the bind-pose transform relative to the parent node.
	LocalTransform mgl32.Mat4

	// BindInverse is the inverse of this node's accumulated bind-pose model transform.
	BindInverse mgl32.Mat4
}

// Pose is the flat array of skinning matrices indexed by Bone.ID.
// Its length is always MaxBones; slots past the rig's bone count hold identity.
type Pose [MaxBones]mgl32.Mat4

// --- Animation Types ---

// VectorKey stores a 3D vector value at a point in time (ticks).
type VectorKey struct {
	Time  float32
	Value mgl32.Vec3
}

// QuatKey stores a rotation at a point in time (ticks).
type QuatKey struct {
	Time  float32
	Value mgl32.Quat
}

// BoneTrack holds one bone's keyframes. The three lists are timed independently
// and may differ in length.
type BoneTrack struct {
	// BoneName is the name of the bone this track animates.
	BoneName string

	Positions []VectorKey
	Rotations []QuatKey
	Scales    []VectorKey
}

// AnimationClip is a named set of bone tracks (walk, run, attack, ...).
type AnimationClip struct {
	// Name is the clip identifier.
	Name string

	// Duration is the clip length in ticks.
	Duration float32

	// TicksPerSecond converts seconds of playback into ticks.
	TicksPerSecond float32

	// Tracks are keyed by bone name, not by bone index.
	Tracks []BoneTrack
}

// --- Rig Types ---

// RigDefinition is the immutable, shareable part of a rig: the bone hierarchy and its clips.
// Any number of playback states may read one RigDefinition at once.
type RigDefinition struct {
	Bones []Bone
	Nodes []BoneNode
	Clips []AnimationClip
}

// Skeleton is a rig bound to a single playback stream. It is the unit written to
// and read from the binary rig cache. Sharing one Skeleton between two animated
// instances makes them overwrite each other's FinalPose.
type Skeleton struct {
	// Rig is the hierarchy and clip data.
	Rig *RigDefinition

	// CurrentClip is the index of the selected clip in Rig.Clips.
	CurrentClip int

	// FinalPose is the output of the last evaluation.
	FinalPose Pose
}
