package loader

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Import Types ---

// ImportedScene is the read-only data an importer hands to the rig builders: a scene
// graph, the bones referenced by skinned meshes and the animations of the file.
// Any importer (glTF, FBX, a test fixture) can produce one.
type ImportedScene struct {
	// Name identifies the source, usually the file path.
	Name string

	// Root is the root of the scene graph. It may be a synthetic node with no name.
	Root *SceneNode

	// Bones lists every bone that skins a mesh, with its offset matrix.
	Bones []ImportedBone

	// Animations are the file's animations, in file order.
	Animations []ImportedAnimation
}

// SceneNode is one node of the imported scene graph.
type SceneNode struct {
	// Name is the node name; a node is a bone when an ImportedBone has the same name.
	Name string

	// Transform is the node's local transform relative to its parent.
	Transform mgl32.Mat4

	// Children are the node's children in file order.
	Children []*SceneNode
}

// ImportedBone pairs a bone name with its offset (inverse bind) matrix.
type ImportedBone struct {
	Name   string
	Offset mgl32.Mat4
}

// ImportedAnimation is one animation as delivered by the importer.
type ImportedAnimation struct {
	Name string

	// Duration is the animation length in ticks.
	Duration float32

	// TicksPerSecond is the tick rate; 0 means unspecified.
	TicksPerSecond float32

	Channels []ImportedChannel
}

// ImportedChannel carries the keyframes that target one node.
type ImportedChannel struct {
	NodeName  string
	Positions []model.VectorKey
	Rotations []model.QuatKey
	Scales    []model.VectorKey
}

// NewSceneNode creates a scene node with the given name and local transform.
//
// Parameters:
//   - name: the node name
//   - transform: the local transform relative to the parent
//   - children: the node's children
//
// Returns:
//   - *SceneNode: the node
func NewSceneNode(name string, transform mgl32.Mat4, children ...*SceneNode) *SceneNode {
	return &SceneNode{Name: name, Transform: transform, Children: children}
}
