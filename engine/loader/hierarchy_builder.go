package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// HierarchyBuilder extracts a bone tree from one or more imported scenes.
//
// Scenes are walked depth-first. A scene node becomes a BoneNode only when its name
// matches a known bone and no BoneNode of that name exists yet, so several mesh parts
// that share one rig can be added in turn. Nodes that are not bones are skipped; their
// transforms are folded into the local transform of the next bone below them so the
// bind chain is preserved.
type HierarchyBuilder struct {
	offsets map[string]mgl32.Mat4
	byName  map[string]int32

	bones []model.Bone
	nodes []model.BoneNode
}

// NewHierarchyBuilder creates an empty builder.
//
// Returns:
//   - *HierarchyBuilder: the builder
func NewHierarchyBuilder() *HierarchyBuilder {
	return &HierarchyBuilder{
		offsets: make(map[string]mgl32.Mat4),
		byName:  make(map[string]int32),
	}
}

// BoneCount returns the number of bones added so far.
func (b *HierarchyBuilder) BoneCount() int {
	return len(b.nodes)
}

// Add registers a scene's bones and walks its node tree, appending every bone node
// that has not been added yet.
//
// Parameters:
//   - root: the root of the scene graph
//   - bones: the bones skinning the scene's meshes
//
// Returns:
//   - error: ErrCapacityExceeded when the rig outgrows MaxBones or a node exceeds MaxChildren,
//     ErrMalformedHierarchy when the bones form more than one tree
func (b *HierarchyBuilder) Add(root *SceneNode, bones []ImportedBone) error {
	for _, bone := range bones {
		if _, ok := b.offsets[bone.Name]; !ok {
			b.offsets[bone.Name] = bone.Offset
		}
	}
	if root == nil {
		return nil
	}
	return b.visit(root, model.NoParent, mgl32.Ident4())
}

// visit adds node (if it is a new bone) and recurses into its children.
// pending accumulates the transforms of skipped non-bone ancestors since the last bone.
func (b *HierarchyBuilder) visit(node *SceneNode, parent int32, pending mgl32.Mat4) error {
	offset, isBone := b.offsets[node.Name]
	if !isBone {
		common.Logger().Debug("loader: skipping non-bone node", "node", node.Name)
		pending = pending.Mul4(node.Transform)
		for _, child := range node.Children {
			if err := b.visit(child, parent, pending); err != nil {
				return err
			}
		}
		return nil
	}

	idx, seen := b.byName[node.Name]
	if !seen {
		var err error
		if idx, err = b.addNode(node, offset, parent, pending.Mul4(node.Transform)); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		if err := b.visit(child, idx, mgl32.Ident4()); err != nil {
			return err
		}
	}
	return nil
}

func (b *HierarchyBuilder) addNode(node *SceneNode, offset mgl32.Mat4, parent int32, local mgl32.Mat4) (int32, error) {
	if len(b.nodes) >= model.MaxBones {
		return 0, fmt.Errorf("%w: bone %q would be bone %d (max %d)", model.ErrCapacityExceeded, node.Name, len(b.nodes)+1, model.MaxBones)
	}
	if parent == model.NoParent && len(b.nodes) > 0 {
		return 0, fmt.Errorf("%w: bone %q is a second root (root is %q)", model.ErrMalformedHierarchy, node.Name, b.nodes[0].Name)
	}
	if parent != model.NoParent && len(b.nodes[parent].Children) >= model.MaxChildren {
		return 0, fmt.Errorf("%w: bone %q has more than %d children", model.ErrCapacityExceeded, b.nodes[parent].Name, model.MaxChildren)
	}

	idx := int32(len(b.nodes))
	b.bones = append(b.bones, model.Bone{
		ID:     idx,
		Offset: offset,
		Name:   node.Name,
	})
	b.nodes = append(b.nodes, model.BoneNode{
		Name:           node.Name,
		BoneIndex:      idx,
		Parent:         parent,
		LocalTransform: local,
	})
	if parent != model.NoParent {
		b.nodes[parent].Children = append(b.nodes[parent].Children, idx)
	}
	b.byName[node.Name] = idx
	return idx, nil
}

// Build returns the hierarchy as a rig with no clips. Each node's BindInverse is the
// inverse of its accumulated bind transform. The builder may keep accepting scenes;
// the returned rig does not alias its state.
//
// Returns:
//   - *model.RigDefinition: the rig
//   - error: a validation error if the hierarchy is inconsistent
func (b *HierarchyBuilder) Build() (*model.RigDefinition, error) {
	rig := &model.RigDefinition{
		Bones: slices.Clone(b.bones),
		Nodes: make([]model.BoneNode, len(b.nodes)),
	}

	global := make([]mgl32.Mat4, len(b.nodes))
	for i, n := range b.nodes {
		n.Children = slices.Clone(n.Children)
		if n.Parent == model.NoParent {
			global[i] = n.LocalTransform
		} else {
			global[i] = global[n.Parent].Mul4(n.LocalTransform)
		}
		n.BindInverse = global[i].Inv()
		rig.Nodes[i] = n
	}

	if err := rig.Validate(); err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	return rig, nil
}
