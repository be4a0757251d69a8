package model

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Validate checks the structural invariants every evaluator relies on:
// bone and node counts match and fit MaxBones, bone IDs are dense, every node resolves
// to a bone, node 0 is the only root, parents precede their children and child links
// agree with parent links. A rig with no bones is valid.
//
// Returns:
//   - error: nil, or an error wrapping ErrCapacityExceeded, ErrInvalidBoneIndex or ErrMalformedHierarchy
func (r *RigDefinition) Validate() error {
	if r == nil {
		return ErrNilRig
	}
	if len(r.Nodes) > MaxBones || len(r.Bones) > MaxBones {
		return fmt.Errorf("%w: %d nodes, %d bones (max %d)", ErrCapacityExceeded, len(r.Nodes), len(r.Bones), MaxBones)
	}
	if len(r.Nodes) != len(r.Bones) {
		return fmt.Errorf("%w: %d nodes but %d bones", ErrMalformedHierarchy, len(r.Nodes), len(r.Bones))
	}

	for i := range r.Bones {
		if r.Bones[i].ID != int32(i) {
			return fmt.Errorf("%w: bone %q at slot %d has id %d", ErrMalformedHierarchy, r.Bones[i].Name, i, r.Bones[i].ID)
		}
	}

	for i := range r.Nodes {
		node := &r.Nodes[i]
		if node.BoneIndex < 0 || int(node.BoneIndex) >= len(r.Bones) {
			return fmt.Errorf("%w: node %q references bone %d of %d", ErrInvalidBoneIndex, node.Name, node.BoneIndex, len(r.Bones))
		}

		switch {
		case i == 0 && node.Parent != NoParent:
			return fmt.Errorf("%w: root node %q has parent %d", ErrMalformedHierarchy, node.Name, node.Parent)
		case i > 0 && node.Parent == NoParent:
			return fmt.Errorf("%w: node %q is a second root", ErrMalformedHierarchy, node.Name)
		case i > 0 && (node.Parent < 0 || int(node.Parent) >= i):
			return fmt.Errorf("%w: node %q at %d has parent %d", ErrMalformedHierarchy, node.Name, i, node.Parent)
		}

		if len(node.Children) > MaxChildren {
			return fmt.Errorf("%w: node %q has %d children (max %d)", ErrCapacityExceeded, node.Name, len(node.Children), MaxChildren)
		}
		for _, c := range node.Children {
			if c <= int32(i) || int(c) >= len(r.Nodes) || r.Nodes[c].Parent != int32(i) {
				return fmt.Errorf("%w: node %q lists child %d", ErrMalformedHierarchy, node.Name, c)
			}
		}
	}

	return nil
}

// NodeIndex returns the index of the node with the given name, or -1.
func (r *RigDefinition) NodeIndex(name string) int {
	for i := range r.Nodes {
		if r.Nodes[i].Name == name {
			return i
		}
	}
	return -1
}

// ClipIndex returns the index of the clip with the given name.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - int: the clip index
//   - error: ErrClipNotFound if no clip has that name
func (r *RigDefinition) ClipIndex(name string) (int, error) {
	for i := range r.Clips {
		if r.Clips[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrClipNotFound, name)
}

// Clip returns a pointer to the clip at index.
//
// Returns:
//   - *AnimationClip: the clip
//   - error: ErrClipIndexOutOfRange for an invalid index
func (r *RigDefinition) Clip(index int) (*AnimationClip, error) {
	if index < 0 || index >= len(r.Clips) {
		return nil, fmt.Errorf("%w: %d of %d", ErrClipIndexOutOfRange, index, len(r.Clips))
	}
	return &r.Clips[index], nil
}

// TrackIndex maps each bone name to the index of its track in the clip.
// When a clip holds several tracks for one bone the first wins.
func (c *AnimationClip) TrackIndex() map[string]int {
	idx := make(map[string]int, len(c.Tracks))
	for i := range c.Tracks {
		if _, ok := idx[c.Tracks[i].BoneName]; !ok {
			idx[c.Tracks[i].BoneName] = i
		}
	}
	return idx
}

// Clone returns a deep copy of the rig. Every slice (bones, nodes, child lists,
// clips, tracks and keys) is freshly allocated; the copy shares no mutable memory
// with the receiver.
//
// Returns:
//   - *RigDefinition: the independent copy
//   - error: error if the copy fails
func (r *RigDefinition) Clone() (*RigDefinition, error) {
	if r == nil {
		return nil, ErrNilRig
	}
	out := &RigDefinition{}
	if err := copier.CopyWithOption(out, r, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone rig: %w", err)
	}
	return out, nil
}
