// Package pose turns a rig, a selected clip and a playback time into the flat array
// of skinning matrices consumed by the skinning shader.
package pose

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Evaluator computes poses for rigs. It keeps scratch matrices and the node-to-track
// mapping of the last clip it evaluated, so steady-state evaluation does not allocate.
// An Evaluator is not safe for concurrent use; give each playback stream its own.
type Evaluator struct {
	rig    *model.RigDefinition
	clip   *model.AnimationClip
	tracks []int

	global [model.MaxBones]mgl32.Mat4
	final  model.Pose
}

// NewEvaluator creates an Evaluator with empty caches.
//
// Returns:
//   - *Evaluator: the evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate is a convenience wrapper that evaluates with a throwaway Evaluator.
//
// Parameters:
//   - rig: the rig to evaluate
//   - clipIndex: the clip to sample; ignored when the rig has no clips
//   - time: the sample time in ticks
//   - out: destination pose
//
// Returns:
//   - error: see Evaluator.Evaluate
func Evaluate(rig *model.RigDefinition, clipIndex int, time float32, out *model.Pose) error {
	return NewEvaluator().Evaluate(rig, clipIndex, time, out)
}

// EvaluateSkeleton evaluates a skeleton's selected clip at time into its FinalPose.
func EvaluateSkeleton(s *model.Skeleton, time float32) error {
	if s == nil {
		return model.ErrNilRig
	}
	return Evaluate(s.Rig, s.CurrentClip, time, &s.FinalPose)
}

// Evaluate writes the skinning matrix of every bone into out[bone.ID].
//
// Nodes are walked in array order, which is parent-before-child. Each node's local
// transform is its sampled track (scale, rotation, translation) or, when the clip has no
// track for it, its bind-pose LocalTransform. The node's model transform is always
// parent * local, and the skinning matrix is model * Offset. A rig without clips
// evaluates to the bind chain with no offset applied.
//
// On error out is left unchanged.
//
// Parameters:
//   - rig: the rig to evaluate
//   - clipIndex: the clip to sample; ignored when the rig has no clips
//   - time: the sample time in ticks
//   - out: destination pose
//
// Returns:
//   - error: ErrClipIndexOutOfRange, ErrInvalidBoneIndex, ErrMalformedHierarchy or ErrCapacityExceeded
func (e *Evaluator) Evaluate(rig *model.RigDefinition, clipIndex int, time float32, out *model.Pose) error {
	if rig == nil {
		return model.ErrNilRig
	}

	var clip *model.AnimationClip
	if len(rig.Clips) > 0 {
		c, err := rig.Clip(clipIndex)
		if err != nil {
			return err
		}
		clip = c
	}

	if err := e.walk(rig, clip, time, clip != nil); err != nil {
		return err
	}
	*out = e.final
	return nil
}

// BindPose writes the bind chain of every bone into out, ignoring clips and offsets.
func (e *Evaluator) BindPose(rig *model.RigDefinition, out *model.Pose) error {
	if rig == nil {
		return model.ErrNilRig
	}
	if err := e.walk(rig, nil, 0, false); err != nil {
		return err
	}
	*out = e.final
	return nil
}

// ModelSpace returns each node's animated model-space transform (no offset), indexed by node.
// With no clips the bind chain is returned.
//
// Parameters:
//   - rig: the rig to evaluate
//   - clipIndex: the clip to sample; ignored when the rig has no clips
//   - time: the sample time in ticks
//
// Returns:
//   - []mgl32.Mat4: one matrix per node
//   - error: see Evaluate
func (e *Evaluator) ModelSpace(rig *model.RigDefinition, clipIndex int, time float32) ([]mgl32.Mat4, error) {
	var scratch model.Pose
	if err := e.Evaluate(rig, clipIndex, time, &scratch); err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, len(rig.Nodes))
	copy(out, e.global[:len(rig.Nodes)])
	return out, nil
}

func (e *Evaluator) walk(rig *model.RigDefinition, clip *model.AnimationClip, time float32, applyOffset bool) error {
	if len(rig.Nodes) > model.MaxBones {
		return fmt.Errorf("%w: %d nodes (max %d)", model.ErrCapacityExceeded, len(rig.Nodes), model.MaxBones)
	}
	if clip != nil {
		e.bindTracks(rig, clip)
	}
	e.final.Reset()

	for i := range rig.Nodes {
		node := &rig.Nodes[i]
		if node.BoneIndex < 0 || int(node.BoneIndex) >= len(rig.Bones) {
			return fmt.Errorf("%w: node %q references bone %d of %d", model.ErrInvalidBoneIndex, node.Name, node.BoneIndex, len(rig.Bones))
		}
		bone := &rig.Bones[node.BoneIndex]
		if bone.ID < 0 || int(bone.ID) >= model.MaxBones {
			return fmt.Errorf("%w: bone %q has slot %d", model.ErrInvalidBoneIndex, bone.Name, bone.ID)
		}

		local := node.LocalTransform
		if clip != nil {
			if ti := e.tracks[i]; ti >= 0 {
				local = clip.Tracks[ti].LocalTransform(time)
			}
		}

		switch {
		case i == 0 && node.Parent == model.NoParent:
			e.global[i] = local
		case i > 0 && node.Parent >= 0 && int(node.Parent) < i:
			e.global[i] = e.global[node.Parent].Mul4(local)
		default:
			return fmt.Errorf("%w: node %q at %d has parent %d", model.ErrMalformedHierarchy, node.Name, i, node.Parent)
		}

		if applyOffset {
			e.final[bone.ID] = e.global[i].Mul4(bone.Offset)
		} else {
			e.final[bone.ID] = e.global[i]
		}
	}

	return nil
}

// bindTracks resolves, once per (rig, clip) pair, which track animates each node.
func (e *Evaluator) bindTracks(rig *model.RigDefinition, clip *model.AnimationClip) {
	if e.rig == rig && e.clip == clip && len(e.tracks) == len(rig.Nodes) {
		return
	}

	byName := clip.TrackIndex()
	if cap(e.tracks) < len(rig.Nodes) {
		e.tracks = make([]int, len(rig.Nodes))
	}
	e.tracks = e.tracks[:len(rig.Nodes)]
	for i := range rig.Nodes {
		if ti, ok := byName[rig.Nodes[i].Name]; ok {
			e.tracks[i] = ti
		} else {
			e.tracks[i] = -1
		}
	}
	e.rig = rig
	e.clip = clip
}
