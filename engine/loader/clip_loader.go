package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// LoadClips appends one AnimationClip per imported animation to the rig's clip list,
// in input order. Keyframes are copied; the rig does not alias the imported slices.
// An animation without a tick rate gets model.DefaultTicksPerSecond. Channels that
// target a node the rig has no bone for are kept (they are ignored at evaluation) and
// logged at debug level.
//
// Parameters:
//   - rig: the rig to extend
//   - anims: the imported animations
//
// Returns:
//   - error: model.ErrNilRig when rig is nil
func LoadClips(rig *model.RigDefinition, anims []ImportedAnimation) error {
	if rig == nil {
		return model.ErrNilRig
	}

	for _, anim := range anims {
		clip := model.AnimationClip{
			Name:           anim.Name,
			Duration:       anim.Duration,
			TicksPerSecond: anim.TicksPerSecond,
		}
		if clip.TicksPerSecond == 0 {
			clip.TicksPerSecond = model.DefaultTicksPerSecond
		}
		if len(anim.Channels) > 0 {
			clip.Tracks = make([]model.BoneTrack, 0, len(anim.Channels))
		}

		for _, ch := range anim.Channels {
			if rig.NodeIndex(ch.NodeName) < 0 {
				common.Logger().Debug("loader: track targets no bone", "clip", anim.Name, "node", ch.NodeName)
			}
			clip.Tracks = append(clip.Tracks, model.BoneTrack{
				BoneName:  ch.NodeName,
				Positions: slices.Clone(ch.Positions),
				Rotations: slices.Clone(ch.Rotations),
				Scales:    slices.Clone(ch.Scales),
			})
		}

		rig.Clips = append(rig.Clips, clip)
		common.Logger().Debug("loader: loaded clip",
			"clip", clip.Name,
			"duration", clip.Duration,
			"ticksPerSecond", clip.TicksPerSecond,
			"tracks", len(clip.Tracks))
	}
	return nil
}

// BuildRig runs the hierarchy builder over a scene and loads its animations.
//
// Parameters:
//   - scene: the imported scene
//
// Returns:
//   - *model.RigDefinition: the rig with its clips
//   - error: error if the hierarchy is invalid
func BuildRig(scene *ImportedScene) (*model.RigDefinition, error) {
	if scene == nil {
		return nil, fmt.Errorf("build rig: nil scene")
	}
	hb := NewHierarchyBuilder()
	if err := hb.Add(scene.Root, scene.Bones); err != nil {
		return nil, fmt.Errorf("build rig %s: %w", scene.Name, err)
	}
	rig, err := hb.Build()
	if err != nil {
		return nil, fmt.Errorf("build rig %s: %w", scene.Name, err)
	}
	if err := LoadClips(rig, scene.Animations); err != nil {
		return nil, fmt.Errorf("build rig %s: %w", scene.Name, err)
	}
	return rig, nil
}
