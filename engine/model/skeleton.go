package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/go-gl/mathgl/mgl32"
)

// IdentityPose returns a Pose with every slot set to identity.
func IdentityPose() Pose {
	var p Pose
	p.Reset()
	return p
}

// Reset sets every slot of the pose to identity.
func (p *Pose) Reset() {
	for i := range p {
		p[i] = mgl32.Ident4()
	}
}

// Bytes returns a byte view of the pose in GPU layout (PoseByteSize bytes).
// The view aliases the pose; it is valid until the pose is next written.
func (p *Pose) Bytes() []byte {
	return common.SliceToBytes(p[:])
}

// NewSkeleton binds a rig to a fresh playback stream with clip 0 selected and an identity pose.
//
// Parameters:
//   - rig: the rig definition, may be shared with other skeletons
//
// Returns:
//   - *Skeleton: the new skeleton
func NewSkeleton(rig *RigDefinition) *Skeleton {
	return &Skeleton{
		Rig:       rig,
		FinalPose: IdentityPose(),
	}
}

// Clone returns a fully independent copy of the skeleton, including a deep copy of its rig.
//
// Returns:
//   - *Skeleton: the copy
//   - error: error if the rig could not be copied
func (s *Skeleton) Clone() (*Skeleton, error) {
	if s == nil || s.Rig == nil {
		return nil, ErrNilRig
	}
	rig, err := s.Rig.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone skeleton: %w", err)
	}
	return &Skeleton{
		Rig:         rig,
		CurrentClip: s.CurrentClip,
		FinalPose:   s.FinalPose,
	}, nil
}

// SelectClip sets CurrentClip after checking it against the rig's clip list.
func (s *Skeleton) SelectClip(index int) error {
	if s.Rig == nil {
		return ErrNilRig
	}
	if _, err := s.Rig.Clip(index); err != nil {
		return err
	}
	s.CurrentClip = index
	return nil
}
