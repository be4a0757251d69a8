package animator

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithRig is an option builder that sets the rig the Animator plays.
//
// Parameters:
//   - rig: the shared rig definition
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the rig option to an animator
func WithRig(rig *model.RigDefinition) AnimatorBuilderOption {
	return func(a *animator) {
		a.rig = rig
	}
}

// WithClip is an option builder that selects the starting clip. The index is checked
// by Evaluate, not here.
//
// Parameters:
//   - index: the clip index
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the clip option to an animator
func WithClip(index int) AnimatorBuilderOption {
	return func(a *animator) {
		a.clipIndex = index
	}
}

// WithSpeed is an option builder that sets the playback speed multiplier.
//
// Parameters:
//   - speed: the multiplier (1.0 = normal, 0.5 = half speed)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.speed = speed
	}
}

// WithLoop is an option builder that enables or disables looping.
//
// Parameters:
//   - loop: whether playback wraps at the end of the clip
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the loop option to an animator
func WithLoop(loop bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.loop = loop
	}
}

// WithTime is an option builder that sets the starting time in ticks.
//
// Parameters:
//   - ticks: the starting time
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the time option to an animator
func WithTime(ticks float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.time = ticks
	}
}
