// Package animator holds per-instance playback state over a shared RigDefinition and
// evaluates poses for many instances in parallel.
package animator

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/pose"
	"github.com/chewxy/math32"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	rig       *model.RigDefinition
	clipIndex int
	time      float32
	speed     float32
	loop      bool

	evaluator *pose.Evaluator
	pose      model.Pose
}

// Animator is the playback state of one animated instance: the selected clip, the current
// time in ticks and the last evaluated Pose. The RigDefinition it reads is shared and
// never modified, so any number of Animators may play the same rig at once.
//
// All methods are safe for concurrent use.
type Animator interface {
	// Rig returns the rig this animator plays, or nil.
	//
	// Returns:
	//   - *model.RigDefinition: the shared rig
	Rig() *model.RigDefinition

	// SetRig replaces the rig, selects clip 0 and rewinds to time 0.
	//
	// Parameters:
	//   - rig: the new rig
	SetRig(rig *model.RigDefinition)

	// SelectClip selects the active clip and rewinds to time 0.
	//
	// Parameters:
	//   - index: the clip index
	//
	// Returns:
	//   - error: ErrNilRig without a rig, ErrClipIndexOutOfRange for an invalid index
	SelectClip(index int) error

	// SelectClipByName selects the clip with the given name and rewinds to time 0.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - error: ErrNilRig without a rig, ErrClipNotFound when no clip matches
	SelectClipByName(name string) error

	// ClipIndex returns the selected clip index.
	//
	// Returns:
	//   - int: the clip index
	ClipIndex() int

	// Advance moves playback forward by deltaSeconds of real time:
	// ticks += deltaSeconds * ticksPerSecond * speed. Past the clip duration, time wraps
	// around when looping and holds at the duration otherwise. A wrap keeps the overshoot
	// (duration 10, time 10.5 becomes 0.5, not 0) so playback speed stays even across
	// loops. Negative speeds play backwards and wrap (or hold) at 0. Without a rig or
	// clips Advance does nothing.
	//
	// Parameters:
	//   - deltaSeconds: elapsed real time in seconds
	Advance(deltaSeconds float32)

	// SetTime sets the playback time in ticks.
	//
	// Parameters:
	//   - ticks: the new time
	SetTime(ticks float32)

	// Time returns the playback time in ticks.
	//
	// Returns:
	//   - float32: the current time
	Time() float32

	// SetSpeed sets the playback speed multiplier (1 is normal speed).
	//
	// Parameters:
	//   - speed: the multiplier
	SetSpeed(speed float32)

	// Speed returns the playback speed multiplier.
	//
	// Returns:
	//   - float32: the multiplier
	Speed() float32

	// SetLoop enables or disables looping.
	//
	// Parameters:
	//   - loop: true to wrap at the end of the clip
	SetLoop(loop bool)

	// Loop reports whether looping is enabled.
	//
	// Returns:
	//   - bool: true when looping
	Loop() bool

	// Evaluate computes the pose for the selected clip at the current time.
	//
	// Returns:
	//   - error: ErrNilRig without a rig, otherwise any error of pose.Evaluator.Evaluate
	Evaluate() error

	// Pose returns a copy of the last evaluated pose.
	//
	// Returns:
	//   - *model.Pose: the pose
	Pose() *model.Pose

	// PoseInto copies the last evaluated pose into dst without allocating.
	//
	// Parameters:
	//   - dst: destination pose
	PoseInto(dst *model.Pose)
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the given options. It starts with clip 0,
// time 0, speed 1, looping enabled and an identity pose.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:        &sync.Mutex{},
		speed:     1,
		loop:      true,
		evaluator: pose.NewEvaluator(),
		pose:      model.IdentityPose(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Rig() *model.RigDefinition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rig
}

func (a *animator) SetRig(rig *model.RigDefinition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rig = rig
	a.clipIndex = 0
	a.time = 0
}

func (a *animator) SelectClip(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rig == nil {
		return model.ErrNilRig
	}
	if _, err := a.rig.Clip(index); err != nil {
		return err
	}
	a.clipIndex = index
	a.time = 0
	return nil
}

func (a *animator) SelectClipByName(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rig == nil {
		return model.ErrNilRig
	}
	index, err := a.rig.ClipIndex(name)
	if err != nil {
		return err
	}
	a.clipIndex = index
	a.time = 0
	return nil
}

func (a *animator) ClipIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clipIndex
}

func (a *animator) Advance(deltaSeconds float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rig == nil {
		return
	}
	clip, err := a.rig.Clip(a.clipIndex)
	if err != nil {
		return
	}
	a.time = advanceTicks(a.time, deltaSeconds*clip.TicksPerSecond*a.speed, clip.Duration, a.loop)
}

// advanceTicks adds delta to t and applies the end-of-clip rule.
func advanceTicks(t, delta, duration float32, loop bool) float32 {
	t += delta
	if duration <= 0 {
		return 0
	}
	switch {
	case t > duration && loop:
		return math32.Mod(t, duration)
	case t > duration:
		return duration
	case t < 0 && loop:
		return duration + math32.Mod(t, duration)
	case t < 0:
		return 0
	}
	return t
}

func (a *animator) SetTime(ticks float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = ticks
}

func (a *animator) Time() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = speed
}

func (a *animator) Speed() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

func (a *animator) SetLoop(loop bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loop = loop
}

func (a *animator) Loop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loop
}

func (a *animator) Evaluate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rig == nil {
		return model.ErrNilRig
	}
	return a.evaluator.Evaluate(a.rig, a.clipIndex, a.time, &a.pose)
}

func (a *animator) Pose() *model.Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pose
	return &p
}

func (a *animator) PoseInto(dst *model.Pose) {
	a.mu.Lock()
	defer a.mu.Unlock()
	*dst = a.pose
}
