package animator

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// testRig has two bones and two clips of 10 ticks at 10 ticks per second.
func testRig() *model.RigDefinition {
	return &model.RigDefinition{
		Bones: []model.Bone{
			{ID: 0, Name: "root", Offset: mgl32.Ident4()},
			{ID: 1, Name: "arm", Offset: mgl32.Translate3D(-1, 0, 0)},
		},
		Nodes: []model.BoneNode{
			{Name: "root", BoneIndex: 0, Parent: model.NoParent, Children: []int32{1}, LocalTransform: mgl32.Ident4()},
			{Name: "arm", BoneIndex: 1, Parent: 0, LocalTransform: mgl32.Translate3D(1, 0, 0)},
		},
		Clips: []model.AnimationClip{
			{
				Name:           "raise",
				Duration:       10,
				TicksPerSecond: 10,
				Tracks: []model.BoneTrack{{
					BoneName: "arm",
					Rotations: []model.QuatKey{
						{Time: 0, Value: mgl32.QuatIdent()},
						{Time: 10, Value: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})},
					},
				}},
			},
			{
				Name:           "slide",
				Duration:       10,
				TicksPerSecond: 10,
				Tracks: []model.BoneTrack{{
					BoneName:  "root",
					Positions: []model.VectorKey{{Time: 0}, {Time: 10, Value: mgl32.Vec3{10, 0, 0}}},
				}},
			},
		},
	}
}

func TestAdvanceTicks(t *testing.T) {
	tests := []struct {
		name               string
		t, delta, duration float32
		loop               bool
		want               float32
	}{
		{"inside clip", 2, 3, 10, true, 5},
		{"exactly at end", 8, 2, 10, false, 10},
		{"wraps past end", 9, 3, 10, true, 2},
		{"wrap keeps overshoot", 9.5, 1, 10, true, 0.5},
		{"wraps several times", 1, 25, 10, true, 6},
		{"holds at end", 9, 3, 10, false, 10},
		{"wraps backwards", 0, -3, 10, true, 7},
		{"holds at start backwards", 2, -5, 10, false, 0},
		{"zero duration", 3, 1, 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := advanceTicks(tt.t, tt.delta, tt.duration, tt.loop); got != tt.want {
				t.Errorf("advanceTicks(%v, %v, %v, %v) = %v, want %v", tt.t, tt.delta, tt.duration, tt.loop, got, tt.want)
			}
		})
	}
}

func TestNewAnimatorDefaults(t *testing.T) {
	a := NewAnimator()

	if a.Speed() != 1 || !a.Loop() || a.Time() != 0 || a.ClipIndex() != 0 || a.Rig() != nil {
		t.Errorf("defaults = speed %v loop %v time %v clip %d rig %p", a.Speed(), a.Loop(), a.Time(), a.ClipIndex(), a.Rig())
	}
	if *a.Pose() != model.IdentityPose() {
		t.Errorf("initial pose is not identity")
	}

	a.Advance(1)
	if a.Time() != 0 {
		t.Errorf("Advance without rig moved time to %v", a.Time())
	}
	if err := a.Evaluate(); !errors.Is(err, model.ErrNilRig) {
		t.Errorf("Evaluate() without rig = %v, want ErrNilRig", err)
	}
	if err := a.SelectClip(0); !errors.Is(err, model.ErrNilRig) {
		t.Errorf("SelectClip() without rig = %v, want ErrNilRig", err)
	}
	if err := a.SelectClipByName("raise"); !errors.Is(err, model.ErrNilRig) {
		t.Errorf("SelectClipByName() without rig = %v, want ErrNilRig", err)
	}
}

func TestAnimatorOptions(t *testing.T) {
	rig := testRig()
	a := NewAnimator(WithRig(rig), WithClip(1), WithSpeed(0.5), WithLoop(false), WithTime(4))

	if a.Rig() != rig || a.ClipIndex() != 1 || a.Speed() != 0.5 || a.Loop() || a.Time() != 4 {
		t.Errorf("options not applied")
	}
}

func TestAnimatorSelectClip(t *testing.T) {
	a := NewAnimator(WithRig(testRig()), WithTime(3))

	if err := a.SelectClipByName("slide"); err != nil {
		t.Fatalf("SelectClipByName(slide) = %v", err)
	}
	if a.ClipIndex() != 1 || a.Time() != 0 {
		t.Errorf("after select: clip %d time %v, want 1 and 0", a.ClipIndex(), a.Time())
	}

	a.SetTime(5)
	if err := a.SelectClipByName("jump"); !errors.Is(err, model.ErrClipNotFound) {
		t.Errorf("SelectClipByName(jump) = %v, want ErrClipNotFound", err)
	}
	if err := a.SelectClip(2); !errors.Is(err, model.ErrClipIndexOutOfRange) {
		t.Errorf("SelectClip(2) = %v, want ErrClipIndexOutOfRange", err)
	}
	if a.ClipIndex() != 1 || a.Time() != 5 {
		t.Errorf("failed select changed state: clip %d time %v", a.ClipIndex(), a.Time())
	}

	if err := a.SelectClip(0); err != nil || a.Time() != 0 {
		t.Errorf("SelectClip(0) = %v, time %v", err, a.Time())
	}

	a.SetRig(testRig())
	if a.ClipIndex() != 0 || a.Time() != 0 {
		t.Errorf("SetRig did not reset playback")
	}
}

func TestAnimatorAdvance(t *testing.T) {
	a := NewAnimator(WithRig(testRig()), WithSpeed(2))

	a.Advance(0.25)
	if a.Time() != 5 {
		t.Fatalf("Time() after 0.25s at 2x = %v, want 5", a.Time())
	}

	a.Advance(0.4)
	if got := a.Time(); math.Abs(float64(got-3)) > 1e-5 {
		t.Errorf("looped Time() = %v, want 3", got)
	}

	a.SetLoop(false)
	a.Advance(10)
	if a.Time() != 10 {
		t.Errorf("held Time() = %v, want 10", a.Time())
	}

	a.SetSpeed(-1)
	a.Advance(5)
	if a.Time() != 0 {
		t.Errorf("reverse held Time() = %v, want 0", a.Time())
	}

	bad := NewAnimator(WithRig(testRig()), WithClip(9))
	bad.Advance(1)
	if bad.Time() != 0 {
		t.Errorf("Advance with invalid clip moved time to %v", bad.Time())
	}
}

func TestAnimatorEvaluate(t *testing.T) {
	rig := testRig()
	a := NewAnimator(WithRig(rig), WithTime(5))

	if err := a.Evaluate(); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	var want model.Pose
	if err := pose.Evaluate(rig, 0, 5, &want); err != nil {
		t.Fatal(err)
	}
	got := a.Pose()
	if *got != want {
		t.Errorf("Evaluate() pose differs from pose.Evaluate")
	}

	got[1] = mgl32.Ident4()
	var into model.Pose
	a.PoseInto(&into)
	if into != want {
		t.Errorf("Pose() returned shared state")
	}

	bad := NewAnimator(WithRig(rig), WithClip(4))
	if err := bad.Evaluate(); !errors.Is(err, model.ErrClipIndexOutOfRange) {
		t.Errorf("Evaluate() with invalid clip = %v, want ErrClipIndexOutOfRange", err)
	}
}

func TestPoolStep(t *testing.T) {
	rig := testRig()
	p := NewPool(WithWorkers(2), WithAnimators(
		NewAnimator(WithRig(rig)),
		NewAnimator(WithRig(rig), WithClip(7)),
	))
	third := p.Add(NewAnimator(WithRig(rig), WithClip(1)))

	if third != 2 || p.Len() != 3 {
		t.Fatalf("Add() = %d, Len() = %d", third, p.Len())
	}
	if p.Animator(3) != nil || p.Animator(-1) != nil {
		t.Errorf("Animator() out of range is not nil")
	}

	err := p.Step(0.5)
	if !errors.Is(err, model.ErrClipIndexOutOfRange) {
		t.Fatalf("Step() error = %v, want ErrClipIndexOutOfRange", err)
	}
	if !strings.Contains(err.Error(), "animator 1") {
		t.Errorf("Step() error %q does not name animator 1", err)
	}

	for _, i := range []int{0, 2} {
		a := p.Animator(i)
		if a.Time() != 5 {
			t.Errorf("animator %d time = %v, want 5", i, a.Time())
		}
		var want model.Pose
		if err := pose.Evaluate(rig, a.ClipIndex(), 5, &want); err != nil {
			t.Fatal(err)
		}
		if *a.Pose() != want {
			t.Errorf("animator %d pose not evaluated", i)
		}
	}
}

func TestPoolEvaluateDoesNotAdvance(t *testing.T) {
	rig := testRig()
	p := NewPool(WithWorkers(0), WithAnimators(NewAnimator(WithRig(rig), WithTime(2))))

	if err := p.Evaluate(); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if got := p.Animator(0).Time(); got != 2 {
		t.Errorf("Evaluate() moved time to %v", got)
	}
	if err := NewPool().Step(1); err != nil {
		t.Errorf("Step() on empty pool = %v", err)
	}
}
