package model

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// chainRig returns a root -> mid -> tip rig with one clip.
func chainRig() *RigDefinition {
	return &RigDefinition{
		Bones: []Bone{
			{ID: 0, Offset: mgl32.Ident4(), Name: "root"},
			{ID: 1, Offset: mgl32.Translate3D(-1, 0, 0), Name: "mid"},
			{ID: 2, Offset: mgl32.Translate3D(-2, 0, 0), Name: "tip"},
		},
		Nodes: []BoneNode{
			{Name: "root", BoneIndex: 0, Parent: NoParent, Children: []int32{1}, LocalTransform: mgl32.Ident4(), BindInverse: mgl32.Ident4()},
			{Name: "mid", BoneIndex: 1, Parent: 0, Children: []int32{2}, LocalTransform: mgl32.Translate3D(1, 0, 0), BindInverse: mgl32.Translate3D(-1, 0, 0)},
			{Name: "tip", BoneIndex: 2, Parent: 1, LocalTransform: mgl32.Translate3D(1, 0, 0), BindInverse: mgl32.Translate3D(-2, 0, 0)},
		},
		Clips: []AnimationClip{{
			Name:           "wave",
			Duration:       10,
			TicksPerSecond: 25,
			Tracks: []BoneTrack{{
				BoneName:  "root",
				Rotations: []QuatKey{{Time: 0, Value: mgl32.QuatIdent()}, {Time: 10, Value: mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})}},
				Positions: []VectorKey{{Time: 0, Value: mgl32.Vec3{0, 1, 0}}},
			}},
		}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *RigDefinition)
		want   error
	}{
		{"valid", func(r *RigDefinition) {}, nil},
		{"empty rig", func(r *RigDefinition) { *r = RigDefinition{} }, nil},
		{"count mismatch", func(r *RigDefinition) { r.Bones = r.Bones[:2] }, ErrMalformedHierarchy},
		{"sparse bone id", func(r *RigDefinition) { r.Bones[1].ID = 7 }, ErrMalformedHierarchy},
		{"bad bone index", func(r *RigDefinition) { r.Nodes[2].BoneIndex = 3 }, ErrInvalidBoneIndex},
		{"negative bone index", func(r *RigDefinition) { r.Nodes[1].BoneIndex = -1 }, ErrInvalidBoneIndex},
		{"root with parent", func(r *RigDefinition) { r.Nodes[0].Parent = 1 }, ErrMalformedHierarchy},
		{"second root", func(r *RigDefinition) {
			r.Nodes[2].Parent = NoParent
			r.Nodes[1].Children = nil
		}, ErrMalformedHierarchy},
		{"parent after child", func(r *RigDefinition) { r.Nodes[1].Parent = 2 }, ErrMalformedHierarchy},
		{"self parent", func(r *RigDefinition) { r.Nodes[1].Parent = 1 }, ErrMalformedHierarchy},
		{"child link disagrees", func(r *RigDefinition) { r.Nodes[0].Children = []int32{2} }, ErrMalformedHierarchy},
		{"child out of range", func(r *RigDefinition) { r.Nodes[1].Children = []int32{9} }, ErrMalformedHierarchy},
		{"too many children", func(r *RigDefinition) {
			r.Nodes[0].Children = make([]int32, MaxChildren+1)
		}, ErrCapacityExceeded},
		{"too many bones", func(r *RigDefinition) {
			r.Bones = make([]Bone, MaxBones+1)
			r.Nodes = make([]BoneNode, MaxBones+1)
		}, ErrCapacityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chainRig()
			tt.mutate(r)
			err := r.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	var nilRig *RigDefinition
	if err := nilRig.Validate(); !errors.Is(err, ErrNilRig) {
		t.Errorf("nil Validate() = %v, want ErrNilRig", err)
	}
}

func TestValidateFullCapacity(t *testing.T) {
	r := &RigDefinition{}
	for i := 0; i < MaxBones; i++ {
		parent := int32(i - 1)
		if i == 0 {
			parent = NoParent
		}
		r.Bones = append(r.Bones, Bone{ID: int32(i), Name: fmt.Sprintf("b%d", i), Offset: mgl32.Ident4()})
		r.Nodes = append(r.Nodes, BoneNode{Name: fmt.Sprintf("b%d", i), BoneIndex: int32(i), Parent: parent, LocalTransform: mgl32.Ident4()})
		if i > 0 {
			r.Nodes[i-1].Children = []int32{int32(i)}
		}
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() at capacity = %v", err)
	}
}

func TestClipLookup(t *testing.T) {
	r := chainRig()

	if i, err := r.ClipIndex("wave"); err != nil || i != 0 {
		t.Errorf("ClipIndex(wave) = %d, %v", i, err)
	}
	if _, err := r.ClipIndex("run"); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("ClipIndex(run) error = %v, want ErrClipNotFound", err)
	}
	if c, err := r.Clip(0); err != nil || c != &r.Clips[0] {
		t.Errorf("Clip(0) = %p, %v", c, err)
	}
	for _, idx := range []int{-1, 1} {
		if _, err := r.Clip(idx); !errors.Is(err, ErrClipIndexOutOfRange) {
			t.Errorf("Clip(%d) error = %v, want ErrClipIndexOutOfRange", idx, err)
		}
	}
	if got := r.NodeIndex("tip"); got != 2 {
		t.Errorf("NodeIndex(tip) = %d, want 2", got)
	}
	if got := r.NodeIndex("nope"); got != -1 {
		t.Errorf("NodeIndex(nope) = %d, want -1", got)
	}
}

func TestTrackIndexFirstWins(t *testing.T) {
	c := AnimationClip{Tracks: []BoneTrack{{BoneName: "a"}, {BoneName: "b"}, {BoneName: "a"}}}
	idx := c.TrackIndex()
	if len(idx) != 2 || idx["a"] != 0 || idx["b"] != 1 {
		t.Errorf("TrackIndex() = %v, want map[a:0 b:1]", idx)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := chainRig()
	clone, err := orig.Clone()
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if !sameRig(orig, clone) {
		t.Fatalf("Clone() differs from original")
	}

	t.Run("mutating clone leaves original", func(t *testing.T) {
		o := chainRig()
		c, _ := o.Clone()
		c.Bones[1].Name = "changed"
		c.Bones[1].Offset[0] = 42
		c.Nodes[0].Children[0] = 2
		c.Clips[0].Tracks[0].Rotations[1].Time = 99
		c.Clips[0].Tracks[0].Positions[0].Value[1] = -1
		c.Clips = append(c.Clips, AnimationClip{Name: "extra"})
		if !sameRig(o, chainRig()) {
			t.Errorf("original changed after mutating clone")
		}
	})

	t.Run("mutating original leaves clone", func(t *testing.T) {
		o := chainRig()
		c, _ := o.Clone()
		o.Nodes[1].Children[0] = 0
		o.Nodes[2].LocalTransform[12] = 7
		o.Clips[0].Tracks[0].BoneName = "x"
		o.Clips[0].Tracks[0].Rotations[0].Value = mgl32.Quat{}
		if !sameRig(c, chainRig()) {
			t.Errorf("clone changed after mutating original")
		}
	})
}

func TestSkeletonClone(t *testing.T) {
	s := NewSkeleton(chainRig())
	s.CurrentClip = 0
	s.FinalPose[1] = mgl32.Translate3D(1, 2, 3)

	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if c.Rig == s.Rig {
		t.Fatalf("Clone() shares the rig pointer")
	}
	if c.FinalPose != s.FinalPose || c.CurrentClip != s.CurrentClip {
		t.Errorf("Clone() did not copy playback state")
	}

	c.FinalPose[1] = mgl32.Ident4()
	if s.FinalPose[1] == c.FinalPose[1] {
		t.Errorf("FinalPose is shared")
	}

	if _, err := (&Skeleton{}).Clone(); !errors.Is(err, ErrNilRig) {
		t.Errorf("Clone() without rig = %v, want ErrNilRig", err)
	}
}

func TestSkeletonSelectClip(t *testing.T) {
	s := NewSkeleton(chainRig())
	if err := s.SelectClip(0); err != nil {
		t.Fatalf("SelectClip(0) = %v", err)
	}
	if err := s.SelectClip(3); !errors.Is(err, ErrClipIndexOutOfRange) {
		t.Errorf("SelectClip(3) = %v, want ErrClipIndexOutOfRange", err)
	}
	if s.CurrentClip != 0 {
		t.Errorf("CurrentClip = %d after failed select, want 0", s.CurrentClip)
	}
}

func TestPoseBytes(t *testing.T) {
	p := IdentityPose()
	if got := len(p.Bytes()); got != PoseByteSize {
		t.Fatalf("len(Bytes()) = %d, want %d", got, PoseByteSize)
	}
	for i := range p {
		if p[i] != mgl32.Ident4() {
			t.Fatalf("slot %d is not identity", i)
		}
	}
}

// sameRig compares two rigs field by field, treating nil and empty slices as equal.
func sameRig(a, b *RigDefinition) bool {
	return reflect.DeepEqual(normalized(a), normalized(b))
}

func normalized(r *RigDefinition) RigDefinition {
	out := RigDefinition{Bones: r.Bones}
	if len(out.Bones) == 0 {
		out.Bones = nil
	}
	for _, n := range r.Nodes {
		if len(n.Children) == 0 {
			n.Children = nil
		}
		out.Nodes = append(out.Nodes, n)
	}
	for _, c := range r.Clips {
		var tracks []BoneTrack
		for _, tr := range c.Tracks {
			if len(tr.Positions) == 0 {
				tr.Positions = nil
			}
			if len(tr.Rotations) == 0 {
				tr.Rotations = nil
			}
			if len(tr.Scales) == 0 {
				tr.Scales = nil
			}
			tracks = append(tracks, tr)
		}
		c.Tracks = tracks
		out.Clips = append(out.Clips, c)
	}
	return out
}
