// Package rigcache reads and writes the binary rig cache: a Skeleton (bones, bone tree,
// clips and last pose) laid out field by field in a single little-endian pass.
//
// Layout:
//
//	u32 boneCount
//	  bone: i32 id, mat4 offset, str name
//	u32 nodeCount
//	  node: str name, i32 boneIndex, u32 childCount, i32 children[childCount],
//	        i32 parent, mat4 localTransform, mat4 bindInverse
//	u32 clipCount
//	  clip: str name, u32 trackCount,
//	        track: str name, u32 posCount, u32 rotCount, u32 scaleCount,
//	               vec3 positions[], quat rotations[], vec3 scales[],
//	               f32 posTimes[], f32 rotTimes[], f32 scaleTimes[]
//	        f32 duration, f32 ticksPerSecond
//	mat4 finalPose[model.MaxBones]
//
// str is a u32 byte length followed by the bytes, mat4 is 16 column-major f32,
// vec3 is 3 f32 and quat is 4 f32 in x, y, z, w order. There is no version header;
// versioning belongs to the enclosing asset format.
package rigcache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Reader limits. Bone, node and child counts are bounded by the rig capacity in model.
const (
	MaxNameLength = 4096
	MaxClips      = 1024
	MaxTracks     = 4096
	MaxKeys       = 1 << 20
)

var (
	// ErrCapacityExceeded reports a count in the stream above the compiled-in bound.
	ErrCapacityExceeded = errors.New("rigcache: count exceeds capacity")

	// ErrTruncated reports a stream that ended before the layout was complete.
	ErrTruncated = errors.New("rigcache: truncated data")
)

// --- Encoding ---

type encoder struct {
	w   *bufio.Writer
	buf [4]byte
	err error
	n   int64
}

func (e *encoder) u32(v uint32) {
	if e.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(e.buf[:], v)
	var n int
	n, e.err = e.w.Write(e.buf[:])
	e.n += int64(n)
}

func (e *encoder) i32(v int32)   { e.u32(uint32(v)) }
func (e *encoder) f32(v float32) { e.u32(math.Float32bits(v)) }

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	if e.err != nil {
		return
	}
	var n int
	n, e.err = e.w.WriteString(s)
	e.n += int64(n)
}

func (e *encoder) mat4(m mgl32.Mat4) {
	for _, v := range m {
		e.f32(v)
	}
}

func (e *encoder) vec3(v mgl32.Vec3) {
	e.f32(v[0])
	e.f32(v[1])
	e.f32(v[2])
}

func (e *encoder) quat(q mgl32.Quat) {
	for _, v := range common.QuatToXYZW(q) {
		e.f32(v)
	}
}

// Encode writes a skeleton in the rig cache layout. The rig must pass Validate and
// every count must fit the reader limits, so anything Encode accepts Decode accepts.
//
// Parameters:
//   - w: destination writer
//   - s: the skeleton to write
//
// Returns:
//   - int64: bytes written
//   - error: validation, capacity or write error
func Encode(w io.Writer, s *model.Skeleton) (int64, error) {
	if s == nil || s.Rig == nil {
		return 0, model.ErrNilRig
	}
	rig := s.Rig
	if err := rig.Validate(); err != nil {
		return 0, fmt.Errorf("rigcache: encode: %w", err)
	}
	if err := checkEncodable(rig); err != nil {
		return 0, err
	}

	e := &encoder{w: bufio.NewWriter(w)}

	e.u32(uint32(len(rig.Bones)))
	for i := range rig.Bones {
		b := &rig.Bones[i]
		e.i32(b.ID)
		e.mat4(b.Offset)
		e.str(b.Name)
	}

	e.u32(uint32(len(rig.Nodes)))
	for i := range rig.Nodes {
		n := &rig.Nodes[i]
		e.str(n.Name)
		e.i32(n.BoneIndex)
		e.u32(uint32(len(n.Children)))
		for _, c := range n.Children {
			e.i32(c)
		}
		e.i32(n.Parent)
		e.mat4(n.LocalTransform)
		e.mat4(n.BindInverse)
	}

	e.u32(uint32(len(rig.Clips)))
	for i := range rig.Clips {
		c := &rig.Clips[i]
		e.str(c.Name)
		e.u32(uint32(len(c.Tracks)))
		for j := range c.Tracks {
			encodeTrack(e, &c.Tracks[j])
		}
		e.f32(c.Duration)
		e.f32(c.TicksPerSecond)
	}

	for i := range s.FinalPose {
		e.mat4(s.FinalPose[i])
	}

	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return e.n, fmt.Errorf("rigcache: encode: %w", e.err)
	}
	return e.n, nil
}

func encodeTrack(e *encoder, t *model.BoneTrack) {
	e.str(t.BoneName)
	e.u32(uint32(len(t.Positions)))
	e.u32(uint32(len(t.Rotations)))
	e.u32(uint32(len(t.Scales)))
	for _, k := range t.Positions {
		e.vec3(k.Value)
	}
	for _, k := range t.Rotations {
		e.quat(k.Value)
	}
	for _, k := range t.Scales {
		e.vec3(k.Value)
	}
	for _, k := range t.Positions {
		e.f32(k.Time)
	}
	for _, k := range t.Rotations {
		e.f32(k.Time)
	}
	for _, k := range t.Scales {
		e.f32(k.Time)
	}
}

func checkEncodable(rig *model.RigDefinition) error {
	checkName := func(kind, name string) error {
		if len(name) > MaxNameLength {
			return fmt.Errorf("%w: %s name of %d bytes (max %d)", ErrCapacityExceeded, kind, len(name), MaxNameLength)
		}
		return nil
	}
	for i := range rig.Bones {
		if err := checkName("bone", rig.Bones[i].Name); err != nil {
			return err
		}
	}
	for i := range rig.Nodes {
		if err := checkName("node", rig.Nodes[i].Name); err != nil {
			return err
		}
	}
	if len(rig.Clips) > MaxClips {
		return fmt.Errorf("%w: %d clips (max %d)", ErrCapacityExceeded, len(rig.Clips), MaxClips)
	}
	for i := range rig.Clips {
		c := &rig.Clips[i]
		if err := checkName("clip", c.Name); err != nil {
			return err
		}
		if len(c.Tracks) > MaxTracks {
			return fmt.Errorf("%w: clip %q has %d tracks (max %d)", ErrCapacityExceeded, c.Name, len(c.Tracks), MaxTracks)
		}
		for j := range c.Tracks {
			t := &c.Tracks[j]
			if err := checkName("track", t.BoneName); err != nil {
				return err
			}
			if len(t.Positions) > MaxKeys || len(t.Rotations) > MaxKeys || len(t.Scales) > MaxKeys {
				return fmt.Errorf("%w: track %q has more than %d keys", ErrCapacityExceeded, t.BoneName, MaxKeys)
			}
		}
	}
	return nil
}

// --- Decoding ---

type decoder struct {
	r   *bufio.Reader
	buf [4]byte
	err error
	n   int64
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	n, err := io.ReadFull(d.r, d.buf[:])
	d.n += int64(n)
	if err != nil {
		d.fail(err)
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:])
}

func (d *decoder) i32() int32   { return int32(d.u32()) }
func (d *decoder) f32() float32 { return math.Float32frombits(d.u32()) }

func (d *decoder) fail(err error) {
	if d.err != nil {
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w at byte %d", ErrTruncated, d.n)
	}
	d.err = err
}

// count reads a u32 count and rejects it if it exceeds limit.
func (d *decoder) count(kind string, limit int) int {
	v := d.u32()
	if d.err != nil {
		return 0
	}
	if uint64(v) > uint64(limit) {
		d.err = fmt.Errorf("%w: %s count %d (max %d)", ErrCapacityExceeded, kind, v, limit)
		return 0
	}
	return int(v)
}

func (d *decoder) str() string {
	n := d.count("name length", MaxNameLength)
	if d.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	read, err := io.ReadFull(d.r, b)
	d.n += int64(read)
	if err != nil {
		d.fail(err)
		return ""
	}
	return string(b)
}

func (d *decoder) mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = d.f32()
	}
	return m
}

func (d *decoder) vec3() mgl32.Vec3 {
	return mgl32.Vec3{d.f32(), d.f32(), d.f32()}
}

func (d *decoder) quat() mgl32.Quat {
	var v [4]float32
	for i := range v {
		v[i] = d.f32()
	}
	return common.QuatFromXYZW(v)
}

// Decode reads a skeleton written by Encode. Counts above the compiled-in limits are
// rejected before any allocation, truncated input yields ErrTruncated, and the decoded
// rig must pass Validate. CurrentClip of the result is 0.
//
// Parameters:
//   - r: source reader
//
// Returns:
//   - *model.Skeleton: the decoded skeleton
//   - error: ErrCapacityExceeded, ErrTruncated, a validation error or a read error
func Decode(r io.Reader) (*model.Skeleton, error) {
	d := &decoder{r: bufio.NewReader(r)}
	rig := &model.RigDefinition{}

	boneCount := d.count("bone", model.MaxBones)
	if boneCount > 0 {
		rig.Bones = make([]model.Bone, boneCount)
	}
	for i := 0; i < boneCount && d.err == nil; i++ {
		b := &rig.Bones[i]
		b.ID = d.i32()
		b.Offset = d.mat4()
		b.Name = d.str()
	}

	nodeCount := d.count("node", model.MaxBones)
	if nodeCount > 0 {
		rig.Nodes = make([]model.BoneNode, nodeCount)
	}
	for i := 0; i < nodeCount && d.err == nil; i++ {
		n := &rig.Nodes[i]
		n.Name = d.str()
		n.BoneIndex = d.i32()
		childCount := d.count("child", model.MaxChildren)
		if childCount > 0 {
			n.Children = make([]int32, childCount)
		}
		for c := 0; c < childCount; c++ {
			n.Children[c] = d.i32()
		}
		n.Parent = d.i32()
		n.LocalTransform = d.mat4()
		n.BindInverse = d.mat4()
	}

	clipCount := d.count("clip", MaxClips)
	if clipCount > 0 {
		rig.Clips = make([]model.AnimationClip, 0, min(clipCount, decodeChunk))
	}
	for i := 0; i < clipCount && d.err == nil; i++ {
		rig.Clips = append(rig.Clips, model.AnimationClip{})
		c := &rig.Clips[i]
		c.Name = d.str()
		trackCount := d.count("track", MaxTracks)
		c.Tracks = decodeSlice(d, trackCount, func() model.BoneTrack {
			var t model.BoneTrack
			decodeTrack(d, &t)
			return t
		})
		c.Duration = d.f32()
		c.TicksPerSecond = d.f32()
	}

	s := &model.Skeleton{Rig: rig}
	for i := range s.FinalPose {
		s.FinalPose[i] = d.mat4()
	}

	if d.err != nil {
		return nil, fmt.Errorf("rigcache: decode: %w", d.err)
	}
	if err := rig.Validate(); err != nil {
		return nil, fmt.Errorf("rigcache: decode: %w", err)
	}

	common.Logger().Debug("rigcache: decoded skeleton",
		"bytes", d.n, "bones", len(rig.Bones), "clips", len(rig.Clips))
	return s, nil
}

func decodeTrack(d *decoder, t *model.BoneTrack) {
	t.BoneName = d.str()
	posCount := d.count("position key", MaxKeys)
	rotCount := d.count("rotation key", MaxKeys)
	scaleCount := d.count("scale key", MaxKeys)
	if d.err != nil {
		return
	}

	t.Positions = decodeSlice(d, posCount, func() model.VectorKey { return model.VectorKey{Value: d.vec3()} })
	t.Rotations = decodeSlice(d, rotCount, func() model.QuatKey { return model.QuatKey{Value: d.quat()} })
	t.Scales = decodeSlice(d, scaleCount, func() model.VectorKey { return model.VectorKey{Value: d.vec3()} })
	if d.err != nil {
		return
	}

	for i := range t.Positions {
		t.Positions[i].Time = d.f32()
	}
	for i := range t.Rotations {
		t.Rotations[i].Time = d.f32()
	}
	for i := range t.Scales {
		t.Scales[i].Time = d.f32()
	}
}

// decodeChunk caps the up-front allocation for a counted array. Larger arrays grow
// as their bytes arrive, so a short stream cannot force a large allocation.
const decodeChunk = 256

// decodeSlice reads n values with read, stopping at the first decode error.
func decodeSlice[K any](d *decoder, n int, read func() K) []K {
	if n == 0 {
		return nil
	}
	keys := make([]K, 0, min(n, decodeChunk))
	for i := 0; i < n && d.err == nil; i++ {
		keys = append(keys, read())
	}
	return keys
}
