package model

import (
	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/go-gl/mathgl/mgl32"
)

// KeyTime returns the key's timestamp in ticks.
func (k VectorKey) KeyTime() float32 { return k.Time }

// KeyTime returns the key's timestamp in ticks.
func (k QuatKey) KeyTime() float32 { return k.Time }

type timedKey interface {
	KeyTime() float32
}

// keySegment returns index0 of the key pair bracketing time, i.e. the pair with
// keys[i].Time <= time < keys[i+1].Time. Times before the first key use the first
// segment; times at or past the last key use the final segment (len-2).
// keys must hold at least two entries.
func keySegment[K timedKey](keys []K, time float32) int {
	last := len(keys) - 2
	for i := 0; i < last; i++ {
		if time < keys[i+1].KeyTime() {
			return i
		}
	}
	return last
}

// InterpolationFactor returns (time - t0) / (t1 - t0) clamped to [0, 1].
// A zero or negative span yields 0.
//
// Parameters:
//   - t0: timestamp of the first key
//   - t1: timestamp of the second key
//   - time: the sample time
//
// Returns:
//   - float32: the blend factor between the two keys
func InterpolationFactor(t0, t1, time float32) float32 {
	span := t1 - t0
	if span <= 0 {
		return 0
	}
	f := (time - t0) / span
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// SamplePosition samples a translation track. An empty track yields the zero vector.
func SamplePosition(keys []VectorKey, time float32) mgl32.Vec3 {
	return sampleVector(keys, time, mgl32.Vec3{})
}

// SampleScale samples a scale track. An empty track yields unit scale.
func SampleScale(keys []VectorKey, time float32) mgl32.Vec3 {
	return sampleVector(keys, time, mgl32.Vec3{1, 1, 1})
}

func sampleVector(keys []VectorKey, time float32, identity mgl32.Vec3) mgl32.Vec3 {
	switch len(keys) {
	case 0:
		return identity
	case 1:
		return keys[0].Value
	}

	i := keySegment(keys, time)
	k0, k1 := keys[i], keys[i+1]
	f := InterpolationFactor(k0.Time, k1.Time, time)
	return k0.Value.Add(k1.Value.Sub(k0.Value).Mul(f))
}

// SampleRotation samples a rotation track using spherical linear interpolation
// between normalized keys along the shortest arc. An empty track yields the identity rotation.
func SampleRotation(keys []QuatKey, time float32) mgl32.Quat {
	switch len(keys) {
	case 0:
		return mgl32.QuatIdent()
	case 1:
		return keys[0].Value
	}

	i := keySegment(keys, time)
	k0, k1 := keys[i], keys[i+1]
	f := InterpolationFactor(k0.Time, k1.Time, time)

	q0 := k0.Value.Normalize()
	q1 := k1.Value.Normalize()
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	return mgl32.QuatSlerp(q0, q1, f).Normalize()
}

// LocalTransform samples all three channels of the track at time and composes them
// (scale, then rotation, then translation).
//
// Parameters:
//   - time: the sample time in ticks
//
// Returns:
//   - mgl32.Mat4: the bone's animated local transform
func (t *BoneTrack) LocalTransform(time float32) mgl32.Mat4 {
	return common.ComposeTRS(
		SamplePosition(t.Positions, time),
		SampleRotation(t.Rotations, time),
		SampleScale(t.Scales, time),
	)
}

// KeyCount returns the total number of keys across all three channels.
func (t *BoneTrack) KeyCount() int {
	return len(t.Positions) + len(t.Rotations) + len(t.Scales)
}
