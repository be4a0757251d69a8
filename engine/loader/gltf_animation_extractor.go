package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfTicksPerSecond is the tick rate of imported glTF clips. glTF timestamps are seconds,
// so one tick is one second.
const gltfTicksPerSecond = 1.0

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor converts glTF animations into ImportedAnimations whose channels
// target nodes by name.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index. Channels targeting the same
	// node are merged into one ImportedChannel; morph weights and channels without a
	// target node are skipped.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - ImportedAnimation: the animation, with Duration the latest timestamp
	//   - error: error if a sampler or accessor is invalid
	ExtractAnimation(animIndex int) (ImportedAnimation, error)

	// ExtractAllAnimations extracts every animation from the document in file order.
	//
	// Returns:
	//   - []ImportedAnimation: the animations
	//   - error: error if any animation fails to extract
	ExtractAllAnimations() ([]ImportedAnimation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (ImportedAnimation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return ImportedAnimation{}, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return ImportedAnimation{}, fmt.Errorf("animation index %d out of range", animIndex)
	}

	anim := &doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	// Channels are kept in first-seen node order so output is deterministic.
	var channels []ImportedChannel
	byNode := make(map[int]int)
	var maxTime float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		nodeIndex := *ch.Target.Node
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return ImportedAnimation{}, fmt.Errorf("animation %q channel %d: invalid node index %d", name, i, nodeIndex)
		}

		var components int
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			components = 3
		case gltfAnimPathRotation:
			components = 4
		default:
			common.Logger().Debug("loader: skipping animation channel", "animation", name, "path", ch.Target.Path)
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return ImportedAnimation{}, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadFloats(sampler.Input, gltfAccessorTypeScalar)
		if err != nil {
			return ImportedAnimation{}, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		values, err := e.readValues(sampler, components, len(times))
		if err != nil {
			return ImportedAnimation{}, fmt.Errorf("animation %q channel %d: failed to read values: %w", name, i, err)
		}

		for _, t := range times {
			maxTime = max(maxTime, t)
		}

		slot, ok := byNode[nodeIndex]
		if !ok {
			slot = len(channels)
			byNode[nodeIndex] = slot
			channels = append(channels, ImportedChannel{NodeName: gltfNodeName(doc, nodeIndex)})
		}
		target := &channels[slot]

		keyCount := min(len(times), len(values)/components)
		switch ch.Target.Path {
		case gltfAnimPathTranslation:
			target.Positions = vectorKeys(times[:keyCount], values)
		case gltfAnimPathScale:
			target.Scales = vectorKeys(times[:keyCount], values)
		case gltfAnimPathRotation:
			keys := make([]model.QuatKey, keyCount)
			for j := range keys {
				keys[j] = model.QuatKey{
					Time:  times[j],
					Value: common.QuatFromXYZW([4]float32(values[j*4 : j*4+4])),
				}
			}
			target.Rotations = keys
		}
	}

	return ImportedAnimation{
		Name:           name,
		Duration:       maxTime,
		TicksPerSecond: gltfTicksPerSecond,
		Channels:       channels,
	}, nil
}

// readValues reads a sampler's output accessor. CUBICSPLINE samplers store an
// in-tangent, value and out-tangent per key; only the values are kept, and the
// track is then interpolated linearly like every other track.
func (e *gltfAnimationExtractorImpl) readValues(sampler *gltfAnimSampler, components, keyCount int) ([]float32, error) {
	accessorType := gltfAccessorTypeVec3
	if components == 4 {
		accessorType = gltfAccessorTypeVec4
	}
	raw, err := e.parser.ReadFloats(sampler.Output, accessorType)
	if err != nil {
		return nil, err
	}
	if sampler.Interpolation != gltfInterpolationCubicSpline {
		return raw, nil
	}

	if len(raw) < keyCount*3*components {
		return nil, fmt.Errorf("cubic spline output has %d values, want %d", len(raw), keyCount*3*components)
	}
	values := make([]float32, keyCount*components)
	for k := 0; k < keyCount; k++ {
		src := raw[(k*3+1)*components : (k*3+2)*components]
		copy(values[k*components:], src)
	}
	return values, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]ImportedAnimation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	anims := make([]ImportedAnimation, 0, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		anims = append(anims, anim)
	}
	return anims, nil
}

func vectorKeys(times, values []float32) []model.VectorKey {
	keys := make([]model.VectorKey, len(times))
	for j := range keys {
		keys[j] = model.VectorKey{
			Time:  times[j],
			Value: mgl32.Vec3{values[j*3], values[j*3+1], values[j*3+2]},
		}
	}
	return keys
}
