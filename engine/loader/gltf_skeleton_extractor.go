package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor converts the node graph and skins of a parsed glTF document
// into the import contract: a SceneNode tree and the list of skinning bones.
type gltfSkeletonExtractor interface {
	// ExtractScene builds the SceneNode tree of the active scene. When the scene has
	// a single root node that node is returned; otherwise the roots are wrapped in an
	// unnamed synthetic root with an identity transform.
	//
	// Returns:
	//   - *SceneNode: the root of the scene graph, nil for an empty scene
	//   - error: error if a node reference is invalid or the graph has a cycle
	ExtractScene() (*SceneNode, error)

	// ExtractBones collects the joints of every skin, in skin then joint order.
	// A joint listed by more than one skin is reported once, with the offset of the first skin.
	//
	// Returns:
	//   - []ImportedBone: the bones with their inverse bind matrices
	//   - error: error if a joint or inverse bind matrix accessor is invalid
	ExtractBones() ([]ImportedBone, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractScene() (*SceneNode, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	roots, err := gltfSceneRoots(doc)
	if err != nil {
		return nil, err
	}

	visiting := make([]bool, len(doc.Nodes))
	nodes := make([]*SceneNode, 0, len(roots))
	for _, r := range roots {
		n, err := e.buildNode(doc, r, visiting)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return NewSceneNode("", mgl32.Ident4(), nodes...), nil
	}
}

func (e *gltfSkeletonExtractorImpl) buildNode(doc *gltfDocument, index int, visiting []bool) (*SceneNode, error) {
	if index < 0 || index >= len(doc.Nodes) {
		return nil, fmt.Errorf("invalid node index %d", index)
	}
	if visiting[index] {
		return nil, fmt.Errorf("node %d is its own ancestor", index)
	}
	visiting[index] = true
	defer func() { visiting[index] = false }()

	node := &doc.Nodes[index]
	out := &SceneNode{
		Name:      gltfNodeName(doc, index),
		Transform: gltfNodeTransform(node),
	}
	if len(node.Children) > 0 {
		out.Children = make([]*SceneNode, 0, len(node.Children))
	}
	for _, c := range node.Children {
		child, err := e.buildNode(doc, c, visiting)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractBones() ([]ImportedBone, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	var bones []ImportedBone
	seen := make(map[int]bool)

	for s := range doc.Skins {
		skin := &doc.Skins[s]

		var ibm []float32
		if skin.InverseBindMatrices != nil {
			var err error
			ibm, err = e.parser.ReadFloats(*skin.InverseBindMatrices, gltfAccessorTypeMat4)
			if err != nil {
				return nil, fmt.Errorf("skin %d: failed to read inverse bind matrices: %w", s, err)
			}
		}

		for i, joint := range skin.Joints {
			if joint < 0 || joint >= len(doc.Nodes) {
				return nil, fmt.Errorf("skin %d joint %d: invalid node index %d", s, i, joint)
			}
			if seen[joint] {
				continue
			}
			seen[joint] = true

			offset := mgl32.Ident4()
			if (i+1)*16 <= len(ibm) {
				copy(offset[:], ibm[i*16:(i+1)*16])
			}
			bones = append(bones, ImportedBone{
				Name:   gltfNodeName(doc, joint),
				Offset: offset,
			})
		}
	}
	return bones, nil
}

// --- Helper Functions ---

// gltfSceneRoots returns the root node indices of the default scene. Documents
// without scenes fall back to every node that is nobody's child.
func gltfSceneRoots(doc *gltfDocument) ([]int, error) {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, fmt.Errorf("scene index %d out of range", idx)
		}
		return doc.Scenes[idx].Nodes, nil
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

// gltfNodeName returns the node's name, or "node_<index>" for unnamed nodes so that
// bones and animation targets always have a stable key.
func gltfNodeName(doc *gltfDocument, index int) string {
	if name := doc.Nodes[index].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node_%d", index)
}

// gltfNodeTransform returns the node's local matrix: Matrix when present, otherwise T·R·S.
func gltfNodeTransform(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}

	t := mgl32.Vec3{}
	r := mgl32.QuatIdent()
	s := mgl32.Vec3{1, 1, 1}
	if node.Translation != nil {
		t = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		r = common.QuatFromXYZW(*node.Rotation)
	}
	if node.Scale != nil {
		s = mgl32.Vec3(*node.Scale)
	}
	return common.ComposeTRS(t, r, s)
}
