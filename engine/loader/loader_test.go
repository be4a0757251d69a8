package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/rigcache"
	"github.com/go-gl/mathgl/mgl32"
)

type obj = map[string]any

// gltfFixture packs float accessors into one embedded buffer.
type gltfFixture struct {
	buf         []byte
	bufferViews []obj
	accessors   []obj
}

func (f *gltfFixture) floats(typ string, count int, values ...float32) int {
	offset := len(f.buf)
	for _, v := range values {
		f.buf = binary.LittleEndian.AppendUint32(f.buf, math.Float32bits(v))
	}
	f.bufferViews = append(f.bufferViews, obj{"buffer": 0, "byteOffset": offset, "byteLength": len(values) * 4})
	f.accessors = append(f.accessors, obj{"bufferView": len(f.bufferViews) - 1, "componentType": 5126, "count": count, "type": typ})
	return len(f.accessors) - 1
}

func mat(m mgl32.Mat4) []float32 { return m[:] }

// riggedDocument returns a glTF document with a non-bone "Armature" root, two joints
// (hip and an unnamed child) and two animations, the second a CUBICSPLINE one.
func riggedDocument(t *testing.T) []byte {
	t.Helper()
	s := float32(math.Sin(math.Pi / 4))

	f := &gltfFixture{}
	ibm := f.floats("MAT4", 2, append(mat(mgl32.Translate3D(0, -1, 0)), mat(mgl32.Translate3D(0, -2, 0))...)...)
	times := f.floats("SCALAR", 2, 0, 1)
	rot := f.floats("VEC4", 2, 0, 0, 0, 1, 0, 0, s, s)
	pos := f.floats("VEC3", 2, 0, 1, 0, 0, 3, 0)
	splineTimes := f.floats("SCALAR", 2, 0, 2)
	spline := f.floats("VEC3", 6,
		9, 9, 9, 0, 1, 0, 9, 9, 9,
		9, 9, 9, 0, 5, 0, 9, 9, 9,
	)

	doc := obj{
		"asset":  obj{"version": "2.0"},
		"scene":  0,
		"scenes": []obj{{"nodes": []int{0}}},
		"nodes": []obj{
			{"name": "Armature", "children": []int{1}},
			{"name": "hip", "children": []int{2}, "translation": []float32{0, 1, 0}},
			{"translation": []float32{0, 1, 0}},
		},
		"skins": []obj{{"joints": []int{1, 2}, "inverseBindMatrices": ibm}},
		"animations": []obj{
			{
				"name": "walk",
				"samplers": []obj{
					{"input": times, "output": rot},
					{"input": times, "output": pos},
				},
				"channels": []obj{
					{"sampler": 0, "target": obj{"node": 1, "path": "rotation"}},
					{"sampler": 1, "target": obj{"node": 2, "path": "translation"}},
					{"sampler": 0, "target": obj{"node": 1, "path": "weights"}},
				},
			},
			{
				"samplers": []obj{{"input": splineTimes, "output": spline, "interpolation": "CUBICSPLINE"}},
				"channels": []obj{{"sampler": 0, "target": obj{"node": 1, "path": "translation"}}},
			},
		},
		"bufferViews": f.bufferViews,
		"accessors":   f.accessors,
		"buffers": []obj{{
			"byteLength": len(f.buf),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(f.buf),
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func writeDocument(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, riggedDocument(t), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func checkRiggedRig(t *testing.T, rig *model.RigDefinition) {
	t.Helper()

	if len(rig.Nodes) != 2 || rig.Nodes[0].Name != "hip" || rig.Nodes[1].Name != "node_2" {
		t.Fatalf("nodes = %+v, want [hip node_2]", rig.Nodes)
	}
	if rig.Nodes[1].Parent != 0 {
		t.Errorf("node_2 parent = %d, want 0", rig.Nodes[1].Parent)
	}
	if got, want := rig.Nodes[0].LocalTransform, mgl32.Translate3D(0, 1, 0); !matNear(got, want) {
		t.Errorf("hip local = %v, want %v", got, want)
	}
	if got, want := rig.Bones[1].Offset, mgl32.Translate3D(0, -2, 0); !matNear(got, want) {
		t.Errorf("node_2 offset = %v, want %v", got, want)
	}
	if got, want := rig.Nodes[1].BindInverse, mgl32.Translate3D(0, -2, 0); !matNear(got, want) {
		t.Errorf("node_2 bind inverse = %v, want %v", got, want)
	}

	if len(rig.Clips) != 2 {
		t.Fatalf("clip count = %d, want 2", len(rig.Clips))
	}
	walk, spline := rig.Clips[0], rig.Clips[1]

	if walk.Name != "walk" || walk.Duration != 1 || walk.TicksPerSecond != 1 {
		t.Errorf("walk = %q duration %v tps %v", walk.Name, walk.Duration, walk.TicksPerSecond)
	}
	if len(walk.Tracks) != 2 || walk.Tracks[0].BoneName != "hip" || walk.Tracks[1].BoneName != "node_2" {
		t.Fatalf("walk tracks = %+v", walk.Tracks)
	}
	wantRot := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	if got := walk.Tracks[0].Rotations[1].Value; !quatNear(got, wantRot) {
		t.Errorf("hip rotation key 1 = %v, want %v", got, wantRot)
	}
	if len(walk.Tracks[0].Positions) != 0 {
		t.Errorf("weights channel produced position keys")
	}
	if got := walk.Tracks[1].Positions[1]; got.Time != 1 || got.Value != (mgl32.Vec3{0, 3, 0}) {
		t.Errorf("node_2 position key 1 = %+v", got)
	}

	if spline.Name != "animation_1" || spline.Duration != 2 {
		t.Errorf("spline clip = %q duration %v", spline.Name, spline.Duration)
	}
	keys := spline.Tracks[0].Positions
	if len(keys) != 2 || keys[0].Value != (mgl32.Vec3{0, 1, 0}) || keys[1].Value != (mgl32.Vec3{0, 5, 0}) {
		t.Errorf("spline keys = %+v, want the middle values", keys)
	}
}

func TestImportGLTFReader(t *testing.T) {
	scene, err := ImportGLTFReader(bytes.NewReader(riggedDocument(t)), false)
	if err != nil {
		t.Fatalf("ImportGLTFReader() error: %v", err)
	}
	if scene.Root == nil || scene.Root.Name != "Armature" {
		t.Fatalf("root = %+v, want Armature", scene.Root)
	}
	if len(scene.Bones) != 2 || scene.Bones[1].Name != "node_2" {
		t.Errorf("bones = %+v", scene.Bones)
	}

	rig, err := BuildRig(scene)
	if err != nil {
		t.Fatalf("BuildRig() error: %v", err)
	}
	checkRiggedRig(t, rig)
}

func TestImportGLTFRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"wrong version", `{"asset":{"version":"1.0"}}`},
		{"cycle", `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"children":[1]},{"children":[0]}]}`},
		{"bad joint", `{"asset":{"version":"2.0"},"nodes":[{}],"skins":[{"joints":[4]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ImportGLTFReader(bytes.NewReader([]byte(tt.data)), false); err == nil {
				t.Errorf("ImportGLTFReader() succeeded")
			}
		})
	}
}

func TestImportGLTFFile(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "hero.gltf")
	scene, err := ImportGLTF(path)
	if err != nil {
		t.Fatalf("ImportGLTF() error: %v", err)
	}
	if scene.Name != "hero" {
		t.Errorf("scene name = %q, want hero", scene.Name)
	}
}

func TestLoaderCachesByName(t *testing.T) {
	dir := t.TempDir()
	path := writeDocument(t, dir, "hero.gltf")
	l := NewLoader(BackendTypeGLTF)

	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	checkRiggedRig(t, first)

	second, err := l.Load(path)
	if err != nil || second != first {
		t.Errorf("second Load() = %p, %v; want cached %p", second, err, first)
	}
	if l.Get(path) != first || len(l.Rigs()) != 1 {
		t.Errorf("Get/Rigs do not report the cached rig")
	}

	if _, err := l.Load(filepath.Join(dir, "hero.fbx")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(.fbx) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := l.Load(filepath.Join(dir, "missing.gltf")); err == nil {
		t.Errorf("Load(missing) succeeded")
	}
}

func TestLoaderWithRig(t *testing.T) {
	rig := &model.RigDefinition{}
	l := NewLoader(BackendTypeGLTF, WithRig("npc.gltf", rig))
	got, err := l.Load("npc.gltf")
	if err != nil || got != rig {
		t.Errorf("Load(preloaded) = %p, %v; want %p", got, err, rig)
	}
}

func TestLoaderLoadReader(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	rig, err := l.LoadReader("streamed", bytes.NewReader(riggedDocument(t)), false)
	if err != nil {
		t.Fatalf("LoadReader() error: %v", err)
	}
	checkRiggedRig(t, rig)
	if l.Get("streamed") != rig {
		t.Errorf("LoadReader() result not cached")
	}
}

func TestLoaderLoadParts(t *testing.T) {
	dir := t.TempDir()
	body := writeDocument(t, dir, "body.gltf")
	head := writeDocument(t, dir, "head.gltf")

	l := NewLoader(BackendTypeGLTF)
	rig, err := l.LoadParts("hero", body, head)
	if err != nil {
		t.Fatalf("LoadParts() error: %v", err)
	}
	if len(rig.Nodes) != 2 {
		t.Errorf("shared bones duplicated: %d nodes, want 2", len(rig.Nodes))
	}
	if len(rig.Clips) != 4 {
		t.Errorf("clip count = %d, want 4", len(rig.Clips))
	}
	if l.Get("hero") != rig {
		t.Errorf("LoadParts() result not cached")
	}
}

func TestLoaderRigCache(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeDocument(t, dir, "hero.gltf")
	cachePath := CachePath(cacheDir, path)

	if filepath.Dir(cachePath) != cacheDir || !strings.HasPrefix(filepath.Base(cachePath), "hero-") || filepath.Ext(cachePath) != CacheExtension {
		t.Fatalf("CachePath() = %q, want %s/hero-<hash>%s", cachePath, cacheDir, CacheExtension)
	}
	if again := CachePath(cacheDir, filepath.Join(dir, ".", "hero.gltf")); again != cachePath {
		t.Fatalf("CachePath() of an equivalent path = %q, want %q", again, cachePath)
	}

	if _, err := NewLoader(BackendTypeGLTF, WithCacheDir(cacheDir)).Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	t.Run("corrupt cache falls back to import", func(t *testing.T) {
		if err := os.WriteFile(cachePath, []byte("garbage"), 0o644); err != nil {
			t.Fatal(err)
		}
		rig, err := NewLoader(BackendTypeGLTF, WithCacheDir(cacheDir)).Load(path)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		checkRiggedRig(t, rig)
		if _, err := rigcache.LoadFile(cachePath); err != nil {
			t.Errorf("cache not rewritten: %v", err)
		}
	})

	t.Run("cache serves a removed source", func(t *testing.T) {
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}
		rig, err := NewLoader(BackendTypeGLTF, WithCacheDir(cacheDir)).Load(path)
		if err != nil {
			t.Fatalf("Load() from cache error: %v", err)
		}
		checkRiggedRig(t, rig)
	})
}

func TestLoaderRigCacheKeysOnSourcePath(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	for _, sub := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	rigged := writeDocument(t, filepath.Join(dir, "a"), "fox.gltf")
	plain := filepath.Join(dir, "b", "fox.gltf")
	unskinned := `{"asset":{"version":"2.0"},"scene":0,"scenes":[{"nodes":[0]}],"nodes":[{"name":"prop"}]}`
	if err := os.WriteFile(plain, []byte(unskinned), 0o644); err != nil {
		t.Fatal(err)
	}
	// older than any cache file written below
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(plain, old, old); err != nil {
		t.Fatal(err)
	}

	paths := map[string]bool{}
	for _, src := range []string{rigged, plain, filepath.Join(dir, "a", "fox.glb")} {
		paths[CachePath(cacheDir, src)] = true
	}
	if len(paths) != 3 {
		t.Fatalf("same-named sources share cache files: %v", paths)
	}

	rig, err := NewLoader(BackendTypeGLTF, WithCacheDir(cacheDir)).Load(rigged)
	if err != nil {
		t.Fatalf("Load(a/fox.gltf) error: %v", err)
	}
	checkRiggedRig(t, rig)

	rig, err = NewLoader(BackendTypeGLTF, WithCacheDir(cacheDir)).Load(plain)
	if err != nil {
		t.Fatalf("Load(b/fox.gltf) error: %v", err)
	}
	if len(rig.Bones) != 0 {
		t.Errorf("b/fox.gltf has no skin but loaded %d bones", len(rig.Bones))
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("cache dir holds %d files, want 2", len(entries))
	}
}
