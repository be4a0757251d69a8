package loader

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/rigcache"
)

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// CacheExtension is the file extension of rig cache files written by the Loader.
const CacheExtension = ".rig"

// ErrUnsupportedFormat is returned for files no backend can import.
var ErrUnsupportedFormat = errors.New("unsupported scene format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	rigCache map[string]*model.RigDefinition

	backend  loaderBackend
	cacheDir string
}

// Loader imports character rigs and caches the resulting RigDefinitions by name.
// Rigs handed out by the Loader are shared; callers must treat them as read-only
// and create one animator per animated instance.
//
// With a cache directory configured, Load first tries the binary rig cache and
// writes one after every successful import.
type Loader interface {
	// Load imports a scene file and builds its rig. Cached rigs are returned as-is.
	//
	// Parameters:
	//   - path: the file path to the scene file
	//
	// Returns:
	//   - *model.RigDefinition: the loaded rig
	//   - error: error if import or rig construction fails
	Load(path string) (*model.RigDefinition, error)

	// LoadParts builds one rig from several scene files that share a skeleton, such as
	// separately exported body parts. Bones are added in file order; clips of every part
	// are appended. The result is cached under name.
	//
	// Parameters:
	//   - name: the cache key for the combined rig
	//   - paths: the part files
	//
	// Returns:
	//   - *model.RigDefinition: the combined rig
	//   - error: error if any part fails to import or the parts do not form one tree
	LoadParts(name string, paths ...string) (*model.RigDefinition, error)

	// LoadReader imports a scene from a reader stream and caches the rig under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the reader providing scene data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.RigDefinition: the loaded rig
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*model.RigDefinition, error)

	// Get retrieves a cached rig by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.RigDefinition: the cached rig or nil
	Get(name string) *model.RigDefinition

	// Rigs returns a snapshot of the rig cache.
	//
	// Returns:
	//   - map[string]*model.RigDefinition: all cached rigs keyed by name
	Rigs() map[string]*model.RigDefinition
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:       sync.RWMutex{},
		rigCache: make(map[string]*model.RigDefinition),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*model.RigDefinition, error) {
	if rig := l.Get(path); rig != nil {
		return rig, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	if rig, ok := l.readCache(path); ok {
		return l.store(path, rig), nil
	}

	scene, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	rig, err := BuildRig(scene)
	if err != nil {
		return nil, err
	}

	l.writeCache(path, rig)
	return l.store(path, rig), nil
}

func (l *loader) LoadParts(name string, paths ...string) (*model.RigDefinition, error) {
	if rig := l.Get(name); rig != nil {
		return rig, nil
	}

	hb := NewHierarchyBuilder()
	var anims []ImportedAnimation
	for _, path := range paths {
		backend, err := l.resolveBackend(path)
		if err != nil {
			return nil, err
		}
		scene, err := backend.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if err := hb.Add(scene.Root, scene.Bones); err != nil {
			return nil, fmt.Errorf("part %s: %w", path, err)
		}
		anims = append(anims, scene.Animations...)
	}

	rig, err := hb.Build()
	if err != nil {
		return nil, fmt.Errorf("rig %s: %w", name, err)
	}
	if err := LoadClips(rig, anims); err != nil {
		return nil, fmt.Errorf("rig %s: %w", name, err)
	}
	return l.store(name, rig), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*model.RigDefinition, error) {
	if rig := l.Get(name); rig != nil {
		return rig, nil
	}

	scene, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	scene.Name = name

	rig, err := BuildRig(scene)
	if err != nil {
		return nil, err
	}
	return l.store(name, rig), nil
}

func (l *loader) Get(name string) *model.RigDefinition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rigCache[name]
}

func (l *loader) Rigs() map[string]*model.RigDefinition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*model.RigDefinition, len(l.rigCache))
	for k, v := range l.rigCache {
		result[k] = v
	}
	return result
}

// store caches rig under name unless another goroutine got there first, and
// returns the rig that ended up cached.
func (l *loader) store(name string, rig *model.RigDefinition) *model.RigDefinition {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.rigCache[name]; ok {
		return existing
	}
	l.rigCache[name] = rig
	return rig
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// CachePath returns the rig cache file used for a source scene file. The file name
// carries a hash of the absolute source path, so same-named sources in different
// directories or with different extensions never share a cache file.
//
// Parameters:
//   - cacheDir: the cache directory
//   - source: the source scene path
//
// Returns:
//   - string: the cache file path
func CachePath(cacheDir, source string) string {
	key, err := filepath.Abs(source)
	if err != nil {
		key = filepath.Clean(source)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))

	base := filepath.Base(source)
	name := fmt.Sprintf("%s-%016x%s", strings.TrimSuffix(base, filepath.Ext(base)), h.Sum64(), CacheExtension)
	return filepath.Join(cacheDir, name)
}

// readCache returns the cached rig for source when the cache file exists and is not
// older than the source. Any failure falls back to a fresh import.
func (l *loader) readCache(source string) (*model.RigDefinition, bool) {
	if l.cacheDir == "" {
		return nil, false
	}
	cachePath := CachePath(l.cacheDir, source)

	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return nil, false
	}
	if srcInfo, err := os.Stat(source); err == nil && srcInfo.ModTime().After(cacheInfo.ModTime()) {
		common.Logger().Debug("loader: rig cache is stale", "cache", cachePath)
		return nil, false
	}

	s, err := rigcache.LoadFile(cachePath)
	if err != nil {
		common.Logger().Warn("loader: ignoring unreadable rig cache", "cache", cachePath, "err", err)
		return nil, false
	}
	common.Logger().Info("loader: loaded rig from cache", "cache", cachePath, "bones", len(s.Rig.Bones), "clips", len(s.Rig.Clips))
	return s.Rig, true
}

func (l *loader) writeCache(source string, rig *model.RigDefinition) {
	if l.cacheDir == "" {
		return
	}
	cachePath := CachePath(l.cacheDir, source)
	if err := rigcache.SaveFile(cachePath, model.NewSkeleton(rig)); err != nil {
		common.Logger().Warn("loader: failed to write rig cache", "cache", cachePath, "err", err)
	}
}
