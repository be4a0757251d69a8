package loader

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithCacheDir is an option builder that enables the binary rig cache in dir.
//
// Parameters:
//   - dir: the directory holding .rig cache files
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithCacheDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.cacheDir = dir
	}
}

// WithRig is an option builder that pre-populates the rig cache with a rig.
//
// Parameters:
//   - key: the cache key for the rig
//   - rig: the rig to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the rig option to a loader
func WithRig(key string, rig *model.RigDefinition) LoaderBuilderOption {
	return func(l *loader) {
		l.rigCache[key] = rig
	}
}
