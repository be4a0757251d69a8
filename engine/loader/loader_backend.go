package loader

import (
	"io"
)

// loaderBackend is the format-specific half of the Loader: it turns a file or
// stream into the import contract. Rig construction is format independent.
type loaderBackend interface {
	// Load imports the scene stored at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *ImportedScene: the imported scene
	//   - error: error if loading fails
	Load(path string) (*ImportedScene, error)

	// LoadReader imports a scene from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing scene data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *ImportedScene: the imported scene
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*ImportedScene, error)
}
