package model

import "errors"

var (
	// ErrMalformedHierarchy reports a bone tree that breaks the rig invariants
	// (missing or duplicate root, parent after child, inconsistent child links).
	ErrMalformedHierarchy = errors.New("malformed bone hierarchy")

	// ErrInvalidBoneIndex reports a BoneNode whose BoneIndex does not resolve to a Bone.
	ErrInvalidBoneIndex = errors.New("invalid bone index")

	// ErrCapacityExceeded reports more bones or children than the compiled-in capacity allows.
	ErrCapacityExceeded = errors.New("rig capacity exceeded")

	// ErrClipIndexOutOfRange reports a clip selection outside the rig's clip list.
	ErrClipIndexOutOfRange = errors.New("clip index out of range")

	// ErrClipNotFound reports a clip lookup by name that matched nothing.
	ErrClipNotFound = errors.New("clip not found")

	// ErrNilRig reports an operation on a Skeleton or animator with no rig attached.
	ErrNilRig = errors.New("no rig definition")
)
