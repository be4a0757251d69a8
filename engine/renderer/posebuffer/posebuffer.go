// Package posebuffer stages evaluated poses for upload into the skinning shader's
// bone matrix storage buffer.
package posebuffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// BufferWrite describes a single GPU buffer write: Data lands at Offset bytes into
// the buffer bound at Binding.
type BufferWrite struct {
	Binding int
	Offset  uint64
	Data    []byte
}

// poseBuffer is the implementation of the PoseBuffer interface.
type poseBuffer struct {
	mu *sync.Mutex

	label     string
	binding   int
	instances int

	staging    []byte
	dirty      bool
	dirtyStart int
	dirtyEnd   int

	stagedWriteData []BufferWrite
}

// PoseBuffer holds one Pose slot per instance in a CPU staging slab laid out exactly
// like the GPU buffer (instance i starts at i * model.PoseByteSize). Staged poses are
// coalesced into a single write covering the dirty instance range.
type PoseBuffer interface {
	// Label returns the buffer label.
	Label() string

	// Binding returns the bind group binding index writes target.
	Binding() int

	// Instances returns the number of pose slots.
	Instances() int

	// Size returns the byte size the GPU buffer must have.
	//
	// Returns:
	//   - uint64: Instances * model.PoseByteSize
	Size() uint64

	// Stage copies a pose into the slot of an instance and marks it dirty.
	//
	// Parameters:
	//   - instance: the slot index
	//   - p: the pose to upload
	//
	// Returns:
	//   - error: error if the instance index is out of range
	Stage(instance int, p *model.Pose) error

	// Flush turns the dirty range into a BufferWrite and appends it to the pending writes.
	//
	// Returns:
	//   - int: the number of instances flushed
	Flush() int

	// StagedWriteData returns and clears the pending writes. The returned Data aliases
	// the staging slab and is valid until the next Stage call.
	//
	// Returns:
	//   - []BufferWrite: the pending writes
	StagedWriteData() []BufferWrite
}

var _ PoseBuffer = &poseBuffer{}

// NewPoseBuffer creates a PoseBuffer with one slot by default.
//
// Parameters:
//   - options: variadic list of PoseBufferBuilderOption functions to configure the PoseBuffer
//
// Returns:
//   - PoseBuffer: the new pose buffer
func NewPoseBuffer(options ...PoseBufferBuilderOption) PoseBuffer {
	b := &poseBuffer{
		mu:        &sync.Mutex{},
		label:     "pose_buffer",
		instances: 1,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.instances < 1 {
		b.instances = 1
	}
	b.staging = make([]byte, b.instances*model.PoseByteSize)
	b.stagedWriteData = make([]BufferWrite, 0, 4)

	identity := model.IdentityPose()
	for i := 0; i < b.instances; i++ {
		copy(b.staging[i*model.PoseByteSize:], identity.Bytes())
	}
	return b
}

func (b *poseBuffer) Label() string {
	return b.label
}

func (b *poseBuffer) Binding() int {
	return b.binding
}

func (b *poseBuffer) Instances() int {
	return b.instances
}

func (b *poseBuffer) Size() uint64 {
	return uint64(b.instances) * model.PoseByteSize
}

func (b *poseBuffer) Stage(instance int, p *model.Pose) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if instance < 0 || instance >= b.instances {
		return fmt.Errorf("posebuffer %s: instance %d out of range [0, %d)", b.label, instance, b.instances)
	}
	copy(b.staging[instance*model.PoseByteSize:(instance+1)*model.PoseByteSize], p.Bytes())

	if !b.dirty {
		b.dirty = true
		b.dirtyStart = instance
		b.dirtyEnd = instance + 1
		return nil
	}
	b.dirtyStart = min(b.dirtyStart, instance)
	b.dirtyEnd = max(b.dirtyEnd, instance+1)
	return nil
}

func (b *poseBuffer) Flush() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return 0
	}

	count := b.dirtyEnd - b.dirtyStart
	b.stagedWriteData = append(b.stagedWriteData, BufferWrite{
		Binding: b.binding,
		Offset:  uint64(b.dirtyStart) * model.PoseByteSize,
		Data:    b.staging[b.dirtyStart*model.PoseByteSize : b.dirtyEnd*model.PoseByteSize],
	})

	b.dirty = false
	b.dirtyStart = 0
	b.dirtyEnd = 0
	return count
}

func (b *poseBuffer) StagedWriteData() []BufferWrite {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.stagedWriteData
	b.stagedWriteData = make([]BufferWrite, 0, 4)
	return data
}
