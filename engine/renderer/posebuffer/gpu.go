package posebuffer

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// NewGPUBuffer creates the storage buffer backing a PoseBuffer.
//
// Parameters:
//   - device: the wgpu device
//   - b: the pose buffer whose label and size are used
//
// Returns:
//   - *wgpu.Buffer: a storage | copy-dst buffer of b.Size() bytes
//   - error: error if buffer creation fails
func NewGPUBuffer(device *wgpu.Device, b PoseBuffer) (*wgpu.Buffer, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.Label() + " Bone Buffer",
		Size:             b.Size(),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("posebuffer %s: create buffer: %w", b.Label(), err)
	}
	return buf, nil
}

// Submit uploads staged writes into buffer through the queue. Every write is attempted;
// the failures are joined into the returned error.
//
// Parameters:
//   - queue: the wgpu queue
//   - buffer: the buffer created by NewGPUBuffer
//   - writes: the writes returned by PoseBuffer.StagedWriteData
//
// Returns:
//   - error: the joined write errors, nil if every write succeeded
func Submit(queue *wgpu.Queue, buffer *wgpu.Buffer, writes []BufferWrite) error {
	if buffer == nil {
		return nil
	}
	return submitWrites(writes, func(offset uint64, data []byte) error {
		return queue.WriteBuffer(buffer, offset, data)
	})
}

func submitWrites(writes []BufferWrite, write func(offset uint64, data []byte) error) error {
	var errs []error
	for _, w := range writes {
		if err := write(w.Offset, w.Data); err != nil {
			errs = append(errs, fmt.Errorf("posebuffer: write %d bytes at %d: %w", len(w.Data), w.Offset, err))
		}
	}
	return errors.Join(errs...)
}
