package posebuffer

// PoseBufferBuilderOption is a functional option for configuring a PoseBuffer during construction.
type PoseBufferBuilderOption func(*poseBuffer)

// WithLabel is an option builder that sets the label used for the GPU buffer and errors.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - PoseBufferBuilderOption: a function that applies the label option to a pose buffer
func WithLabel(label string) PoseBufferBuilderOption {
	return func(b *poseBuffer) {
		b.label = label
	}
}

// WithBinding is an option builder that sets the bind group binding index of the bone matrix buffer.
//
// Parameters:
//   - binding: the binding index declared by the skinning shader
//
// Returns:
//   - PoseBufferBuilderOption: a function that applies the binding option to a pose buffer
func WithBinding(binding int) PoseBufferBuilderOption {
	return func(b *poseBuffer) {
		b.binding = binding
	}
}

// WithInstances is an option builder that sets the number of pose slots.
//
// Parameters:
//   - instances: the slot count
//
// Returns:
//   - PoseBufferBuilderOption: a function that applies the instance option to a pose buffer
func WithInstances(instances int) PoseBufferBuilderOption {
	return func(b *poseBuffer) {
		b.instances = instances
	}
}
