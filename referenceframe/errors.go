package referenceframe

import "github.com/pkg/errors"

// NewSelfParentError returns an error indicating a frame names itself as its parent.
func NewSelfParentError(frame string) error {
	return errors.Errorf("frame %q is its own parent", frame)
}

// NewCycleError returns an error indicating that following parents from the given frames loops.
func NewCycleError(frames []string) error {
	return errors.Errorf("frames %q form a parent cycle", frames)
}

// NewEmptyFrameNameError returns an error for a frame or parent name that is empty after
// normalization.
func NewEmptyFrameNameError(child string) error {
	if child == "" {
		return errors.New("frame name is empty")
	}
	return errors.Errorf("frame %q has an empty parent name", child)
}
