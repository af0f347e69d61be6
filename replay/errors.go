package replay

import (
	"errors"
	"fmt"
)

// ArtifactError reports that one worker's artifact could not be read back:
// either the file is absent (the worker crashed before writing it) or its
// contents fail to deserialize. It is scoped to a single rank and routes to
// the degradation policy for that rank only.
type ArtifactError struct {
	Path    string
	Rank    int
	Missing bool
	Err     error
}

func (e *ArtifactError) Error() string {
	if e.Missing {
		return fmt.Sprintf("artifact %s for rank %d is missing: %v", e.Path, e.Rank, e.Err)
	}
	return fmt.Sprintf("artifact %s for rank %d is corrupt: %v", e.Path, e.Rank, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// IsArtifactError checks if the error is or wraps an ArtifactError.
func IsArtifactError(err error) bool {
	var ae *ArtifactError
	return err != nil && errors.As(err, &ae)
}
