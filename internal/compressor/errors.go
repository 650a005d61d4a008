package compressor

import "fmt"

// ArtifactMissingError means the transcoder reported success but left no
// usable output behind.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("output file was not created: %s", e.Path)
}
