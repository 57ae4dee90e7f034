package extract

import "fmt"

// NotFoundError reports that the input document does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// ExtractionError reports a corrupt or unreadable document. It is fatal for
// the pipeline run: no partial extraction is attempted.
type ExtractionError struct {
	Path  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
