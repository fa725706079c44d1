package dataset

import "fmt"

// UnsupportedFormatError rejects a format tag outside the closed set. It is
// fatal to the single dataset carrying the tag, never to the whole run.
type UnsupportedFormatError struct {
	Tag string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Tag)
}

// ReadError wraps any I/O or parse failure during dataset loading so callers
// see one error shape regardless of which library failed underneath.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read dataset %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
