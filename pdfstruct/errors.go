package pdfstruct

import (
	"errors"
	"fmt"
)

// ErrNotFound is the cause of a ResolveError for a reference that names no
// object in the document.
var ErrNotFound = errors.New("object not found")

// ResolveError is returned when a reference cannot be resolved to an object.
type ResolveError struct {
	Ref Reference
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving (#%d,%d): %v", e.Ref.Number, e.Ref.Generation, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// LoadError is returned when a file cannot be opened or parsed as a PDF.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SaveError is returned when a document cannot be written.  When it is
// returned, no file exists at the destination path that was not there before.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
