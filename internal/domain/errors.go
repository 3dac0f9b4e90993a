package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness constraint was hit.
	ErrConflict = errors.New("conflict")
)

// TermResolutionError reports a term that could not be found or created.
type TermResolutionError struct {
	Ref TermRef
	Err error
}

func (e *TermResolutionError) Error() string {
	return fmt.Sprintf("resolve term %s/%q: %v", e.Ref.Taxonomy, e.Ref.Name, e.Err)
}

func (e *TermResolutionError) Unwrap() error { return e.Err }

// MediaResolutionError reports an image that could not be fetched or attached.
type MediaResolutionError struct {
	URL string
	Err error
}

func (e *MediaResolutionError) Error() string {
	return fmt.Sprintf("resolve media %s: %v", e.URL, e.Err)
}

func (e *MediaResolutionError) Unwrap() error { return e.Err }
