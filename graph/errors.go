package graph

import (
	"errors"
	"fmt"
)

// ErrCrossGraph indicates a combinator was given selections owned by
// two different Graph sessions. Checked before any SQL is generated.
var ErrCrossGraph = errors.New("graph: selections belong to different graph sessions")

// ErrClosed indicates an operation on a Graph after Close.
var ErrClosed = errors.New("graph: session is closed")

// MissingColumnError reports a Result lookup by a column name that is
// not present in the headers.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("graph: column %q is not present in result", e.Column)
}

// MergeError reports a failed Result merge: an id in the receiver had
// no counterpart row, or more than one, in the other result.
type MergeError struct {
	ID    string
	Count int
}

func (e *MergeError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("graph: merge: id %s has no counterpart row", e.ID)
	}
	return fmt.Sprintf("graph: merge: id %s has %d counterpart rows, want exactly 1", e.ID, e.Count)
}

// IsMissingColumn reports whether err is a MissingColumnError.
// Uses errors.As to handle wrapped errors.
func IsMissingColumn(err error) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc)
}
