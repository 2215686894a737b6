package search

import (
	"errors"
	"fmt"

	"github.com/divverma2003/convo-app/internal/directory"
)

// Notice is a user-visible, non-fatal outcome of a request that was
// answered without contacting the directory.
type Notice string

func (n Notice) Error() string { return string(n) }

const (
	ErrEndOfList     Notice = "You've reached the end of the users list"
	ErrFetchInFlight Notice = "Still loading users, please wait"
)

var (
	// ErrDirectoryUnavailable is the failure every directory error maps to.
	ErrDirectoryUnavailable = directory.ErrUnavailable

	// ErrStaleResponse is returned to the caller whose fetch was superseded
	// by a newer query. Session state is left untouched.
	ErrStaleResponse = errors.New("search: response superseded by a newer query")

	ErrSessionClosed = errors.New("search: session closed")
	ErrInvalidPage   = errors.New("search: page index must not be negative")
	ErrNoViewer      = errors.New("search: viewer id is required")
	ErrPageSize      = fmt.Errorf("search: page size must not exceed %d", directory.MaxLimit)
)

// IsNotice reports whether err is a Notice.
func IsNotice(err error) bool {
	var n Notice
	return errors.As(err, &n)
}

// Message returns the text to show the user for err, or "" when err
// should not be surfaced.
func Message(err error) string {
	var n Notice
	switch {
	case err == nil:
		return ""
	case errors.As(err, &n):
		return string(n)
	case errors.Is(err, ErrStaleResponse), errors.Is(err, ErrSessionClosed):
		return ""
	case errors.Is(err, ErrDirectoryUnavailable):
		return "Error fetching users, please try again."
	default:
		return err.Error()
	}
}
