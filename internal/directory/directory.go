// Package directory defines the user-directory contract shared by the API
// (which serves it) and search sessions (which page through it).
package directory

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the directory cannot be reached or
// rejects the request (transport failure, auth rejection, server error).
var ErrUnavailable = errors.New("directory unavailable")

// Entry is one user as the directory exposes it.
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Image  string `json:"image,omitempty"`
	Online bool   `json:"online"`
}

// DisplayName returns the name, falling back to the id.
func (e Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// MaxLimit is the largest page a directory serves; larger limits are
// capped by the server.
const MaxLimit = 100

// QueryOptions bounds one page of a query.
type QueryOptions struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// QueryResult is one page of users in sort order.
type QueryResult struct {
	Users []Entry `json:"users"`
}

// Client queries a remote user directory.
type Client interface {
	QueryUsers(ctx context.Context, filter FilterExpr, sort SortSpec, opts QueryOptions) (*QueryResult, error)
}
