package repository

import (
	"context"
	"errors"

	"github.com/divverma2003/convo-app/internal/user/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrInvalidQuery = errors.New("invalid directory query")
)

// DirectorySource answers paged directory queries.
type DirectorySource interface {
	Query(ctx context.Context, q domain.DirectoryQuery) ([]domain.User, error)
}

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	DirectorySource
	// Upsert inserts the user or updates email, name and image in place.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// DirectoryIndex is a search index kept in sync with the user table.
type DirectoryIndex interface {
	DirectorySource
	Index(ctx context.Context, user *domain.User) error
	Remove(ctx context.Context, id string) error
}
