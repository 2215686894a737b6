package service

import (
	"context"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

// UserService serves the user directory and keeps it in sync with the
// identity provider.
type UserService interface {
	QueryUsers(ctx context.Context, q domain.DirectoryQuery) ([]directory.Entry, error)
	Heartbeat(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	SyncUser(ctx context.Context, p pubsub.UserPayload) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}
