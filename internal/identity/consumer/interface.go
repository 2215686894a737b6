package consumer

import (
	"context"

	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

// UserSyncer mirrors identity-provider users into the directory.
type UserSyncer interface {
	SyncUser(ctx context.Context, p pubsub.UserPayload) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Membership keeps channel member lists in step with user lifecycle.
type Membership interface {
	JoinPublicChannels(ctx context.Context, userID string) (int, error)
	RemoveUser(ctx context.Context, userID string) (int, error)
}
