package service

import (
	"context"

	"github.com/divverma2003/convo-app/internal/channel/domain"
)

// ChannelService manages channels and their membership.
type ChannelService interface {
	Create(ctx context.Context, creatorID string, req *domain.CreateChannelRequest) (*domain.Channel, error)
	CreateOrJoin(ctx context.Context, viewerID, channelID string, memberIDs []string) (*domain.Channel, error)
	OpenDirect(ctx context.Context, viewerID, targetID string) (*domain.Channel, error)
	Invite(ctx context.Context, viewerID, channelID string, userIDs []string) (*domain.Channel, error)
	Get(ctx context.Context, viewerID, channelID string) (*domain.Channel, error)
	// JoinPublicChannels adds userID to every discoverable channel.
	JoinPublicChannels(ctx context.Context, userID string) (int, error)
	// RemoveUser drops userID from every channel it belongs to.
	RemoveUser(ctx context.Context, userID string) (int, error)
}

// UserLookup reports whether users exist in the directory.
type UserLookup interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
