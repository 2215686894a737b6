package repository

import (
	"context"
	"errors"

	"github.com/divverma2003/convo-app/internal/channel/domain"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrConflict        = errors.New("channel was modified concurrently")
)

// MembersFunc computes a new member list from the current one.
type MembersFunc func(current []string) []string

// ChannelRepository defines the interface for channel persistence.
type ChannelRepository interface {
	Create(ctx context.Context, ch *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	// UpdateMembers applies fn to the stored member list atomically.
	UpdateMembers(ctx context.Context, id string, fn MembersFunc) (*domain.Channel, error)
	ListDiscoverable(ctx context.Context) ([]domain.Channel, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Channel, error)
}
