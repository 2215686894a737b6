package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/divverma2003/convo-app/internal/channel/audit"
	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/channel/repository"
	"github.com/divverma2003/convo-app/pkg/log"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrChannelExists    = errors.New("a channel with this name already exists")
	ErrPermissionDenied = errors.New("You don't have permission to invite users to this channel. " +
		"Only moderators can invite members.")
	ErrNotMember    = errors.New("you are not a member of this channel")
	ErrUnknownUser  = errors.New("unknown user")
	ErrSelfDirect   = errors.New("cannot open a direct conversation with yourself")
	ErrInvalidInput = errors.New("invalid channel request")
)

type channelServiceImpl struct {
	repo  repository.ChannelRepository
	users UserLookup
}

// NewChannelService creates a new channel service.
func NewChannelService(repo repository.ChannelRepository, users UserLookup) ChannelService {
	return &channelServiceImpl{repo: repo, users: users}
}

// Create creates a named channel owned by creatorID. Public channels are
// discoverable and auto-joined by new users; private ones are invite-only.
func (s *channelServiceImpl) Create(ctx context.Context, creatorID string, req *domain.CreateChannelRequest) (*domain.Channel, error) {
	name, err := domain.ValidateName(req.Name)
	if err != nil {
		return nil, err
	}
	id, err := domain.ChannelID(name)
	if err != nil {
		return nil, err
	}

	members := domain.MergeMembers(creatorID, req.MemberIDs...)
	if err := s.checkUsers(ctx, members[1:]); err != nil {
		return nil, err
	}

	ch := &domain.Channel{
		ID:          id,
		Type:        domain.TypeMessaging,
		Name:        name,
		Description: req.Description,
		CreatedByID: creatorID,
		Members:     members,
	}
	switch req.Visibility {
	case domain.VisibilityPublic, "":
		ch.Discoverable = true
		ch.Visibility = domain.VisibilityPublic
	case domain.VisibilityPrivate:
		ch.Private = true
		ch.Visibility = domain.VisibilityPrivate
	default:
		return nil, fmt.Errorf("%w: visibility must be public or private", ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, ch); err != nil {
		if errors.Is(err, repository.ErrChannelExists) {
			return nil, ErrChannelExists
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionCreateChannel, creatorID, ch.ID, ch.Members, "channel created")
	return ch, nil
}

// CreateOrJoin creates channelID with the viewer and memberIDs, or joins
// the existing channel when the viewer may see it. Joining adds memberIDs
// too only when the viewer created the channel; anyone else joins alone.
func (s *channelServiceImpl) CreateOrJoin(ctx context.Context, viewerID, channelID string, memberIDs []string) (*domain.Channel, error) {
	if channelID == "" {
		return nil, fmt.Errorf("%w: channel id is required", ErrInvalidInput)
	}
	members := domain.MergeMembers(viewerID, memberIDs...)
	if err := s.checkUsers(ctx, members[1:]); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, channelID)
	switch {
	case err == nil:
		return s.join(ctx, existing, viewerID, members)
	case !errors.Is(err, repository.ErrChannelNotFound):
		return nil, err
	}

	ch := &domain.Channel{
		ID:          channelID,
		Type:        domain.TypeMessaging,
		CreatedByID: viewerID,
		Members:     members,
		Private:     true,
		Visibility:  domain.VisibilityPrivate,
	}
	if err := s.repo.Create(ctx, ch); err != nil {
		if errors.Is(err, repository.ErrChannelExists) {
			// Lost a race with another creator; join instead.
			existing, err := s.repo.GetByID(ctx, channelID)
			if err != nil {
				return nil, err
			}
			return s.join(ctx, existing, viewerID, members)
		}
		return nil, err
	}
	return ch, nil
}

func (s *channelServiceImpl) join(ctx context.Context, ch *domain.Channel, viewerID string, members []string) (*domain.Channel, error) {
	if ch.Private && !ch.HasMember(viewerID) {
		return nil, ErrNotMember
	}
	if ch.CreatedByID != viewerID {
		members = []string{viewerID}
	}
	return s.addMembers(ctx, ch.ID, members)
}

// OpenDirect opens the one-to-one channel between viewerID and targetID.
func (s *channelServiceImpl) OpenDirect(ctx context.Context, viewerID, targetID string) (*domain.Channel, error) {
	if targetID == viewerID {
		return nil, ErrSelfDirect
	}
	ch, err := s.CreateOrJoin(ctx, viewerID, domain.DirectChannelID(viewerID, targetID), []string{targetID})
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionOpenDirect, viewerID, ch.ID, ch.Members, "direct channel opened")
	return ch, nil
}

// Invite adds userIDs to a channel. Only the channel creator may invite;
// users already in the channel are ignored.
func (s *channelServiceImpl) Invite(ctx context.Context, viewerID, channelID string, userIDs []string) (*domain.Channel, error) {
	ch, err := s.repo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	if ch.CreatedByID != viewerID {
		return nil, ErrPermissionDenied
	}

	var invitees []string
	for _, id := range domain.MergeMembers("", userIDs...) {
		if !ch.HasMember(id) {
			invitees = append(invitees, id)
		}
	}
	if len(invitees) == 0 {
		return ch, nil
	}
	if err := s.checkUsers(ctx, invitees); err != nil {
		return nil, err
	}

	updated, err := s.addMembers(ctx, channelID, invitees)
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionInvite, viewerID, channelID, invitees, "members invited")
	return updated, nil
}

// Get returns a channel. Private channels are visible to members only.
func (s *channelServiceImpl) Get(ctx context.Context, viewerID, channelID string) (*domain.Channel, error) {
	ch, err := s.repo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	if ch.Private && !ch.HasMember(viewerID) {
		return nil, ErrNotMember
	}
	return ch, nil
}

func (s *channelServiceImpl) JoinPublicChannels(ctx context.Context, userID string) (int, error) {
	l := log.Ctx(ctx)

	channels, err := s.repo.ListDiscoverable(ctx)
	if err != nil {
		return 0, err
	}

	joined := 0
	for _, ch := range channels {
		if ch.HasMember(userID) {
			continue
		}
		if _, err := s.addMembers(ctx, ch.ID, []string{userID}); err != nil {
			l.Error().Err(err).Str(log.FieldChannelID, ch.ID).Str(log.FieldUserID, userID).Msg("failed to auto-join public channel")
			return joined, err
		}
		joined++
		audit.Log(ctx, audit.ActionAutoJoin, userID, ch.ID, []string{userID}, "user added to public channel")
	}
	return joined, nil
}

func (s *channelServiceImpl) RemoveUser(ctx context.Context, userID string) (int, error) {
	channels, err := s.repo.ListByMember(ctx, userID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ch := range channels {
		if _, err := s.repo.UpdateMembers(ctx, ch.ID, func(current []string) []string {
			out := current[:0]
			for _, id := range current {
				if id != userID {
					out = append(out, id)
				}
			}
			return out
		}); err != nil {
			return removed, err
		}
		removed++
		audit.Log(ctx, audit.ActionRemoveMember, userID, ch.ID, []string{userID}, "user removed from channel")
	}
	return removed, nil
}

func (s *channelServiceImpl) addMembers(ctx context.Context, channelID string, ids []string) (*domain.Channel, error) {
	ch, err := s.repo.UpdateMembers(ctx, channelID, func(current []string) []string {
		return domain.MergeMembers("", append(current, ids...)...)
	})
	if errors.Is(err, repository.ErrChannelNotFound) {
		return nil, ErrChannelNotFound
	}
	return ch, err
}

func (s *channelServiceImpl) checkUsers(ctx context.Context, ids []string) error {
	if s.users == nil {
		return nil
	}
	for _, id := range ids {
		ok, err := s.users.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownUser, id)
		}
	}
	return nil
}
