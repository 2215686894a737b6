package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/audit"
	"github.com/divverma2003/convo-app/internal/user/cache"
	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/internal/user/presence"
	"github.com/divverma2003/convo-app/internal/user/repository"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

var ErrUserNotFound = errors.New("user not found")

// Config holds the service timings.
type Config struct {
	CacheTTL    time.Duration
	PresenceTTL time.Duration
}

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	repo     repository.UserRepository
	index    repository.DirectoryIndex
	cache    cache.DirectoryCache
	presence presence.Store
	cfg      Config
	sf       singleflight.Group
}

// NewUserService creates a new user service. index may be nil, in which
// case directory queries are answered by the database.
func NewUserService(
	repo repository.UserRepository,
	index repository.DirectoryIndex,
	dirCache cache.DirectoryCache,
	presenceStore presence.Store,
	cfg Config,
) UserService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.PresenceTTL <= 0 {
		cfg.PresenceTTL = time.Minute
	}
	return &userServiceImpl{
		repo:     repo,
		index:    index,
		cache:    dirCache,
		presence: presenceStore,
		cfg:      cfg,
	}
}

func (s *userServiceImpl) source() repository.DirectorySource {
	if s.index != nil {
		return s.index
	}
	return s.repo
}

// QueryUsers returns one directory page with live online flags.
func (s *userServiceImpl) QueryUsers(ctx context.Context, q domain.DirectoryQuery) ([]directory.Entry, error) {
	l := log.Ctx(ctx)
	q.Normalize()

	fingerprint, err := queryFingerprint(q)
	if err != nil {
		return nil, err
	}

	var entries []directory.Entry
	version, err := s.cache.Version(ctx)
	if err != nil {
		l.Warn().Err(err).Msg("cache version error, bypassing cache")
		entries, err = s.load(ctx, q)
		if err != nil {
			return nil, err
		}
	} else {
		cacheKey := s.cache.BuildKey(version, fingerprint)
		result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
			cached, err := s.cache.Get(ctx, cacheKey)
			if err == nil {
				return cached.Users, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				l.Warn().Err(err).Msg("cache get error")
			}

			users, err := s.load(ctx, q)
			if err != nil {
				return nil, err
			}

			s.asyncCacheSet(cacheKey, &cache.DirectoryCacheResult{Users: users})
			return users, nil
		})
		if err != nil {
			return nil, err
		}
		// Shared with other singleflight callers; copy before flagging.
		entries = append([]directory.Entry(nil), result.([]directory.Entry)...)
	}

	s.applyPresence(ctx, entries)
	return entries, nil
}

func (s *userServiceImpl) load(ctx context.Context, q domain.DirectoryQuery) ([]directory.Entry, error) {
	users, err := s.source().Query(ctx, q)
	if err != nil {
		return nil, err
	}
	entries := make([]directory.Entry, 0, len(users))
	for i := range users {
		entries = append(entries, users[i].ToEntry())
	}
	return entries, nil
}

func (s *userServiceImpl) applyPresence(ctx context.Context, entries []directory.Entry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	online, err := s.presence.Online(ctx, ids)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("presence lookup failed, reporting everyone offline")
		return
	}
	for i := range entries {
		entries[i].Online = online[entries[i].ID]
	}
}

// Heartbeat marks userID online for the presence TTL.
func (s *userServiceImpl) Heartbeat(ctx context.Context, userID string) error {
	if err := s.presence.MarkOnline(ctx, userID, s.cfg.PresenceTTL); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to record heartbeat")
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Exists reports whether userID is a known directory user.
func (s *userServiceImpl) Exists(ctx context.Context, userID string) (bool, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SyncUser upserts an identity-provider user into the database and index.
func (s *userServiceImpl) SyncUser(ctx context.Context, p pubsub.UserPayload) (*domain.User, error) {
	l := log.Ctx(ctx)

	user, err := domain.FromIdentity(p)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, user); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to upsert user")
		return nil, err
	}

	if s.index != nil {
		if err := s.index.Index(ctx, user); err != nil {
			l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to index user")
			return nil, err
		}
	}

	s.invalidate(ctx)
	audit.Log(ctx, audit.ActionSyncUser, user.ID, "user synced from identity provider")
	return user, nil
}

// DeleteUser removes a user everywhere. Deleting an unknown user succeeds.
func (s *userServiceImpl) DeleteUser(ctx context.Context, userID string) error {
	l := log.Ctx(ctx)

	if err := s.repo.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to delete user")
		return err
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, userID); err != nil {
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to remove user from index")
			return err
		}
	}

	if err := s.presence.MarkOffline(ctx, userID); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to clear presence")
	}

	s.invalidate(ctx)
	audit.Log(ctx, audit.ActionDeleteUser, userID, "user deleted")
	return nil
}

func (s *userServiceImpl) invalidate(ctx context.Context) {
	if _, err := s.cache.BumpVersion(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to bump directory cache version")
	}
}

func (s *userServiceImpl) asyncCacheSet(key string, result *cache.DirectoryCacheResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("key", key).Msg("cache set error")
		}
	}()
}

func queryFingerprint(q domain.DirectoryQuery) (string, error) {
	filter, err := directory.MarshalFilter(q.Filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	sort, err := json.Marshal(q.Sort)
	if err != nil {
		return "", fmt.Errorf("failed to encode sort: %w", err)
	}
	return fmt.Sprintf("%s|%s|%d|%d", filter, sort, q.Limit, q.Offset), nil
}
