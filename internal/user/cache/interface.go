package cache

import (
	"context"
	"errors"
	"time"

	"github.com/divverma2003/convo-app/internal/directory"
)

var ErrCacheMiss = errors.New("cache miss")

// DirectoryCacheResult is one cached directory page. Online flags are never
// cached.
type DirectoryCacheResult struct {
	Users []directory.Entry `json:"users"`
}

// DirectoryCache caches directory pages under a version that every user
// change bumps, so stale pages simply stop being addressed.
type DirectoryCache interface {
	Get(ctx context.Context, key string) (*DirectoryCacheResult, error)
	Set(ctx context.Context, key string, result *DirectoryCacheResult, ttl time.Duration) error
	Version(ctx context.Context) (int64, error)
	BumpVersion(ctx context.Context) (int64, error)
	BuildKey(version int64, fingerprint string) string
	Close() error
}
