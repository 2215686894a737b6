package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/divverma2003/convo-app/internal/directory"
)

const (
	DefaultPageSize = 10
	// DefaultSyntheticPrefix marks recorder/bot accounts that never show up
	// in user lists.
	DefaultSyntheticPrefix = "recording-"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	PageSize        int
	ViewerID        string
	ExcludeIDs      []string
	SyntheticPrefix string
}

// Page is one fetched page of the directory.
type Page struct {
	Index int
	// Entries are the visible entries, synthetic accounts removed.
	Entries []directory.Entry
	// RawCount is the number of entries the directory returned.
	RawCount int
	PageSize int
}

// HasMore reports whether the directory may hold further pages. It is
// computed from the raw count so filtered synthetic accounts never end
// pagination early.
func (p Page) HasMore() bool {
	return p.PageSize > 0 && p.RawCount >= p.PageSize
}

// Engine fetches pages of users other than the viewer. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	client directory.Client
	cfg    EngineConfig
}

// NewEngine creates an engine over client.
func NewEngine(client directory.Client, cfg EngineConfig) (*Engine, error) {
	if client == nil {
		return nil, errors.New("search: directory client is required")
	}
	if cfg.ViewerID == "" {
		return nil, ErrNoViewer
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize > directory.MaxLimit {
		return nil, ErrPageSize
	}
	cfg.ExcludeIDs = append([]string(nil), cfg.ExcludeIDs...)
	return &Engine{client: client, cfg: cfg}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() EngineConfig {
	cfg := e.cfg
	cfg.ExcludeIDs = append([]string(nil), e.cfg.ExcludeIDs...)
	return cfg
}

// Filter builds the directory filter for query.
func (e *Engine) Filter(query string) directory.FilterExpr {
	var exclude directory.FilterExpr
	if len(e.cfg.ExcludeIDs) == 0 {
		exclude = directory.NotEquals{Field: directory.FieldID, Value: e.cfg.ViewerID}
	} else {
		ids := []string{e.cfg.ViewerID}
		seen := map[string]bool{e.cfg.ViewerID: true}
		for _, id := range e.cfg.ExcludeIDs {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		exclude = directory.NotIn{Field: directory.FieldID, Values: ids}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return exclude
	}
	return directory.And{
		exclude,
		directory.Or{
			directory.Autocomplete{Field: directory.FieldName, Prefix: query},
			directory.Autocomplete{Field: directory.FieldID, Prefix: query},
		},
	}
}

// FetchPage requests page pageIndex of users matching query, sorted by
// name. Directory failures are reported as ErrDirectoryUnavailable.
func (e *Engine) FetchPage(ctx context.Context, pageIndex int, query string) (Page, error) {
	if pageIndex < 0 {
		return Page{}, ErrInvalidPage
	}

	res, err := e.client.QueryUsers(ctx, e.Filter(query), directory.ByName(), directory.QueryOptions{
		Limit:  e.cfg.PageSize,
		Offset: pageIndex * e.cfg.PageSize,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		if errors.Is(err, ErrDirectoryUnavailable) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	page := Page{Index: pageIndex, PageSize: e.cfg.PageSize}
	if res == nil {
		return page, nil
	}
	page.RawCount = len(res.Users)
	page.Entries = make([]directory.Entry, 0, len(res.Users))
	for _, u := range res.Users {
		if e.isSynthetic(u.ID) {
			continue
		}
		page.Entries = append(page.Entries, u)
	}
	return page, nil
}

func (e *Engine) isSynthetic(id string) bool {
	return e.cfg.SyntheticPrefix != "" && strings.HasPrefix(id, e.cfg.SyntheticPrefix)
}
