package search

import (
	"context"
	"sync"
	"time"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/pkg/log"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadingMore
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loading_more"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config configures a Session.
type Config struct {
	PageSize        int
	ViewerID        string
	ExcludeIDs      []string
	SyntheticPrefix string
	Debounce        time.Duration
	Mode            Mode
}

// Snapshot is a consistent copy of session state.
type Snapshot struct {
	State    State
	RawQuery string
	// Query is the committed query the entries belong to.
	Query    string
	Entries  []directory.Entry
	HasMore  bool
	NextPage int
	// Page is the page in flight while loading, otherwise the last page.
	Page     int
	Mode     Mode
	Selected []string
	// Err is the failure that moved the session to StateFailed.
	Err error
}

// Session is one debounced, paginated search over the directory together
// with the selection built from its results.
//
// Search, LoadMore and Retry block until the directory answers; callers
// pick the goroutine. Only the response of the newest query is applied.
type Session struct {
	mu        sync.Mutex
	engine    *Engine
	debouncer *Debouncer
	results   *ResultSet
	selection *Selection

	state      State
	rawQuery   string
	query      string
	nextPage   int
	page       int
	generation uint64
	// cursor changes whenever Input resets nextPage; a load-more that
	// started under an older cursor must not move it again.
	cursor    uint64
	busy      bool
	err       error
	closed    bool
	listeners []func(Snapshot)

	// Parent of debounce-triggered searches; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an idle session. client is shared read-only and may
// serve several sessions.
func NewSession(client directory.Client, cfg Config) (*Session, error) {
	engine, err := NewEngine(client, EngineConfig{
		PageSize:        cfg.PageSize,
		ViewerID:        cfg.ViewerID,
		ExcludeIDs:      cfg.ExcludeIDs,
		SyntheticPrefix: cfg.SyntheticPrefix,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:    engine,
		results:   NewResultSet(),
		selection: NewSelection(cfg.Mode),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.debouncer = NewDebouncer(cfg.Debounce, s.commit)
	return s, nil
}

// Input records a keystroke-level query edit. The page cursor goes back to
// page 0 and the query is committed once typing settles.
func (s *Session) Input(raw string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.rawQuery = raw
	s.nextPage = 0
	s.cursor++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.debouncer.Push(raw)
	s.notify(snap)
}

func (s *Session) commit(query string) {
	l := log.Ctx(s.ctx)
	if err := s.Search(s.ctx, query); err != nil && !IsNotice(err) {
		l.Debug().Err(err).Str(log.FieldQuery, query).Msg("debounced search finished with error")
	}
}

// Search commits query and loads its first page, replacing the current
// entries. Entries of the previous query stay visible until it resolves.
// A search superseded by a newer one returns ErrStaleResponse.
func (s *Session) Search(ctx context.Context, query string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.generation++
	gen := s.generation
	s.query = query
	s.state = StateLoading
	s.page = 0
	s.nextPage = 0
	s.busy = true
	s.err = nil
	engine := s.engine
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	page, err := engine.FetchPage(ctx, 0, query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if gen != s.generation {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	s.busy = false
	if err != nil {
		s.results.Clear()
		s.selection.Sync(s.results, true)
		s.state = StateFailed
		s.err = err
	} else {
		s.results.Replace(page.Entries, page.HasMore())
		s.selection.Sync(s.results, true)
		s.state = StateReady
		s.nextPage = 1
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return err
}

// LoadMore appends the next page of the committed query. It returns
// ErrFetchInFlight while another fetch is outstanding and ErrEndOfList
// when the directory has nothing more; neither issues a request. After a
// failed first page it returns that failure until Retry or a new query.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrFetchInFlight
	}
	if s.nextPage == 0 {
		// Cursor was reset by Input; the new query has not loaded yet.
		pending := s.debouncer.Pending()
		failed := s.err
		s.mu.Unlock()
		if pending {
			return ErrFetchInFlight
		}
		if failed != nil {
			return failed
		}
		return ErrEndOfList
	}
	if !s.results.HasMore() {
		s.mu.Unlock()
		return ErrEndOfList
	}

	gen := s.generation
	cursor := s.cursor
	pageIndex := s.nextPage
	query := s.query
	s.state = StateLoadingMore
	s.page = pageIndex
	s.busy = true
	s.err = nil
	engine := s.engine
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	page, err := engine.FetchPage(ctx, pageIndex, query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if gen != s.generation {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	s.busy = false
	if err != nil {
		s.state = StateFailed
		s.err = err
	} else {
		s.results.Append(page.Entries, page.HasMore())
		s.selection.Sync(s.results, false)
		s.state = StateReady
		if cursor == s.cursor {
			s.nextPage = pageIndex + 1
		}
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return err
}

// Retry reloads page 0 of the committed query.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	query := s.query
	s.mu.Unlock()
	return s.Search(ctx, query)
}

// SetViewer changes the viewer whose own entry is excluded and refetches
// when a search has already run.
func (s *Session) SetViewer(ctx context.Context, viewerID string) error {
	s.mu.Lock()
	cfg := s.engine.Config()
	if cfg.ViewerID == viewerID {
		s.mu.Unlock()
		return nil
	}
	cfg.ViewerID = viewerID
	engine, err := NewEngine(s.engine.client, cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.engine = engine
	refetch := s.state != StateIdle
	s.mu.Unlock()

	if refetch {
		return s.Retry(ctx)
	}
	return nil
}

// SetExcluded replaces the ids hidden from results besides the viewer.
// It applies from the next fetch.
func (s *Session) SetExcluded(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.engine.Config()
	cfg.ExcludeIDs = ids
	if engine, err := NewEngine(s.engine.client, cfg); err == nil {
		s.engine = engine
	}
}

// SetMode switches the selection mode.
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	s.selection.SetMode(mode, s.results)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Toggle flips the selection of a listed entry and reports whether it is
// selected afterwards.
func (s *Session) Toggle(id string) bool {
	s.mu.Lock()
	if !s.results.Contains(id) && !s.selection.Contains(id) {
		s.mu.Unlock()
		return false
	}
	selected := s.selection.Toggle(id)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return selected
}

// ToggleAll selects every listed entry, or clears the selection when all
// are selected already.
func (s *Session) ToggleAll() {
	s.mu.Lock()
	s.selection.ToggleAll(s.results)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// OnChange registers fn to run after every state change. fn runs on the
// goroutine that made the change and must not block.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Close tears the session down. Pending debounced queries are dropped and
// fetches still in flight resolve without touching state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = nil
	s.mu.Unlock()

	s.debouncer.Stop()
	s.cancel()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		RawQuery: s.rawQuery,
		Query:    s.query,
		Entries:  s.results.Entries(),
		HasMore:  s.results.HasMore(),
		NextPage: s.nextPage,
		Page:     s.page,
		Mode:     s.selection.Mode(),
		Selected: s.selection.IDs(),
		Err:      s.err,
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	listeners := make([]func(Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
