package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/divverma2003/convo-app/internal/directory"
)

type call struct {
	Filter directory.FilterExpr
	Opts   directory.QueryOptions
}

// fakeDirectory serves users from memory. When gate is set each query
// blocks until a value is received on it.
type fakeDirectory struct {
	mu    sync.Mutex
	users []directory.Entry
	calls []call
	err   error
	gate  chan struct{}
	// started receives the options of every query as it begins.
	started chan directory.QueryOptions
}

func newFakeDirectory(users ...directory.Entry) *fakeDirectory {
	return &fakeDirectory{users: users}
}

func usersNamed(prefix string, n int) []directory.Entry {
	out := make([]directory.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, directory.Entry{
			ID:   fmt.Sprintf("%s%02d", strings.ToLower(prefix), i),
			Name: fmt.Sprintf("%s %02d", prefix, i),
		})
	}
	return out
}

func (f *fakeDirectory) QueryUsers(ctx context.Context, filter directory.FilterExpr, _ directory.SortSpec, opts directory.QueryOptions) (*directory.QueryResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Filter: filter, Opts: opts})
	gate, started, err := f.gate, f.started, f.err
	matched := make([]directory.Entry, 0, len(f.users))
	for _, u := range f.users {
		if directory.Match(filter, u) {
			matched = append(matched, u)
		}
	}
	f.mu.Unlock()

	if started != nil {
		started <- opts
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	if opts.Offset >= len(matched) {
		return &directory.QueryResult{Users: []directory.Entry{}}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return &directory.QueryResult{Users: matched[opts.Offset:end]}, nil
}

// block makes every later query wait on gate and report on started.
func (f *fakeDirectory) block(gate chan struct{}, started chan directory.QueryOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate, f.started = gate, started
}

func (f *fakeDirectory) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDirectory) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
