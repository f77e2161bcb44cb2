// Package feedstore caches posts per category and decides when to fetch them.
//
// A Store owns a single State and changes it only through Reducer. The
// store allows at most one outstanding fetch at a time. Consumers read
// snapshots with Snapshot or Subscribe and drive the store with
// SelectCategory, RequestRefresh and FetchPosts.
//
// By default a fetch result is applied to the category that is selected when
// the response arrives, not the one that was selected when the request was
// issued. Switching category while a fetch is in flight therefore
// misattributes the response. WithRequestCorrelation changes this.
//
// A feed whose last fetch failed counts as needing a fetch, so the next
// SelectCategory or FetchPosts for it fetches again without a refresh
// request. Failures are never retried on their own.
package feedstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

// ErrClosed is returned by blocking calls on a closed store.
var ErrClosed = errors.New("feed store closed")

// Fetcher retrieves the listing for a category.
type Fetcher interface {
	FetchCategory(ctx context.Context, category string) (*feedtypes.Listing, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, category string) (*feedtypes.Listing, error)

// FetchCategory calls f(ctx, category).
func (f FetcherFunc) FetchCategory(ctx context.Context, category string) (*feedtypes.Listing, error) {
	return f(ctx, category)
}

// Completion describes a finished fetch.
type Completion struct {
	// Requested is the category the fetch was issued for.
	Requested string
	// Applied is the category whose feed received the result.
	Applied  string
	Feed     Feed
	Err      error
	Duration time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithExecutor overrides how fetches are started. The default runs each
// fetch in its own goroutine. exec must not call the function before it
// returns, since it is invoked with the store lock held.
func WithExecutor(exec func(func())) Option {
	return func(s *Store) {
		s.exec = exec
	}
}

// WithRequestCorrelation applies each fetch result to the category it was
// requested for instead of the category selected at completion time.
func WithRequestCorrelation() Option {
	return func(s *Store) {
		s.reducer.CorrelateResults = true
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the category feed store.
type Store struct {
	mu      sync.Mutex
	state   State
	reducer Reducer
	fetcher Fetcher
	closed  bool

	subs    map[int]chan State
	nextSub int
	hooks   []func(Completion)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now    func() time.Time
	exec   func(func())
	logger *slog.Logger
}

// New creates a store that knows categories and has defaultCategory selected.
// No fetch is issued until a consumer selects a category or calls FetchPosts.
func New(fetcher Fetcher, categories []string, defaultCategory string, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		state:   NewState(categories, defaultCategory),
		fetcher: fetcher,
		subs:    make(map[int]chan State),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
		exec:    func(f func()) { go f() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectCategory makes name the active category and fetches it if needed.
func (s *Store) SelectCategory(name string) {
	s.dispatch(CategorySelected{Name: name})
}

// RequestRefresh marks the active category for refresh. The next
// FetchPosts or SelectCategory call picks the flag up.
func (s *Store) RequestRefresh() {
	s.dispatch(RefreshRequested{})
}

// RefreshCategory is an alias for RequestRefresh.
func (s *Store) RefreshCategory() {
	s.RequestRefresh()
}

// FetchPosts fetches the active category if it was never populated, its last
// fetch failed, or a refresh was requested. It does nothing while another
// fetch is outstanding.
func (s *Store) FetchPosts() {
	s.dispatch(FetchRequested{})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel that receives the state after every change,
// starting with the current one. Slow readers only see the latest state.
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// OnCompletion registers fn to be called after every finished fetch.
// Hooks run on the fetching goroutine, outside the store lock.
func (s *Store) OnCompletion(fn func(Completion)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// WaitIdle blocks until no fetch is outstanding and returns that state.
func (s *Store) WaitIdle(ctx context.Context) (State, error) {
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return State{}, ErrClosed
			}
			if !st.IsFetching {
				return st, nil
			}
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Close cancels any outstanding fetch, waits for it to return and closes
// all subscriptions. Results arriving after Close are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return nil
}

// dispatch applies ev and returns the states before and after it.
func (s *Store) dispatch(ev Event) (State, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state, s.state, false
	}

	prev := s.state
	next, cmd := s.reducer.Reduce(prev, ev)
	s.state = next

	if cmd != nil {
		s.start(*cmd)
	}
	if next.Version != prev.Version {
		s.broadcast(next)
	}
	return prev, next, true
}

// start runs a fetch command on the executor. Called with s.mu held.
func (s *Store) start(cmd Command) {
	s.logger.Debug("Fetching category", "category", cmd.Category)
	s.wg.Add(1)
	s.exec(func() {
		defer s.wg.Done()
		s.fetch(cmd)
	})
}

func (s *Store) fetch(cmd Command) {
	start := s.now()
	listing, err := s.fetcher.FetchCategory(s.ctx, cmd.Category)
	finished := s.now()

	var ev Event
	if err != nil {
		ev = FetchFailed{Category: cmd.Category, Err: err}
	} else {
		ev = FetchSucceeded{Category: cmd.Category, Listing: listing, At: finished}
	}

	prev, next, ok := s.dispatch(ev)
	if !ok {
		s.logger.Debug("Discarding fetch result after close", "category", cmd.Category)
		return
	}

	applied := s.reducer.Target(prev, cmd.Category)
	completion := Completion{
		Requested: cmd.Category,
		Applied:   applied,
		Feed:      next.Feeds[applied],
		Err:       err,
		Duration:  finished.Sub(start),
	}

	if err != nil {
		s.logger.Warn("Fetch failed", "category", cmd.Category, "applied", applied, "error", err)
	} else {
		s.logger.Debug("Fetch completed", "category", cmd.Category, "applied", applied,
			"count", len(completion.Feed.Items), "duration", completion.Duration)
	}
	if applied != cmd.Category {
		s.logger.Debug("Fetch result applied to a different category", "requested", cmd.Category, "applied", applied)
	}

	s.mu.Lock()
	hooks := append([]func(Completion){}, s.hooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(completion)
	}
}

// broadcast sends st to every subscriber without blocking, replacing any
// value the subscriber has not read yet. Called with s.mu held.
func (s *Store) broadcast(st State) {
	for _, ch := range s.subs {
		cp := st.clone()
		select {
		case ch <- cp:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- cp
		}
	}
}
