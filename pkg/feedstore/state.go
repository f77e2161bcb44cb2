package feedstore

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

// Feed is the cached result for one category.
// A nil Items slice means the category has never been fetched.
type Feed struct {
	Items       []feedtypes.Post `json:"items,omitempty"`
	Error       string           `json:"error,omitempty"`
	LastUpdated time.Time        `json:"last_updated,omitzero"`
}

// Fetched reports whether a fetch for this feed has ever completed.
func (f Feed) Fetched() bool {
	return f.Items != nil
}

// Failed reports whether the last completed fetch for this feed failed.
func (f Feed) Failed() bool {
	return f.Error != ""
}

// needsFetch is rule 1 of the decision procedure: never populated, or the
// last attempt errored and left items empty.
func (f Feed) needsFetch() bool {
	return !f.Fetched() || f.Failed()
}

// State is an immutable snapshot of the store. Transitions produce a new
// State and never modify the Feeds map of an existing one. The store hands
// out copies of Feeds and Categories; the Items slices inside feeds are
// shared and must be treated as read-only.
type State struct {
	Version          uint64
	Feeds            map[string]Feed
	Categories       []string
	Selected         string
	RefreshRequested bool
	IsFetching       bool
	// InFlight is the category the outstanding fetch was issued for.
	InFlight string
}

// NewState returns the initial state with every category mapped to an empty
// feed. The default category is added if it is missing from categories.
func NewState(categories []string, defaultCategory string) State {
	if defaultCategory == "" && len(categories) > 0 {
		defaultCategory = categories[0]
	}
	s := State{
		Feeds:    make(map[string]Feed, len(categories)+1),
		Selected: defaultCategory,
	}
	for _, name := range categories {
		s = s.withCategory(name)
	}
	return s.withCategory(defaultCategory)
}

// Feed returns the feed of the selected category.
func (s State) Feed() Feed {
	return s.Feeds[s.Selected]
}

// Posts returns the items of the selected category's feed.
func (s State) Posts() []feedtypes.Post {
	return s.Feed().Items
}

// AvailableCategories returns the known category names in the order they
// were first seen.
func (s State) AvailableCategories() []string {
	return slices.Clone(s.Categories)
}

// clone copies the Feeds map and the Categories slice.
func (s State) clone() State {
	s.Feeds = maps.Clone(s.Feeds)
	s.Categories = slices.Clone(s.Categories)
	return s
}

func (s State) withCategory(name string) State {
	if _, ok := s.Feeds[name]; ok || name == "" {
		return s
	}
	s.Feeds = maps.Clone(s.Feeds)
	if s.Feeds == nil {
		s.Feeds = make(map[string]Feed)
	}
	s.Feeds[name] = Feed{}
	s.Categories = append(slices.Clone(s.Categories), name)
	return s
}

func (s State) withFeed(name string, feed Feed) State {
	s = s.withCategory(name)
	s.Feeds = maps.Clone(s.Feeds)
	s.Feeds[name] = feed
	return s
}

// Event is an input to the reducer.
type Event interface {
	event()
}

// CategorySelected makes Name the active category.
type CategorySelected struct {
	Name string
}

// RefreshRequested marks that fresh data is wanted for the active category.
type RefreshRequested struct{}

// FetchRequested asks the store to run the fetch decision procedure.
type FetchRequested struct{}

// FetchSucceeded carries a completed fetch's payload.
type FetchSucceeded struct {
	Category string
	Listing  *feedtypes.Listing
	At       time.Time
}

// FetchFailed carries a failed fetch's error.
type FetchFailed struct {
	Category string
	Err      error
}

func (CategorySelected) event() {}
func (RefreshRequested) event() {}
func (FetchRequested) event()   {}
func (FetchSucceeded) event()   {}
func (FetchFailed) event()      {}

// Command is a side effect the reducer asks the store to perform.
type Command struct {
	// Category to fetch.
	Category string
}

var errFetchFailed = errors.New("fetch failed")

// Reducer holds the transition rules of the feed store.
type Reducer struct {
	// CorrelateResults applies a completion to the category the fetch was
	// issued for. When false, the completion goes to whichever category is
	// selected when it arrives.
	CorrelateResults bool
}

// Reduce returns the state that follows s after ev, plus an optional fetch
// command. It does not modify s.
func (r Reducer) Reduce(s State, ev Event) (State, *Command) {
	switch ev := ev.(type) {
	case CategorySelected:
		if ev.Name == "" {
			return s, nil
		}
		next := s.withCategory(ev.Name)
		next.Selected = ev.Name
		if next.Selected != s.Selected || len(next.Categories) != len(s.Categories) {
			next = bump(s, next)
		}
		return r.maybeFetch(s, next)

	case RefreshRequested:
		if s.RefreshRequested {
			return s, nil
		}
		next := s
		next.RefreshRequested = true
		return bump(s, next), nil

	case FetchRequested:
		return r.maybeFetch(s, s)

	case FetchSucceeded:
		if !s.IsFetching {
			return s, nil
		}
		next := s.complete(r.Target(s, ev.Category), Feed{
			Items:       ev.Listing.Posts(),
			LastUpdated: ev.At,
		})
		return r.afterCompletion(s, next)

	case FetchFailed:
		if !s.IsFetching {
			return s, nil
		}
		err := ev.Err
		if err == nil || err.Error() == "" {
			err = errFetchFailed
		}
		next := s.complete(r.Target(s, ev.Category), Feed{
			Items: []feedtypes.Post{},
			Error: err.Error(),
		})
		return r.afterCompletion(s, next)
	}

	return s, nil
}

// Target returns the category a completion for requested is applied to.
func (r Reducer) Target(s State, requested string) string {
	if r.CorrelateResults && requested != "" {
		return requested
	}
	return s.Selected
}

func (s State) complete(target string, feed Feed) State {
	next := s.withFeed(target, feed)
	next.IsFetching = false
	next.InFlight = ""
	next.RefreshRequested = false
	return next
}

// afterCompletion re-runs the decision procedure only when the selected
// feed has never been attempted, so errored feeds do not retry in a loop.
func (r Reducer) afterCompletion(prev, next State) (State, *Command) {
	next = bump(prev, next)
	if next.Feed().Fetched() {
		return next, nil
	}
	return r.maybeFetch(prev, next)
}

func (r Reducer) maybeFetch(prev, next State) (State, *Command) {
	if next.IsFetching {
		return next, nil
	}
	if !next.Feed().needsFetch() && !next.RefreshRequested {
		return next, nil
	}

	next.RefreshRequested = false
	next.IsFetching = true
	next.InFlight = next.Selected
	return bump(prev, next), &Command{Category: next.Selected}
}

// bump advances the version of next once relative to prev.
func bump(prev, next State) State {
	next.Version = prev.Version + 1
	return next
}
