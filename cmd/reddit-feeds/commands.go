package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/reddit-feeds/configs"
	"github.com/lepinkainen/reddit-feeds/internal/config"
	"github.com/lepinkainen/reddit-feeds/internal/reddit"
	"github.com/lepinkainen/reddit-feeds/pkg/archive"
	"github.com/lepinkainen/reddit-feeds/pkg/browse"
	"github.com/lepinkainen/reddit-feeds/pkg/feedstore"
	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
	"github.com/lepinkainen/reddit-feeds/pkg/filesystem"
)

// openArchive opens the configured archive, or the XDG default location.
func openArchive(cfg *config.Config) (*archive.Archive, error) {
	path := cfg.Archive.Path
	if path == "" {
		var err error
		if path, err = archive.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return archive.Open(path)
}

// newStore wires the Reddit client, the feed store and the optional archive.
// The returned cleanup closes the store before the archive.
func newStore(ctx context.Context, cfg *config.Config, fetcher feedstore.Fetcher) (*feedstore.Store, func(), error) {
	if fetcher == nil {
		client, err := reddit.NewClient(cfg.RedditConfig())
		if err != nil {
			return nil, nil, err
		}
		fetcher = client
	}

	var opts []feedstore.Option
	if cfg.CorrelateResults {
		opts = append(opts, feedstore.WithRequestCorrelation())
	}

	store := feedstore.New(fetcher, cfg.Categories, cfg.DefaultCategory, opts...)

	var arc *archive.Archive
	if cfg.Archive.Enabled {
		var err error
		if arc, err = openArchive(cfg); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		store.OnCompletion(arc.Hook(ctx))
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
		if arc != nil {
			if err := arc.Close(); err != nil {
				slog.Warn("Failed to close archive", "error", err)
			}
		}
	}
	return store, cleanup, nil
}

func browseFeeds(ctx context.Context, cfg *config.Config, category string) error {
	store, cleanup, err := newStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	return browse.Run(store, category)
}

type fetchOptions struct {
	Category string
	Format   string
	Refresh  bool
	Timeout  time.Duration
	Fetcher  feedstore.Fetcher // nil uses the Reddit client
}

// fetchOnce selects a category, waits for the fetch and prints the feed.
// It reports false when the feed ended up errored.
func fetchOnce(ctx context.Context, w io.Writer, cfg *config.Config, opts fetchOptions) (bool, error) {
	store, cleanup, err := newStore(ctx, cfg, opts.Fetcher)
	if err != nil {
		return false, err
	}
	defer cleanup()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	store.SelectCategory(opts.Category)
	st, err := store.WaitIdle(ctx)
	if err != nil {
		return false, fmt.Errorf("failed waiting for r/%s: %w", opts.Category, err)
	}

	if opts.Refresh && !st.Feed().Failed() {
		store.RequestRefresh()
		store.FetchPosts()
		if st, err = store.WaitIdle(ctx); err != nil {
			return false, fmt.Errorf("failed waiting for refresh of r/%s: %w", opts.Category, err)
		}
	}

	feed := st.Feed()
	if err := writeFeed(w, opts.Format, st.Selected, feed); err != nil {
		return false, err
	}
	return !feed.Failed(), nil
}

// postOutput is the serialized form of a post for json and yaml output.
type postOutput struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url,omitempty" yaml:"url,omitempty"`
	Comments  string    `json:"comments_url,omitempty" yaml:"comments_url,omitempty"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	Score     int       `json:"score" yaml:"score"`
	NumCom    int       `json:"num_comments" yaml:"num_comments"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

type feedOutput struct {
	Category    string       `json:"category" yaml:"category"`
	LastUpdated time.Time    `json:"last_updated,omitzero" yaml:"last_updated,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	Posts       []postOutput `json:"posts" yaml:"posts"`
}

func toOutput(category string, feed feedstore.Feed) feedOutput {
	out := feedOutput{
		Category:    category,
		LastUpdated: feed.LastUpdated,
		Error:       feed.Error,
		Posts:       make([]postOutput, 0, len(feed.Items)),
	}
	for _, p := range feed.Items {
		var created time.Time
		if c := p.CreatedAt(); !c.IsZero() {
			created = c.UTC()
		}
		out.Posts = append(out.Posts, postOutput{
			ID:        p.ID,
			Title:     p.Title,
			URL:       p.URL,
			Comments:  p.CommentsLink(),
			Author:    p.Author,
			Score:     p.Score,
			NumCom:    p.NumComments,
			CreatedAt: created,
		})
	}
	return out
}

func writeFeed(w io.Writer, format, category string, feed feedstore.Feed) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toOutput(category, feed))

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toOutput(category, feed)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()

	case "", "text":
		return writeText(w, category, feed)

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, category string, feed feedstore.Feed) error {
	if feed.Failed() {
		_, err := fmt.Fprintf(w, "r/%s: error: %s\n", category, feed.Error)
		return err
	}

	if _, err := fmt.Fprintf(w, "r/%s: %d posts\n\n", category, len(feed.Items)); err != nil {
		return err
	}
	return writePosts(w, feed.Items, "")
}

func writePosts(w io.Writer, posts []feedtypes.Post, indent string) error {
	for i, post := range posts {
		if _, err := fmt.Fprintln(w, indent+browse.FormatCompactListItem(i, post)); err != nil {
			return err
		}
	}
	return nil
}

func showHistory(ctx context.Context, w io.Writer, cfg *config.Config, category string, limit int, withPosts bool) error {
	arc, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = arc.Close() }()

	entries, err := arc.History(ctx, category, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No archived fetches for r/%s\n", category)
		return err
	}

	for _, e := range entries {
		line := fmt.Sprintf("#%d  %s  %3d posts  %6s", e.ID, e.FetchedAt.Format(time.RFC3339), e.PostCount, e.Duration)
		if e.Misattributed() {
			line += fmt.Sprintf("  (requested r/%s)", e.Requested)
		}
		if e.Error != "" {
			line += "  error: " + e.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if withPosts && e.PostCount > 0 {
			posts, err := arc.Posts(ctx, e.ID)
			if err != nil {
				return err
			}
			if err := writePosts(w, posts, "    "); err != nil {
				return err
			}
		}
	}
	return nil
}

func listCategories(w io.Writer, cfg *config.Config) {
	st := feedstore.NewState(cfg.Categories, cfg.DefaultCategory)
	for _, name := range st.AvailableCategories() {
		marker := " "
		if name == st.Selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s r/%s\n", marker, name)
	}
}

// initConfig writes the embedded example configuration to path.
func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := filesystem.EnsureDirectoryExists(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, configs.ExampleConfig, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	_, err := fmt.Fprintf(w, "Wrote example config to %s\n", path)
	return err
}
