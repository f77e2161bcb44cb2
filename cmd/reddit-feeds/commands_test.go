package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/reddit-feeds/configs"
	"github.com/lepinkainen/reddit-feeds/internal/config"
	"github.com/lepinkainen/reddit-feeds/pkg/feedstore"
	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Categories = []string{"golang", "rust"}
	cfg.DefaultCategory = "golang"
	return cfg
}

func fakeFetcher(calls *[]string) feedstore.FetcherFunc {
	return func(_ context.Context, category string) (*feedtypes.Listing, error) {
		*calls = append(*calls, category)
		if category == "broken" {
			return nil, errors.New("HTTP 503: Service Unavailable")
		}
		listing := &feedtypes.Listing{Kind: "Listing"}
		listing.Data.Children = []feedtypes.Child{
			{Data: feedtypes.Post{ID: category + "-1", Title: "Hello " + category, Score: 10, NumComments: 2, CreatedUTC: 1760000000, Permalink: "/r/" + category + "/comments/1/"}},
			{Data: feedtypes.Post{ID: category + "-2", Title: "Bye " + category, Score: 5}},
		}
		return listing, nil
	}
}

func TestFetchOnceText(t *testing.T) {
	var calls []string
	var out bytes.Buffer

	ok, err := fetchOnce(context.Background(), &out, testConfig(t), fetchOptions{
		Category: "rust",
		Format:   "text",
		Timeout:  5 * time.Second,
		Fetcher:  fakeFetcher(&calls),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"rust"}, calls)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "r/rust: 2 posts\n\n"), text)
	assert.Contains(t, text, " 1. [  10↑   2💬] 2025-10-09T08:53:20Z  Hello rust\n")
	assert.Contains(t, text, " 2. [   5↑   0💬] unknown  Bye rust\n")
}

func TestFetchOnceRefreshFetchesTwice(t *testing.T) {
	var calls []string
	var out bytes.Buffer

	ok, err := fetchOnce(context.Background(), &out, testConfig(t), fetchOptions{
		Category: "golang",
		Refresh:  true,
		Fetcher:  fakeFetcher(&calls),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"golang", "golang"}, calls)
}

func TestFetchOnceJSON(t *testing.T) {
	var calls []string
	var out bytes.Buffer

	_, err := fetchOnce(context.Background(), &out, testConfig(t), fetchOptions{
		Category: "golang",
		Format:   "json",
		Fetcher:  fakeFetcher(&calls),
	})
	require.NoError(t, err)

	var got feedOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "golang", got.Category)
	assert.Empty(t, got.Error)
	assert.False(t, got.LastUpdated.IsZero())
	require.Len(t, got.Posts, 2)
	assert.Equal(t, "golang-1", got.Posts[0].ID)
	assert.Equal(t, "https://www.reddit.com/r/golang/comments/1/", got.Posts[0].Comments)
	assert.True(t, got.Posts[1].CreatedAt.IsZero())
}

func TestFetchOnceYAMLError(t *testing.T) {
	var calls []string
	var out bytes.Buffer

	ok, err := fetchOnce(context.Background(), &out, testConfig(t), fetchOptions{
		Category: "broken",
		Format:   "yaml",
		Refresh:  true,
		Fetcher:  fakeFetcher(&calls),
	})
	require.NoError(t, err)
	assert.False(t, ok, "errored feed reports failure")
	assert.Equal(t, []string{"broken"}, calls, "no refresh after a failed fetch")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "broken", got["category"])
	assert.Equal(t, "HTTP 503: Service Unavailable", got["error"])
	assert.Empty(t, got["posts"])
}

func TestFetchOnceTimeout(t *testing.T) {
	var out bytes.Buffer
	blocking := feedstore.FetcherFunc(func(ctx context.Context, _ string) (*feedtypes.Listing, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := fetchOnce(context.Background(), &out, testConfig(t), fetchOptions{
		Category: "golang",
		Timeout:  20 * time.Millisecond,
		Fetcher:  blocking,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, out.String())
}

func TestWriteFeedUnknownFormat(t *testing.T) {
	err := writeFeed(&bytes.Buffer{}, "xml", "golang", feedstore.Feed{})
	assert.Error(t, err)
}

func TestHistoryAfterArchivedFetch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive.db")

	var calls []string
	for _, category := range []string{"golang", "broken"} {
		_, err := fetchOnce(context.Background(), &bytes.Buffer{}, cfg, fetchOptions{
			Category: category,
			Fetcher:  fakeFetcher(&calls),
		})
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, showHistory(context.Background(), &out, cfg, "golang", 10, true))
	text := out.String()
	assert.Contains(t, text, "#1  ")
	assert.Contains(t, text, "  2 posts")
	assert.Contains(t, text, "    1. [  10↑   2💬]")

	out.Reset()
	require.NoError(t, showHistory(context.Background(), &out, cfg, "broken", 10, false))
	assert.Contains(t, out.String(), "error: HTTP 503: Service Unavailable")

	out.Reset()
	require.NoError(t, showHistory(context.Background(), &out, cfg, "rust", 10, false))
	assert.Equal(t, "No archived fetches for r/rust\n", out.String())
}

func TestListCategories(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultCategory = "zig"

	var out bytes.Buffer
	listCategories(&out, cfg)
	assert.Equal(t, "  r/golang\n  r/rust\n* r/zig\n", out.String())
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	var out bytes.Buffer

	require.NoError(t, initConfig(&out, path, false))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.ExampleConfig, data)

	err = initConfig(&out, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	require.NoError(t, initConfig(&out, path, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.ExampleConfig, data)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err, "example config loads")
	assert.Equal(t, []string{"frontend", "reactjs"}, cfg.Categories)
}
