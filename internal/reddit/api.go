// Package reddit implements the subreddit fetch client used by the feed store.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/lepinkainen/reddit-feeds/pkg/api"
	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

var (
	// ErrInvalidCategory is returned for names that cannot be a subreddit.
	ErrInvalidCategory = errors.New("invalid subreddit name")
	// ErrUnexpectedPayload is returned when the response is not a listing.
	ErrUnexpectedPayload = errors.New("unexpected payload")
)

var subredditName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}$`)

// Client fetches subreddit listings
type Client struct {
	api         *api.EnhancedClient
	baseURL     string
	jsonSuffix  bool
	sort        string
	limit       int
	minScore    int
	minComments int
}

// NewClient creates a Reddit client from cfg. If OAuth credentials are set,
// requests go to the OAuth API host with an app-only bearer token.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid reddit config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		// Reddit redirects unknown subreddits to search; treat that as an error.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	baseURL := cfg.BaseURL
	jsonSuffix := true
	if cfg.OAuthEnabled() {
		httpClient = oauthHTTPClient(context.Background(), cfg, httpClient)
		baseURL = cfg.OAuthBaseURL
		jsonSuffix = false
		slog.Debug("Using app-only OAuth for Reddit API", "base_url", baseURL)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = api.DefaultUserAgent
	}

	return &Client{
		api:         api.NewRedditClient(httpClient, userAgent, cfg.MinInterval),
		baseURL:     baseURL,
		jsonSuffix:  jsonSuffix,
		sort:        cfg.Sort,
		limit:       cfg.Limit,
		minScore:    cfg.MinScore,
		minComments: cfg.MinComments,
	}, nil
}

// FetchCategory fetches the listing of the subreddit named category.
func (c *Client) FetchCategory(ctx context.Context, category string) (*feedtypes.Listing, error) {
	if !subredditName.MatchString(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	endpoint := c.listingURL(category)

	var listing feedtypes.Listing
	if err := c.api.GetAndDecode(ctx, endpoint, &listing, nil); err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", category, err)
	}

	if err := ValidateListing(&listing); err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", category, err)
	}

	if c.minScore > 0 || c.minComments > 0 {
		listing.Data.Children = FilterChildren(listing.Data.Children, c.minScore, c.minComments)
	}

	slog.Debug("Fetched subreddit listing", "subreddit", category, "count", len(listing.Data.Children))
	return &listing, nil
}

func (c *Client) listingURL(category string) string {
	path := fmt.Sprintf("%s/r/%s/%s", c.baseURL, url.PathEscape(category), c.sort)
	if c.jsonSuffix {
		path += ".json"
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("raw_json", "1")
	return path + "?" + q.Encode()
}

// ValidateListing checks that a decoded response is a post listing
func ValidateListing(listing *feedtypes.Listing) error {
	if listing == nil {
		return fmt.Errorf("%w: nil listing", ErrUnexpectedPayload)
	}
	if listing.Kind != "" && listing.Kind != "Listing" {
		return fmt.Errorf("%w: kind %q", ErrUnexpectedPayload, listing.Kind)
	}
	return nil
}

// FilterChildren applies score and comment count filters to listing children
func FilterChildren(children []feedtypes.Child, minScore, minComments int) []feedtypes.Child {
	filtered := make([]feedtypes.Child, 0, len(children))
	for _, child := range children {
		if child.Data.Score >= minScore && child.Data.NumComments >= minComments {
			filtered = append(filtered, child)
		}
	}

	slog.Debug("Filtered posts", "original", len(children), "filtered", len(filtered), "minScore", minScore, "minComments", minComments)
	return filtered
}
