package reddit

import (
	"fmt"
	"time"
)

// Default Reddit endpoints.
const (
	DefaultBaseURL      = "https://www.reddit.com"
	DefaultOAuthBaseURL = "https://oauth.reddit.com"
	DefaultTokenURL     = "https://www.reddit.com/api/v1/access_token"
)

// Config holds the settings of the Reddit fetch client
type Config struct {
	BaseURL      string
	OAuthBaseURL string
	TokenURL     string
	UserAgent    string
	Sort         string
	Limit        int
	MinScore     int
	MinComments  int
	MinInterval  time.Duration
	Timeout      time.Duration

	// App-only OAuth credentials. Both must be set to enable OAuth.
	ClientID     string
	ClientSecret string
}

// validSorts are the listing orders accepted by the subreddit endpoint.
var validSorts = map[string]bool{
	"hot":    true,
	"new":    true,
	"top":    true,
	"rising": true,
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.OAuthBaseURL == "" {
		cfg.OAuthBaseURL = DefaultOAuthBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Sort == "" {
		cfg.Sort = "hot"
	}
	if cfg.Limit == 0 {
		cfg.Limit = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

func (c *Config) validate() error {
	if !validSorts[c.Sort] {
		return fmt.Errorf("invalid sort %q: must be one of hot, new, top, rising", c.Sort)
	}
	if c.Limit < 1 || c.Limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100, got %d", c.Limit)
	}
	if c.MinScore < 0 || c.MinComments < 0 {
		return fmt.Errorf("min_score and min_comments must be >= 0")
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("client_id and client_secret must be set together")
	}
	return nil
}

// OAuthEnabled reports whether app-only OAuth credentials are configured.
func (c *Config) OAuthEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
