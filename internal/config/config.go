// Package config loads the reddit-feeds configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/reddit-feeds/internal/reddit"
	"github.com/lepinkainen/reddit-feeds/pkg/filesystem"
)

// DefaultPath is the config file name looked up when none is given.
const DefaultPath = "config.yaml"

// Config holds the central application configuration
type Config struct {
	Categories       []string `mapstructure:"categories"`        // Subreddits shown as tabs
	DefaultCategory  string   `mapstructure:"default_category"`  // Initially selected subreddit
	CorrelateResults bool     `mapstructure:"correlate_results"` // Store results under the requested subreddit

	Reddit struct {
		BaseURL      string        `mapstructure:"base_url"`
		OAuthBaseURL string        `mapstructure:"oauth_base_url"`
		TokenURL     string        `mapstructure:"token_url"`
		UserAgent    string        `mapstructure:"user_agent"`
		Limit        int           `mapstructure:"limit"`        // Posts per listing
		Sort         string        `mapstructure:"sort"`         // hot, new, top or rising
		MinScore     int           `mapstructure:"min_score"`    // Minimum score filter
		MinComments  int           `mapstructure:"min_comments"` // Minimum comment filter
		ClientID     string        `mapstructure:"client_id"`
		ClientSecret string        `mapstructure:"client_secret"`
		MinInterval  time.Duration `mapstructure:"min_interval"` // Delay between requests
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"reddit"`

	Archive struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"` // Empty means the XDG data directory
	} `mapstructure:"archive"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("categories", []string{"frontend", "reactjs"})
	v.SetDefault("default_category", "reactjs")
	v.SetDefault("correlate_results", false)

	v.SetDefault("reddit.base_url", reddit.DefaultBaseURL)
	v.SetDefault("reddit.oauth_base_url", reddit.DefaultOAuthBaseURL)
	v.SetDefault("reddit.token_url", reddit.DefaultTokenURL)
	v.SetDefault("reddit.user_agent", "")
	v.SetDefault("reddit.limit", 25)
	v.SetDefault("reddit.sort", "hot")
	v.SetDefault("reddit.min_score", 0)
	v.SetDefault("reddit.min_comments", 0)
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.min_interval", "1s")
	v.SetDefault("reddit.timeout", "30s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.path", "")
}

// LoadConfig loads the configuration from a file. A missing file is not an
// error; defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	path = filesystem.ResolveConfigPath(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REDDIT_FEEDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit missing file is reported as a plain fs error
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &config, nil
}

// Validate checks the values that cannot be corrected with defaults
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return errors.New("categories must not be empty")
	}
	switch c.Reddit.Sort {
	case "hot", "new", "top", "rising":
	default:
		return fmt.Errorf("reddit.sort must be one of hot, new, top, rising, got %q", c.Reddit.Sort)
	}
	if c.Reddit.Limit < 1 || c.Reddit.Limit > 100 {
		return fmt.Errorf("reddit.limit must be between 1 and 100, got %d", c.Reddit.Limit)
	}
	return nil
}

// RedditConfig returns the fetch client settings
func (c *Config) RedditConfig() reddit.Config {
	r := c.Reddit
	return reddit.Config{
		BaseURL:      r.BaseURL,
		OAuthBaseURL: r.OAuthBaseURL,
		TokenURL:     r.TokenURL,
		UserAgent:    r.UserAgent,
		Sort:         r.Sort,
		Limit:        r.Limit,
		MinScore:     r.MinScore,
		MinComments:  r.MinComments,
		MinInterval:  r.MinInterval,
		Timeout:      r.Timeout,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
	}
}
