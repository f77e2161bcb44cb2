// Package main provides the CLI entry point for reddit-feeds.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/reddit-feeds/internal/config"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Browse struct {
		Category string `help:"Subreddit to open first (defaults to default_category)" short:"c"`
	} `cmd:"browse" default:"1" help:"Browse subreddits interactively."`

	Fetch struct {
		Category string        `arg:"" help:"Subreddit to fetch"`
		Format   string        `help:"Output format" enum:"text,json,yaml" default:"text" short:"f"`
		Refresh  bool          `help:"Fetch again after the initial load"`
		Timeout  time.Duration `help:"Maximum time to wait for the fetch" default:"60s"`
	} `cmd:"fetch" help:"Fetch a subreddit once and print its posts."`

	History struct {
		Category string `arg:"" help:"Subreddit to show"`
		Limit    int    `help:"Maximum number of fetches to show" default:"10" short:"n"`
		Posts    bool   `help:"Include the archived posts of each fetch"`
	} `cmd:"history" help:"Show archived fetches for a subreddit."`

	Categories struct{} `cmd:"categories" help:"List configured subreddits."`

	InitConfig struct {
		Path  string `help:"Where to write the config file" default:"config.yaml"`
		Force bool   `help:"Overwrite an existing file"`
	} `cmd:"init-config" help:"Write an example configuration file."`
}

func main() {
	// Parse CLI with Kong YAML configuration file loading
	ctx := kong.Parse(&CLI,
		kong.Configuration(kongyaml.Loader, "config.yaml", "~/.config/reddit-feeds/config.yaml"),
	)

	// Configure logging level based on debug flag
	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	if ctx.Command() == "init-config" {
		if err := initConfig(os.Stdout, CLI.InitConfig.Path, CLI.InitConfig.Force); err != nil {
			slog.Error("Failed to write config", "path", CLI.InitConfig.Path, "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load config", "path", CLI.Config, "error", err)
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch ctx.Command() {
	case "browse":
		category := CLI.Browse.Category
		if category == "" {
			category = cfg.DefaultCategory
		}
		if err := browseFeeds(sigCtx, cfg, category); err != nil {
			slog.Error("Browser failed", "error", err)
			os.Exit(1)
		}

	case "fetch <category>":
		ok, err := fetchOnce(sigCtx, os.Stdout, cfg, fetchOptions{
			Category: CLI.Fetch.Category,
			Format:   CLI.Fetch.Format,
			Refresh:  CLI.Fetch.Refresh,
			Timeout:  CLI.Fetch.Timeout,
		})
		if err != nil {
			slog.Error("Fetch failed", "category", CLI.Fetch.Category, "error", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}

	case "history <category>":
		if err := showHistory(sigCtx, os.Stdout, cfg, CLI.History.Category, CLI.History.Limit, CLI.History.Posts); err != nil {
			slog.Error("Failed to read history", "category", CLI.History.Category, "error", err)
			os.Exit(1)
		}

	case "categories":
		listCategories(os.Stdout, cfg)

	default:
		panic(ctx.Command())
	}
}
