// Package configs provides embedded configuration files for reddit-feeds.
package configs

import (
	_ "embed"
)

// ExampleConfig is the annotated example configuration written by init-config.
//
//go:embed config.example.yaml
var ExampleConfig []byte
