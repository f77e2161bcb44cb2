package configs

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExampleConfigParses(t *testing.T) {
	var cfg struct {
		Categories      []string `yaml:"categories"`
		DefaultCategory string   `yaml:"default_category"`
		Reddit          struct {
			Sort  string `yaml:"sort"`
			Limit int    `yaml:"limit"`
		} `yaml:"reddit"`
	}

	if err := yaml.Unmarshal(ExampleConfig, &cfg); err != nil {
		t.Fatalf("example config is not valid YAML: %v", err)
	}
	if len(cfg.Categories) == 0 {
		t.Error("example config has no categories")
	}
	if cfg.DefaultCategory == "" {
		t.Error("example config has no default category")
	}
	if cfg.Reddit.Sort != "hot" || cfg.Reddit.Limit != 25 {
		t.Errorf("example reddit settings = %+v, want hot/25", cfg.Reddit)
	}
}
