// Package main implements the therma CLI, which runs the wellness engine
// over exported records for support and offline analysis.
package main

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

var version = "dev"

// settings are defaults read from the optional --config YAML file.
type settings struct {
	Timezone   string   `koanf:"timezone"`
	Activities []string `koanf:"activities"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cfg := &settings{}

	root := &cobra.Command{
		Use:   "therma",
		Short: "Derive wellness signals from exported records",
		Long: `therma runs the mood, streak, trend and garden calculations used by the
backend against local data.

Examples:
  # Dashboard summary for an export
  therma analyze --file export.json --tz Europe/Berlin

  # Score a mood label
  therma score anxious

  # Trend of a most-recent-first score series
  therma trend 9 2 9 9`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			loaded, err := loadSettings(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with default timezone and activities")

	root.AddCommand(newAnalyzeCmd(cfg))
	root.AddCommand(newScoreCmd())
	root.AddCommand(newTrendCmd())
	root.AddCommand(newGrowthCmd())
	return root
}

// loadSettings reads path, if given, as YAML.
func loadSettings(path string) (*settings, error) {
	s := &settings{}
	if path == "" {
		return s, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return s, nil
}
