package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/dashboard"
	"github.com/thermabackend/internal/wellness"
)

// Export is the record set read by analyze.
type Export struct {
	Timezone          string                    `json:"timezone,omitempty"`
	TrackedActivities []string                  `json:"tracked_activities,omitempty"`
	Plant             *wellness.PlantState      `json:"plant,omitempty"`
	Moods             []wellness.MoodRecord     `json:"moods"`
	Journals          []wellness.JournalRecord  `json:"journals"`
	Activities        []wellness.ActivityRecord `json:"activities"`
}

type analyzeOptions struct {
	file       string
	now        string
	tz         string
	activities []string
	days       int
}

func newAnalyzeCmd(cfg *settings) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the dashboard summary for an export",
		Long: `Read an export of mood, journal and activity records and print the
dashboard summary as JSON.

The timezone is taken from --tz, then the export, then --config, then UTC.

Examples:
  therma analyze --file export.json
  cat export.json | therma analyze --file - --now 2026-03-10T18:00:00Z --days 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "export JSON file, or - for stdin")
	cmd.Flags().StringVar(&opts.now, "now", "", "evaluate as of this RFC3339 time (default: current time)")
	cmd.Flags().StringVar(&opts.tz, "tz", "", "IANA timezone for calendar days")
	cmd.Flags().StringSliceVar(&opts.activities, "activities", nil, "tracked activity types")
	cmd.Flags().IntVar(&opts.days, "days", 0, "limit trend and averages to the last N days (0: all)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, cfg *settings, opts *analyzeOptions) error {
	export, err := readExport(cmd.InOrStdin(), opts.file)
	if err != nil {
		return err
	}

	zone := firstNonEmpty(opts.tz, export.Timezone, cfg.Timezone)
	if zone != "" {
		if _, err := time.LoadLocation(zone); err != nil {
			return fmt.Errorf("unknown timezone %q", zone)
		}
	}

	now, err := evaluationTime(opts.now)
	if err != nil {
		return err
	}
	now = now.In(clock.Location(zone))

	tracked := opts.activities
	if len(tracked) == 0 {
		tracked = export.TrackedActivities
	}
	if len(tracked) == 0 {
		tracked = cfg.Activities
	}

	plant := wellness.NewPlant()
	if export.Plant != nil {
		plant = *export.Plant
	}

	in := dashboard.Input{
		Moods:      export.Moods,
		Journals:   export.Journals,
		Activities: export.Activities,
		Plant:      plant,
		Tracked:    tracked,
	}
	if opts.days < 0 {
		return fmt.Errorf("--days cannot be negative")
	}
	if opts.days > 0 {
		y, m, d := now.Date()
		in.WindowStart = time.Date(y, m, d-(opts.days-1), 0, 0, 0, 0, now.Location())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(dashboard.Build(now, in))
}

func readExport(stdin io.Reader, path string) (*Export, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open export: %w", err)
		}
		defer f.Close()
		r = f
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}

func evaluationTime(s string) (time.Time, error) {
	if s == "" {
		return clock.NewReal().Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
