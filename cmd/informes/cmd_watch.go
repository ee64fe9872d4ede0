package main

import (
	"context"
	"fmt"

	"informes/internal/logging"
	"informes/internal/mapsnap"
	"informes/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchSchedule  string
	watchNoInitial bool
)

// watchCmd regenerates on change or schedule
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the report when inputs change or on a schedule",
	Long: `Watches the spreadsheet, the street register and the photo and district
directories, regenerating the document after changes settle. With --schedule
the document is also rebuilt on a cron schedule. Runs never overlap.

Example:
  informes watch -r incidencies.xlsx -p fotos --schedule "0 7 * * 1-5"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchSchedule != "" {
		cfg.Watch.Schedule = watchSchedule
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.ValidateInputs(); err != nil {
		return err
	}

	ctx, cancel := signalContext(0)
	defer cancel()

	// One browser serves every regeneration of the session.
	cfg.Map.Lifetime = mapsnap.Pooled
	maps, closeMaps := newMapRenderer(cfg)
	defer closeMaps()

	out := cmd.OutOrStdout()
	log := logging.Get(logging.CategoryWatch)
	run := func(ctx context.Context, reason string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := generate(ctx, cfg, maps)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d incidències -> %s\n", reason, res.Records, res.Output)
		return nil
	}

	w, err := watch.New(run, watch.Options{
		Files:      []string{cfg.Inputs.Records, cfg.Inputs.Streets},
		Dirs:       []string{cfg.Inputs.Photos, cfg.Inputs.Districts},
		Ignore:     []string{cfg.GetOutput()},
		Debounce:   cfg.GetDebounce(),
		Schedule:   cfg.Watch.Schedule,
		RunOnStart: !watchNoInitial,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	log.Info("watching inputs", zap.String("records", cfg.Inputs.Records), zap.String("schedule", cfg.Watch.Schedule))

	<-ctx.Done()
	w.Stop()
	stats := w.Stats()
	log.Info("watch finished", zap.Int("runs", stats.Runs), zap.Int("failures", stats.Failures))
	return nil
}
