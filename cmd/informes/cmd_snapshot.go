package main

import (
	"bytes"
	"fmt"

	"informes/internal/logging"
	"informes/internal/mapsnap"
	"informes/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	snapLat      float64
	snapLon      float64
	snapOutput   string
	snapHTMLOnly bool
)

// snapshotCmd captures a single map
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the map snapshot for one coordinate",
	Long: `Renders the same map used in the report for a single coordinate and saves
it as PNG. With --html only the map page is written, no browser is started.

Example:
  informes snapshot --lat 41.3851 --lon 2.1734 -o map.png`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	at := mapsnap.Coordinate{Lat: snapLat, Lon: snapLon}
	if at.Lat < -90 || at.Lat > 90 || at.Lon < -180 || at.Lon > 180 {
		return fmt.Errorf("coordinate out of range: %s", at)
	}

	var data []byte
	if snapHTMLOnly {
		var buf bytes.Buffer
		if err := mapsnap.WriteMapHTML(&buf, cfg.Map.OptionsFor(at)); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		ctx, cancel := signalContext(timeout)
		defer cancel()

		s := mapsnap.NewBrowserSnapshotter(cfg.Map, logging.Get(logging.CategorySnapshot))
		defer s.Close()
		png, err := s.Snapshot(ctx, at)
		if err != nil {
			return err
		}
		data = png
	}

	if err := pipeline.WriteFileAtomic(snapOutput, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", snapOutput, err)
	}
	logging.Get(logging.CategorySnapshot).Info("snapshot written",
		zap.String("output", snapOutput), zap.Stringer("at", at), zap.Int("bytes", len(data)))
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", snapOutput, len(data))
	return nil
}
