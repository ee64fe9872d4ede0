package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"informes/internal/config"
	"informes/internal/logging"
	"informes/internal/mapsnap"
	"informes/internal/pipeline"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// generateCmd writes the report once
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the report document",
	Long: `Reads the incident spreadsheet, resolves districts from the street register,
captures a map snapshot per incident and writes a single .docx document.

Example:
  informes generate -r incidencies.xlsx -s carrers.xlsx -p fotos -d barris -o informe.docx`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateInputs(); err != nil {
		return err
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	maps, closeMaps := newMapRenderer(cfg)
	defer closeMaps()

	res, err := generate(ctx, cfg, maps)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(res.Markdown()))
	return nil
}

// generate runs the pipeline once with the given map renderer.
func generate(ctx context.Context, c *config.Config, maps mapsnap.Renderer) (*pipeline.Result, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "generate")
	defer timer.Stop()

	return pipeline.Run(ctx, pipeline.OptionsFromConfig(c), pipeline.Deps{
		Maps:         maps,
		Logger:       logging.Get(logging.CategoryPipeline),
		ReaderLogger: logging.Get(logging.CategoryReader),
		RenderLogger: logging.Get(logging.CategoryRender),
	})
}

// newMapRenderer returns the configured snapshotter, or nil when maps are
// skipped. The returned func releases the browser.
func newMapRenderer(c *config.Config) (mapsnap.Renderer, func()) {
	if c.Report.SkipMap {
		return nil, func() {}
	}
	s := mapsnap.NewBrowserSnapshotter(c.Map, logging.Get(logging.CategorySnapshot))
	return s, func() {
		if err := s.Close(); err != nil {
			logging.Get(logging.CategorySnapshot).Warn("closing browser", zap.Error(err))
		}
	}
}

// signalContext is cancelled on SIGINT/SIGTERM and, when limit > 0, after
// limit.
func signalContext(limit time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if limit > 0 {
		ctx, cancel = context.WithTimeout(ctx, limit)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
