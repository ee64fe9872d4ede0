package main

import (
	"context"

	"informes/internal/config"
	"informes/internal/form"
	"informes/internal/mapsnap"

	"github.com/spf13/cobra"
)

// formCmd opens the interactive form
var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Open the interactive form (default)",
	Args:  cobra.NoArgs,
	RunE:  runForm,
}

func runForm(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(0)
	defer cancel()

	maps, closeMaps := newMapRenderer(cfg)
	defer closeMaps()

	initial := form.Values{
		Records:   cfg.Inputs.Records,
		Streets:   cfg.Inputs.Streets,
		Photos:    cfg.Inputs.Photos,
		Districts: cfg.Inputs.Districts,
		Output:    cfg.GetOutput(),
	}
	return form.Run(ctx, initial, formGenerator(cfg, maps))
}

// formGenerator runs the pipeline with the paths entered in the form on top
// of the loaded config.
func formGenerator(base *config.Config, maps mapsnap.Renderer) form.GenerateFunc {
	return func(ctx context.Context, v form.Values) (string, error) {
		c := *base
		c.Inputs.Records = v.Records
		c.Inputs.Streets = v.Streets
		c.Inputs.Photos = v.Photos
		c.Inputs.Districts = v.Districts
		c.Inputs.Output = v.Output
		if err := c.ValidateInputs(); err != nil {
			return "", err
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := generate(ctx, &c, maps)
		if err != nil {
			return "", err
		}
		return renderMarkdown(res.Markdown()), nil
	}
}
