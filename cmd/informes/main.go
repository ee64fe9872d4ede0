package main

import (
	"fmt"
	"os"
	"time"

	"informes/internal/config"
	"informes/internal/logging"
	"informes/internal/mapsnap"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFiles   []string
	timeout    time.Duration

	// Input flags shared by generate, watch and form
	recordsPath   string
	sheet         string
	streetsPath   string
	photosDir     string
	districtsDir  string
	outputPath    string
	noMap         bool
	pooledBrowser bool
	browserBin    string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "informes",
	Short: "Incident report generator",
	Long: `informes turns an inspection spreadsheet into a Word document with one
section per incident: data table, photographs, district plan and a map
snapshot of the incident location.

Run without arguments to open the interactive form.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		// The form owns the terminal; log to the file only.
		build := logging.Build
		if isInteractive(cmd) {
			build = logging.BuildFileOnly
		}
		logger, err = build(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.Initialize(logger, cfg.Logging)
		logging.Get(logging.CategoryBoot).Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("records", cfg.Inputs.Records),
			zap.String("output", cfg.GetOutput()),
			zap.String("browser_lifetime", string(cfg.Map.GetLifetime())))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runForm,
}

func isInteractive(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "form"
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(c *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Inputs.Records, recordsPath)
	set(&c.Inputs.Sheet, sheet)
	set(&c.Inputs.Streets, streetsPath)
	set(&c.Inputs.Photos, photosDir)
	set(&c.Inputs.Districts, districtsDir)
	set(&c.Inputs.Output, outputPath)
	set(&c.Map.Bin, browserBin)
	if noMap {
		c.Report.SkipMap = true
	}
	if pooledBrowser {
		c.Map.Lifetime = mapsnap.Pooled
	}
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&recordsPath, "records", "r", "", "Incident spreadsheet (.xlsx, .csv)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default: first sheet)")
	cmd.Flags().StringVarP(&streetsPath, "streets", "s", "", "Street register used to resolve districts")
	cmd.Flags().StringVarP(&photosDir, "photos", "p", "", "Directory holding <image id>.jpg photographs")
	cmd.Flags().StringVarP(&districtsDir, "districts", "d", "", "Directory of district plan images")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output document (default: "+config.DefaultOutput+")")
	cmd.Flags().BoolVar(&noMap, "no-map", false, "Skip map snapshots and leave the location cell empty")
	cmd.Flags().BoolVar(&pooledBrowser, "pooled", false, "Keep one browser for every snapshot instead of one per record")
	cmd.Flags().StringVar(&browserBin, "browser-bin", "", "Chromium executable (default: downloaded by rod)")
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default: .env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall run timeout")

	addInputFlags(rootCmd)
	addInputFlags(generateCmd)
	addInputFlags(watchCmd)
	addInputFlags(formCmd)

	snapshotCmd.Flags().Float64Var(&snapLat, "lat", 0, "Latitude (required)")
	snapshotCmd.Flags().Float64Var(&snapLon, "lon", 0, "Longitude (required)")
	snapshotCmd.Flags().StringVarP(&snapOutput, "output", "o", "map.png", "Output file")
	snapshotCmd.Flags().BoolVar(&snapHTMLOnly, "html", false, "Write the map page instead of a screenshot")
	snapshotCmd.Flags().StringVar(&browserBin, "browser-bin", "", "Chromium executable (default: downloaded by rod)")
	snapshotCmd.MarkFlagRequired("lat")
	snapshotCmd.MarkFlagRequired("lon")

	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron schedule for periodic regeneration (e.g. \"0 7 * * 1-5\")")
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "Do not generate when the watch starts")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(formCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
