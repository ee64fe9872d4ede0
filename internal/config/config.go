package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"informes/internal/docx"
	"informes/internal/mapsnap"
	"informes/internal/records"
	"informes/internal/report"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "informes.yaml"

// DefaultOutput is the document written when no output path is given.
const DefaultOutput = "informes_word.docx"

// Config holds all informes configuration.
type Config struct {
	Inputs        InputsConfig          `yaml:"inputs"`
	Columns       records.Columns       `yaml:"columns"`
	StreetColumns records.StreetColumns `yaml:"street_columns"`
	Map           mapsnap.Config        `yaml:"map"`
	Report        ReportConfig          `yaml:"report"`
	Watch         WatchConfig           `yaml:"watch"`
	Logging       LoggingConfig         `yaml:"logging"`
}

// InputsConfig locates the files a run reads and writes.
type InputsConfig struct {
	Records      string `yaml:"records"`
	Sheet        string `yaml:"sheet"`
	Streets      string `yaml:"streets"`
	StreetsSheet string `yaml:"streets_sheet"`
	Photos       string `yaml:"photos"`
	Districts    string `yaml:"districts"`
	Output       string `yaml:"output"`
}

// ReportConfig configures page furniture and picture sizes.
type ReportConfig struct {
	HeaderText string `yaml:"header_text"`
	FooterText string `yaml:"footer_text"`

	PhotoHeightInches   float64 `yaml:"photo_height_inches"`
	MapWidthInches      float64 `yaml:"map_width_inches"`
	DistrictWidthInches float64 `yaml:"district_width_inches"`

	// SkipMap leaves the location cell empty instead of starting a browser.
	SkipMap bool `yaml:"skip_map"`
}

// WatchConfig configures regeneration on change or on a schedule.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
	// Schedule is a standard five-field cron expression.
	Schedule string `yaml:"schedule"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			Output: DefaultOutput,
		},
		Columns:       records.DefaultColumns(),
		StreetColumns: records.DefaultStreetColumns(),
		Map:           mapsnap.DefaultConfig(),
		Report: ReportConfig{
			HeaderText:          report.DefaultHeaderText,
			FooterText:          report.DefaultFooterText,
			PhotoHeightInches:   2,
			MapWidthInches:      4,
			DistrictWidthInches: 4,
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are ignored and variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"INFORMES_RECORDS", func(c *Config) *string { return &c.Inputs.Records }},
	{"INFORMES_SHEET", func(c *Config) *string { return &c.Inputs.Sheet }},
	{"INFORMES_STREETS", func(c *Config) *string { return &c.Inputs.Streets }},
	{"INFORMES_PHOTOS", func(c *Config) *string { return &c.Inputs.Photos }},
	{"INFORMES_DISTRICTS", func(c *Config) *string { return &c.Inputs.Districts }},
	{"INFORMES_OUTPUT", func(c *Config) *string { return &c.Inputs.Output }},
	{"INFORMES_CHROME_BIN", func(c *Config) *string { return &c.Map.Bin }},
	{"INFORMES_DEBUGGER_URL", func(c *Config) *string { return &c.Map.DebuggerURL }},
	{"INFORMES_TILE_URL", func(c *Config) *string { return &c.Map.TileURL }},
	{"INFORMES_SCHEDULE", func(c *Config) *string { return &c.Watch.Schedule }},
	{"INFORMES_LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }},
	{"INFORMES_LOG_FILE", func(c *Config) *string { return &c.Logging.File }},
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field(c) = v
		}
	}
	if v := os.Getenv("INFORMES_BROWSER_LIFETIME"); v != "" {
		c.Map.Lifetime = mapsnap.Lifetime(v)
	}
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetOutput returns the output path, falling back to DefaultOutput.
func (c *Config) GetOutput() string {
	if c.Inputs.Output == "" {
		return DefaultOutput
	}
	return c.Inputs.Output
}

// ReportOptions converts the report section for the renderer.
func (c *Config) ReportOptions() report.Options {
	return report.Options{
		PhotosDir:         c.Inputs.Photos,
		DistrictImagesDir: c.Inputs.Districts,
		HeaderText:        c.Report.HeaderText,
		FooterText:        c.Report.FooterText,
		PhotoHeight:       docx.Inches(c.Report.PhotoHeightInches),
		MapWidth:          docx.Inches(c.Report.MapWidthInches),
		DistrictWidth:     docx.Inches(c.Report.DistrictWidthInches),
	}
}

// ErrNoRecords is returned by ValidateInputs when no records file is set.
var ErrNoRecords = errors.New("records file not configured (set inputs.records, --records or INFORMES_RECORDS)")

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Columns.Validate(); err != nil {
		return err
	}
	if c.StreetColumns.Street == "" || c.StreetColumns.District == "" {
		return fmt.Errorf("street_columns must name both street and district")
	}

	switch c.Map.GetLifetime() {
	case mapsnap.PerCall, mapsnap.Pooled:
	default:
		return fmt.Errorf("invalid browser lifetime: %s (valid: %s, %s)", c.Map.Lifetime, mapsnap.PerCall, mapsnap.Pooled)
	}
	if z := c.Map.Zoom; z < 0 || z > 19 {
		return fmt.Errorf("invalid map zoom: %d (valid: 1-19, 0 for the default)", z)
	}
	if c.Map.ViewportWidth < 0 || c.Map.ViewportHeight < 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.Map.ViewportWidth, c.Map.ViewportHeight)
	}

	if c.Report.PhotoHeightInches < 0 || c.Report.MapWidthInches < 0 || c.Report.DistrictWidthInches < 0 {
		return fmt.Errorf("picture sizes must not be negative")
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
		}
	}
	if c.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
			return fmt.Errorf("invalid watch schedule %q: %w", c.Watch.Schedule, err)
		}
	}

	return c.Logging.Validate()
}

// ValidateInputs checks what a generate run needs on top of Validate.
func (c *Config) ValidateInputs() error {
	if c.Inputs.Records == "" {
		return ErrNoRecords
	}
	return c.Validate()
}
