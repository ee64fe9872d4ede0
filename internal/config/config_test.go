package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"informes/internal/docx"
	"informes/internal/mapsnap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, o := range envOverrides {
		t.Setenv(o.name, "")
	}
	t.Setenv("INFORMES_BROWSER_LIFETIME", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultOutput, cfg.Inputs.Output)
	assert.Equal(t, "_title", cfg.Columns.Title)
	assert.Equal(t, "NOM_VIA", cfg.StreetColumns.Street)
	assert.Equal(t, mapsnap.PerCall, cfg.Map.Lifetime)
	assert.Equal(t, 19, cfg.Map.Zoom)
	assert.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateInputs(), ErrNoRecords)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "informes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
inputs:
  records: incidencies.xlsx
  photos: fotos
columns:
  title: titol
map:
  lifetime: pooled
watch:
  schedule: "0 7 * * 1-5"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "incidencies.xlsx", cfg.Inputs.Records)
	assert.Equal(t, "fotos", cfg.Inputs.Photos)
	assert.Equal(t, DefaultOutput, cfg.Inputs.Output)
	assert.Equal(t, "titol", cfg.Columns.Title)
	assert.Equal(t, "lloc", cfg.Columns.Location)
	assert.Equal(t, "2_amidament", cfg.Columns.Defects[1].Measurement)
	assert.Equal(t, mapsnap.Pooled, cfg.Map.Lifetime)
	assert.Equal(t, 800, cfg.Map.ViewportWidth)
	require.NoError(t, cfg.ValidateInputs())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "informes.yaml")
	cfg := DefaultConfig()
	cfg.Inputs.Records = "a.csv"
	cfg.Report.SkipMap = true
	cfg.Logging.Categories = map[string]bool{"snapshot": false}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFORMES_RECORDS", "env.xlsx")
	t.Setenv("INFORMES_OUTPUT", "out/env.docx")
	t.Setenv("INFORMES_DEBUGGER_URL", "ws://127.0.0.1:9222")
	t.Setenv("INFORMES_BROWSER_LIFETIME", "pooled")
	t.Setenv("INFORMES_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env.xlsx", cfg.Inputs.Records)
	assert.Equal(t, "out/env.docx", cfg.GetOutput())
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Map.DebuggerURL)
	assert.Equal(t, mapsnap.Pooled, cfg.Map.Lifetime)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides_BeatFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "informes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs:\n  records: file.xlsx\n"), 0o644))
	t.Setenv("INFORMES_RECORDS", "env.xlsx")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.xlsx", cfg.Inputs.Records)
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("INFORMES_PHOTOS=/srv/fotos\n"), 0o644))

	// godotenv never overrides a variable that exists, even empty.
	require.NoError(t, os.Unsetenv("INFORMES_PHOTOS"))
	t.Cleanup(func() { os.Unsetenv("INFORMES_PHOTOS") })

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath))

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/fotos", cfg.Inputs.Photos)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty column", func(c *Config) { c.Columns.Date = "" }, "empty required column"},
		{"street columns", func(c *Config) { c.StreetColumns.District = "" }, "street_columns"},
		{"lifetime", func(c *Config) { c.Map.Lifetime = "forever" }, "invalid browser lifetime"},
		{"zoom", func(c *Config) { c.Map.Zoom = 22 }, "invalid map zoom"},
		{"picture size", func(c *Config) { c.Report.MapWidthInches = -1 }, "picture sizes"},
		{"debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "invalid watch debounce"},
		{"schedule", func(c *Config) { c.Watch.Schedule = "every day" }, "invalid watch schedule"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestGetters(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.GetDebounce())
	cfg.Watch.Debounce = "500ms"
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())
	cfg.Watch.Debounce = "nonsense"
	assert.Equal(t, 2*time.Second, cfg.GetDebounce())

	cfg.Inputs.Output = ""
	assert.Equal(t, DefaultOutput, cfg.GetOutput())
}

func TestReportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs.Photos = "fotos"
	cfg.Inputs.Districts = "barris"

	opts := cfg.ReportOptions()
	assert.Equal(t, "fotos", opts.PhotosDir)
	assert.Equal(t, "barris", opts.DistrictImagesDir)
	assert.Equal(t, docx.Inches(2), opts.PhotoHeight)
	assert.Equal(t, docx.Inches(4), opts.MapWidth)
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	var c LoggingConfig
	assert.True(t, c.IsCategoryEnabled("reader"))

	c.Categories = map[string]bool{"snapshot": false, "reader": true}
	assert.False(t, c.IsCategoryEnabled("snapshot"))
	assert.True(t, c.IsCategoryEnabled("reader"))
	assert.True(t, c.IsCategoryEnabled("watch"))
}
