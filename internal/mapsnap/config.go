package mapsnap

import "time"

// Lifetime controls how long a browser process lives.
type Lifetime string

const (
	// PerCall launches and tears down a browser for every snapshot.
	PerCall Lifetime = "per_call"
	// Pooled keeps one browser alive until the snapshotter is closed.
	Pooled Lifetime = "pooled"
)

// Config holds browser and map settings.
type Config struct {
	// Bin is the Chromium executable; rod downloads one when empty.
	Bin string `yaml:"bin"`
	// DebuggerURL attaches to a running browser instead of launching one.
	DebuggerURL    string   `yaml:"debugger_url"`
	Headless       bool     `yaml:"headless"`
	Lifetime       Lifetime `yaml:"lifetime"`
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	Zoom           int      `yaml:"zoom"`
	TimeoutMs      int      `yaml:"timeout_ms"`
	TileURL        string   `yaml:"tile_url"`
	Attribution    string   `yaml:"attribution"`
	LeafletJS      string   `yaml:"leaflet_js"`
	LeafletCSS     string   `yaml:"leaflet_css"`
	// ScratchDir holds the temporary map pages; os.TempDir when empty.
	ScratchDir string `yaml:"scratch_dir"`
}

// DefaultConfig matches the report layout: 800x600 at zoom 19.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		Lifetime:       PerCall,
		ViewportWidth:  800,
		ViewportHeight: 600,
		Zoom:           19,
		TimeoutMs:      60000,
		TileURL:        "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution:    "&copy; OpenStreetMap contributors",
		LeafletJS:      "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
		LeafletCSS:     "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
	}
}

// GetViewportWidth returns the viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 800
	}
	return c.ViewportWidth
}

// GetViewportHeight returns the viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 600
	}
	return c.ViewportHeight
}

// GetZoom returns the map zoom level.
func (c Config) GetZoom() int {
	if c.Zoom == 0 {
		return 19
	}
	return c.Zoom
}

// Timeout bounds one snapshot, browser launch included.
func (c Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// GetLifetime returns the browser lifetime, PerCall by default.
func (c Config) GetLifetime() Lifetime {
	if c.Lifetime == "" {
		return PerCall
	}
	return c.Lifetime
}
