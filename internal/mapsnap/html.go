package mapsnap

import (
	"fmt"
	"html/template"
	"io"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64
	Lon float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// MapOptions describes the standalone map page.
type MapOptions struct {
	Center      Coordinate
	Zoom        int
	TileURL     string
	Attribution string
	LeafletJS   string
	LeafletCSS  string
}

// OptionsFor builds the map page options for a coordinate.
func (c Config) OptionsFor(at Coordinate) MapOptions {
	def := DefaultConfig()
	opts := MapOptions{
		Center:      at,
		Zoom:        c.GetZoom(),
		TileURL:     c.TileURL,
		Attribution: c.Attribution,
		LeafletJS:   c.LeafletJS,
		LeafletCSS:  c.LeafletCSS,
	}
	if opts.TileURL == "" {
		opts.TileURL = def.TileURL
		opts.Attribution = def.Attribution
	}
	if opts.LeafletJS == "" {
		opts.LeafletJS = def.LeafletJS
	}
	if opts.LeafletCSS == "" {
		opts.LeafletCSS = def.LeafletCSS
	}
	return opts
}

// readyFlag names the window property set once the visible tiles load.
const readyFlag = "mapReady"

var mapPage = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="{{.LeafletCSS}}">
<script src="{{.LeafletJS}}"></script>
<style>html, body, #map { margin: 0; padding: 0; width: 100%; height: 100%; }</style>
</head>
<body>
<div id="map"></div>
<script>
var center = [{{.Center.Lat}}, {{.Center.Lon}}];
var map = L.map("map", {zoomControl: false, maxZoom: {{.Zoom}}}).setView(center, {{.Zoom}});
var tiles = L.tileLayer({{.TileURL}}, {maxZoom: {{.Zoom}}, attribution: {{.Attribution}}});
tiles.on("load", function () { window.{{.ReadyFlag}} = true; });
tiles.addTo(map);
L.marker(center).addTo(map);
</script>
</body>
</html>
`))

// WriteMapHTML renders a standalone map page centred on opts.Center with a
// single marker.
func WriteMapHTML(w io.Writer, opts MapOptions) error {
	data := struct {
		MapOptions
		ReadyFlag template.JS
	}{opts, template.JS(readyFlag)}
	if err := mapPage.Execute(w, data); err != nil {
		return fmt.Errorf("render map page: %w", err)
	}
	return nil
}
