// Package report lays incident records out as document sections: a data
// table with photographs, then a location table with the district plan and
// a live map snapshot.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"informes/internal/docx"
	"informes/internal/mapsnap"
	"informes/internal/records"

	"go.uber.org/zap"
)

// Sink receives document content. *docx.Document implements it.
type Sink interface {
	AddTable(columns int) *docx.Table
	AddParagraph(p *docx.Paragraph)
	AddPageBreak()
	AddImage(data []byte, size docx.Size) (*docx.Drawing, error)
	SetHeader(p *docx.Paragraph)
	SetFooter(p *docx.Paragraph)
}

// Options locates report inputs and sizes pictures.
type Options struct {
	PhotosDir         string
	DistrictImagesDir string
	HeaderText        string
	FooterText        string

	PhotoHeight   int64 // EMU
	MapWidth      int64 // EMU
	DistrictWidth int64 // EMU
}

// DefaultOptions returns two-inch photos and four-inch maps.
func DefaultOptions() Options {
	return Options{
		HeaderText:    DefaultHeaderText,
		FooterText:    DefaultFooterText,
		PhotoHeight:   docx.Inches(2),
		MapWidth:      docx.Inches(4),
		DistrictWidth: docx.Inches(4),
	}
}

// Section summarises what was rendered for one record.
type Section struct {
	Defects          int
	Photos           int
	BuildingBlock    bool
	DistrictImage    string
	MapSnapshotBytes int
}

// Renderer writes one section per record. It is not safe for concurrent use.
type Renderer struct {
	opts   Options
	style  Style
	labels Labels
	maps   mapsnap.Renderer
	logger *zap.Logger

	districtOnce  sync.Once
	districtFiles []string
}

// NewRenderer returns a renderer. A nil maps renderer leaves the location
// cell empty.
func NewRenderer(opts Options, maps mapsnap.Renderer, logger *zap.Logger) *Renderer {
	def := DefaultOptions()
	if opts.PhotoHeight == 0 {
		opts.PhotoHeight = def.PhotoHeight
	}
	if opts.MapWidth == 0 {
		opts.MapWidth = def.MapWidth
	}
	if opts.DistrictWidth == 0 {
		opts.DistrictWidth = def.DistrictWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		opts:   opts,
		style:  DefaultStyle(),
		labels: DefaultLabels(),
		maps:   maps,
		logger: logger,
	}
}

// Description pairs each title element with its defect and names the
// thoroughfare: "Paviment Esquerda, Vorera Clot a Carrer Major".
func Description(rec records.IncidentRecord, joiner string) string {
	elems := rec.Elements()
	n := min(len(elems), len(rec.Defects))
	pairs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, strings.TrimSpace(elems[i]+" "+rec.Defects[i]))
	}
	return strings.TrimSpace(strings.Join(pairs, ", ") + " " + joiner + " " + rec.Thoroughfare)
}

// RenderRecord appends the record's two tables, each followed by a page
// break. A map snapshot failure aborts with an error.
func (r *Renderer) RenderRecord(ctx context.Context, doc Sink, rec records.IncidentRecord) (Section, error) {
	var sec Section
	s, l := r.style, r.labels

	tbl := doc.AddTable(2)
	title := l.Incident
	if rec.IncidentNumber != "" {
		title = fmt.Sprintf(l.IncidentNumber, rec.IncidentNumber)
	}
	tbl.AddRow(s.header(title))

	tbl.AddRow(s.header(l.Description))
	tbl.AddRow(s.wideValue(Description(rec, l.Joiner)))

	tbl.AddRow(s.header(l.Data))
	r.pair(tbl, l.Date, formatDate(rec))
	r.pair(tbl, l.Place, rec.Location)
	r.pair(tbl, l.District, rec.District)
	r.pair(tbl, l.Thoroughfare, rec.Thoroughfare)
	r.pair(tbl, l.Element, rec.Title)

	if rec.HasBuilding() {
		sec.BuildingBlock = true
		tbl.AddRow(s.header(l.BuildingSection))
		r.pair(tbl, l.Building, rec.Building)
		r.pair(tbl, l.Room, rec.Room)
		r.pair(tbl, l.Floor, rec.Floor)
	}

	for i := range rec.Defects {
		r.pair(tbl, fmt.Sprintf(l.Defect, i+1), strings.TrimSpace(rec.Element(i)+" "+rec.Defects[i]))
		r.pair(tbl, l.Measurement, strings.TrimSpace(nth(rec.Measurements, i).String()+" "+nth(rec.Units, i)))
		r.pair(tbl, l.Interference, nth(rec.Interferences, i))
		r.pair(tbl, l.Action, nth(rec.Actions, i))
		sec.Defects++
	}

	tbl.AddRow(s.header(l.Graphic))
	photos, err := r.photoCells(doc, rec)
	if err != nil {
		return sec, err
	}
	if len(photos) > 0 {
		tbl.AddRow(photos...)
	}
	sec.Photos = len(photos)
	doc.AddPageBreak()

	loc := doc.AddTable(2)
	loc.AddRow(s.header(l.Coordinates))
	r.pair(loc, l.Latitude, formatCoordinate(rec.Latitude))
	r.pair(loc, l.Longitude, formatCoordinate(rec.Longitude))

	loc.AddRow(s.header(l.DistrictMap))
	districtCell, districtFile, err := r.districtCell(doc, rec.District)
	if err != nil {
		return sec, err
	}
	loc.AddRow(districtCell)
	sec.DistrictImage = districtFile

	loc.AddRow(s.header(l.Location))
	mapCell, n, err := r.mapCell(ctx, doc, rec)
	if err != nil {
		return sec, err
	}
	loc.AddRow(mapCell)
	sec.MapSnapshotBytes = n
	doc.AddPageBreak()

	r.logger.Debug("record rendered",
		zap.String("incident", rec.IncidentNumber),
		zap.Int("defects", sec.Defects),
		zap.Int("photos", sec.Photos),
		zap.String("district_image", sec.DistrictImage))
	return sec, nil
}

// Finish sets the page header and footer. Call it once, after the last
// record.
func (r *Renderer) Finish(doc Sink) {
	doc.SetHeader(docx.NewParagraph(strings.ToUpper(r.opts.HeaderText), docx.AlignCenter, r.style.PageHeader))
	doc.SetFooter(docx.NewParagraph(r.opts.FooterText, docx.AlignCenter, r.style.PageFooter))
}

func (r *Renderer) pair(t *docx.Table, label, value string) {
	t.AddRow(r.style.label(label), r.style.value(value))
}

// photoCells returns one centred cell per photo found, at most two. Missing
// files are skipped; a single photo spans both columns.
func (r *Renderer) photoCells(doc Sink, rec records.IncidentRecord) ([]*docx.Cell, error) {
	var cells []*docx.Cell
	for _, id := range rec.RenderedImageIDs() {
		path := filepath.Join(r.opts.PhotosDir, id+".jpg")
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				r.logger.Debug("photo not found", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("read photo %s: %w", path, err)
		}
		pic, err := doc.AddImage(data, docx.Size{Height: r.opts.PhotoHeight})
		if err != nil {
			r.logger.Warn("skipping unreadable photo", zap.String("path", path), zap.Error(err))
			continue
		}
		cells = append(cells, r.pictureCell(pic))
	}
	if len(cells) == 1 {
		cells[0].Span = 2
	}
	return cells, nil
}

func (r *Renderer) pictureCell(pic *docx.Drawing) *docx.Cell {
	p := &docx.Paragraph{Align: docx.AlignCenter}
	p.AddDrawing(pic)
	return &docx.Cell{Paragraphs: []*docx.Paragraph{p}}
}

func (r *Renderer) emptyWide() *docx.Cell {
	return &docx.Cell{Span: 2, Paragraphs: []*docx.Paragraph{{Align: docx.AlignCenter}}}
}

func (r *Renderer) districtCell(doc Sink, district string) (*docx.Cell, string, error) {
	path := r.findDistrictImage(district)
	if path == "" {
		return r.emptyWide(), "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r.emptyWide(), "", nil
		}
		return nil, "", fmt.Errorf("read district image %s: %w", path, err)
	}
	pic, err := doc.AddImage(data, docx.Size{Width: r.opts.DistrictWidth})
	if err != nil {
		r.logger.Warn("skipping unreadable district image", zap.String("path", path), zap.Error(err))
		return r.emptyWide(), "", nil
	}
	c := r.pictureCell(pic)
	c.Span = 2
	return c, path, nil
}

// findDistrictImage returns the first image, by file name, whose name
// contains the district ignoring case.
func (r *Renderer) findDistrictImage(district string) string {
	if strings.TrimSpace(district) == "" || r.opts.DistrictImagesDir == "" {
		return ""
	}
	r.districtOnce.Do(r.loadDistrictFiles)
	for _, name := range r.districtFiles {
		if records.ContainsFold(name, district) {
			return filepath.Join(r.opts.DistrictImagesDir, name)
		}
	}
	return ""
}

func (r *Renderer) loadDistrictFiles() {
	entries, err := os.ReadDir(r.opts.DistrictImagesDir)
	if err != nil {
		r.logger.Warn("district images unavailable",
			zap.String("dir", r.opts.DistrictImagesDir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			r.districtFiles = append(r.districtFiles, e.Name())
		}
	}
}

func (r *Renderer) mapCell(ctx context.Context, doc Sink, rec records.IncidentRecord) (*docx.Cell, int, error) {
	if r.maps == nil {
		return r.emptyWide(), 0, nil
	}
	at := mapsnap.Coordinate{Lat: rec.Latitude, Lon: rec.Longitude}
	png, err := r.maps.Snapshot(ctx, at)
	if err != nil {
		return nil, 0, fmt.Errorf("map snapshot at %s: %w", at, err)
	}
	pic, err := doc.AddImage(png, docx.Size{Width: r.opts.MapWidth})
	if err != nil {
		return nil, 0, fmt.Errorf("embed map snapshot at %s: %w", at, err)
	}
	c := r.pictureCell(pic)
	c.Span = 2
	return c, len(png), nil
}

func formatDate(rec records.IncidentRecord) string {
	if rec.Date.IsZero() {
		return ""
	}
	return rec.Date.Format("02/01/2006")
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nth[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}
