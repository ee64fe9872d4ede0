// Package docx builds WordprocessingML (.docx) documents: tables with shaded
// cells, styled runs, inline pictures, page breaks and a page header/footer.
// It covers only what the incident reports need.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"net/http"
	"strings"
)

// EMUPerInch is the number of English Metric Units in an inch.
const EMUPerInch = 914400

// Inches converts inches to EMU.
func Inches(in float64) int64 {
	return int64(in * EMUPerInch)
}

// Align is a paragraph justification value.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// RunStyle is the character formatting of a run. Size is in points; Color
// is an RRGGBB hex string.
type RunStyle struct {
	Font  string
	Size  float64
	Bold  bool
	Color string
}

// Run is a span of text or a picture inside a paragraph.
type Run struct {
	Text    string
	Style   RunStyle
	Drawing *Drawing
	// Break emits a line break before the text.
	Break bool
}

// Paragraph is a block of runs.
type Paragraph struct {
	Align     Align
	Runs      []Run
	pageBreak bool
}

// NewParagraph returns a paragraph with a single text run.
func NewParagraph(text string, align Align, style RunStyle) *Paragraph {
	return &Paragraph{Align: align, Runs: []Run{{Text: text, Style: style}}}
}

// AddText appends a text run.
func (p *Paragraph) AddText(text string, style RunStyle) *Paragraph {
	p.Runs = append(p.Runs, Run{Text: text, Style: style})
	return p
}

// AddDrawing appends a picture run.
func (p *Paragraph) AddDrawing(d *Drawing) *Paragraph {
	p.Runs = append(p.Runs, Run{Drawing: d})
	return p
}

// Text concatenates the text of every run.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Drawings returns the pictures of the paragraph.
func (p *Paragraph) Drawings() []*Drawing {
	var out []*Drawing
	for _, r := range p.Runs {
		if r.Drawing != nil {
			out = append(out, r.Drawing)
		}
	}
	return out
}

// IsPageBreak reports whether the paragraph only carries a page break.
func (p *Paragraph) IsPageBreak() bool {
	return p.pageBreak
}

// Cell is a table cell. Span > 1 merges it across grid columns.
type Cell struct {
	Fill       string
	Span       int
	Paragraphs []*Paragraph
}

// NewCell returns a cell holding one paragraph.
func NewCell(fill string, p *Paragraph) *Cell {
	return &Cell{Fill: fill, Paragraphs: []*Paragraph{p}}
}

// Text joins the text of the cell's paragraphs with newlines.
func (c *Cell) Text() string {
	parts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// Drawings returns every picture in the cell.
func (c *Cell) Drawings() []*Drawing {
	var out []*Drawing
	for _, p := range c.Paragraphs {
		out = append(out, p.Drawings()...)
	}
	return out
}

func (c *Cell) span() int {
	if c.Span < 1 {
		return 1
	}
	return c.Span
}

// Row is a table row.
type Row struct {
	Cells []*Cell
}

// Table is a grid of equal-width columns.
type Table struct {
	Columns int
	Rows    []*Row
}

// AddRow appends a row built from cells.
func (t *Table) AddRow(cells ...*Cell) *Row {
	r := &Row{Cells: cells}
	t.Rows = append(t.Rows, r)
	return r
}

// Block is a body element: *Table or *Paragraph.
type Block interface {
	block()
}

func (*Table) block()     {}
func (*Paragraph) block() {}

// Drawing is a picture registered with a document.
type Drawing struct {
	ID     int
	Name   string
	Width  int64 // EMU
	Height int64 // EMU
	relID  string
}

// Size bounds a picture. When only one side is set the other follows the
// image's aspect ratio.
type Size struct {
	Width  int64
	Height int64
}

type media struct {
	name        string
	contentType string
	data        []byte
	relID       string
}

// Document accumulates body blocks and media until it is written.
type Document struct {
	body   []Block
	media  []media
	header *Paragraph
	footer *Paragraph
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// AddTable appends a table with the given column count.
func (d *Document) AddTable(columns int) *Table {
	t := &Table{Columns: columns}
	d.body = append(d.body, t)
	return t
}

// AddParagraph appends p to the body.
func (d *Document) AddParagraph(p *Paragraph) {
	d.body = append(d.body, p)
}

// AddPageBreak appends a paragraph holding a page break.
func (d *Document) AddPageBreak() {
	d.body = append(d.body, &Paragraph{pageBreak: true})
}

// SetHeader sets the page header paragraph.
func (d *Document) SetHeader(p *Paragraph) {
	d.header = p
}

// SetFooter sets the page footer paragraph.
func (d *Document) SetFooter(p *Paragraph) {
	d.footer = p
}

// Header returns the page header paragraph, if any.
func (d *Document) Header() *Paragraph { return d.header }

// Footer returns the page footer paragraph, if any.
func (d *Document) Footer() *Paragraph { return d.footer }

// Body returns the body blocks in order.
func (d *Document) Body() []Block {
	return d.body
}

// Tables returns the body tables in order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, b := range d.body {
		if t, ok := b.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// ErrUnsupportedImage is returned for pictures that are neither PNG nor JPEG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// AddImage registers PNG or JPEG data and returns a drawing scaled to size.
func (d *Document) AddImage(data []byte, size Size) (*Drawing, error) {
	var ext string
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpeg"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	w, h := size.Width, size.Height
	switch {
	case w > 0 && h == 0:
		h = w * int64(cfg.Height) / int64(cfg.Width)
	case h > 0 && w == 0:
		w = h * int64(cfg.Width) / int64(cfg.Height)
	case w == 0 && h == 0:
		// 96 dpi
		w = int64(cfg.Width) * EMUPerInch / 96
		h = int64(cfg.Height) * EMUPerInch / 96
	}

	n := len(d.media) + 1
	m := media{
		name:        fmt.Sprintf("image%d.%s", n, ext),
		contentType: contentType,
		data:        data,
		relID:       fmt.Sprintf("rIdImg%d", n),
	}
	d.media = append(d.media, m)

	return &Drawing{
		ID:     n,
		Name:   m.name,
		Width:  w,
		Height: h,
		relID:  m.relID,
	}, nil
}

// MediaCount is the number of pictures registered with the document.
func (d *Document) MediaCount() int {
	return len(d.media)
}
