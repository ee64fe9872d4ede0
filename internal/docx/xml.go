package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	// A4 portrait with 1" margins, in twentieths of a point.
	pageWidth   = 11906
	pageHeight  = 16838
	pageMargin  = 1440
	textWidth   = pageWidth - 2*pageMargin
	headerSpace = 708
)

type xmlWriter struct {
	bytes.Buffer
}

func (w *xmlWriter) raw(s string) {
	w.WriteString(s)
}

func (w *xmlWriter) rawf(format string, args ...any) {
	fmt.Fprintf(&w.Buffer, format, args...)
}

func (w *xmlWriter) text(s string) {
	_ = xml.EscapeText(&w.Buffer, []byte(s))
}

func (w *xmlWriter) attr(s string) {
	w.text(s)
}

func halfPoints(pt float64) string {
	return strconv.Itoa(int(pt*2 + 0.5))
}

func (w *xmlWriter) runProps(s RunStyle) {
	if s == (RunStyle{}) {
		return
	}
	w.raw("<w:rPr>")
	if s.Font != "" {
		w.raw(`<w:rFonts w:ascii="`)
		w.attr(s.Font)
		w.raw(`" w:hAnsi="`)
		w.attr(s.Font)
		w.raw(`" w:cs="`)
		w.attr(s.Font)
		w.raw(`"/>`)
	}
	if s.Bold {
		w.raw("<w:b/><w:bCs/>")
	}
	if s.Color != "" {
		w.raw(`<w:color w:val="`)
		w.attr(s.Color)
		w.raw(`"/>`)
	}
	if s.Size > 0 {
		hp := halfPoints(s.Size)
		w.rawf(`<w:sz w:val="%s"/><w:szCs w:val="%s"/>`, hp, hp)
	}
	w.raw("</w:rPr>")
}

func (w *xmlWriter) run(r Run) {
	w.raw("<w:r>")
	w.runProps(r.Style)
	if r.Break {
		w.raw("<w:br/>")
	}
	if r.Drawing != nil {
		w.drawing(r.Drawing)
	}
	if r.Text != "" {
		w.raw(`<w:t xml:space="preserve">`)
		w.text(r.Text)
		w.raw("</w:t>")
	}
	w.raw("</w:r>")
}

func (w *xmlWriter) paragraph(p *Paragraph) {
	w.raw("<w:p>")
	if p.Align != "" && p.Align != AlignLeft {
		w.rawf(`<w:pPr><w:jc w:val="%s"/></w:pPr>`, p.Align)
	}
	if p.pageBreak {
		w.raw(`<w:r><w:br w:type="page"/></w:r>`)
	}
	for _, r := range p.Runs {
		w.run(r)
	}
	w.raw("</w:p>")
}

func (w *xmlWriter) table(t *Table) {
	cols := t.Columns
	if cols < 1 {
		cols = 1
	}
	colWidth := textWidth / cols

	w.raw("<w:tbl><w:tblPr>")
	w.raw(`<w:tblStyle w:val="TableGrid"/>`)
	w.rawf(`<w:tblW w:w="%d" w:type="dxa"/>`, colWidth*cols)
	w.raw(`<w:tblLayout w:type="fixed"/>`)
	w.raw(`<w:tblLook w:val="04A0" w:firstRow="1" w:lastRow="0" w:firstColumn="1" w:lastColumn="0" w:noHBand="0" w:noVBand="1"/>`)
	w.raw("</w:tblPr><w:tblGrid>")
	for i := 0; i < cols; i++ {
		w.rawf(`<w:gridCol w:w="%d"/>`, colWidth)
	}
	w.raw("</w:tblGrid>")

	for _, row := range t.Rows {
		w.raw("<w:tr>")
		for _, c := range row.Cells {
			w.cell(c, colWidth)
		}
		w.raw("</w:tr>")
	}
	w.raw("</w:tbl>")
}

func (w *xmlWriter) cell(c *Cell, colWidth int) {
	span := c.span()
	w.raw("<w:tc><w:tcPr>")
	w.rawf(`<w:tcW w:w="%d" w:type="dxa"/>`, colWidth*span)
	if span > 1 {
		w.rawf(`<w:gridSpan w:val="%d"/>`, span)
	}
	if c.Fill != "" {
		w.raw(`<w:shd w:val="clear" w:color="auto" w:fill="`)
		w.attr(c.Fill)
		w.raw(`"/>`)
	}
	w.raw(`<w:vAlign w:val="center"/>`)
	w.raw("</w:tcPr>")
	if len(c.Paragraphs) == 0 {
		// a cell must hold at least one paragraph
		w.raw("<w:p/>")
	}
	for _, p := range c.Paragraphs {
		w.paragraph(p)
	}
	w.raw("</w:tc>")
}

func (w *xmlWriter) drawing(d *Drawing) {
	w.raw(`<w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	w.rawf(`<wp:extent cx="%d" cy="%d"/>`, d.Width, d.Height)
	w.raw(`<wp:effectExtent l="0" t="0" r="0" b="0"/>`)
	w.rawf(`<wp:docPr id="%d" name="Picture %d"/>`, d.ID, d.ID)
	w.raw(`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`)
	w.rawf(`<a:graphic><a:graphicData uri="%s"><pic:pic>`, nsPic)
	w.raw(`<pic:nvPicPr><pic:cNvPr id="0" name="`)
	w.attr(d.Name)
	w.raw(`"/><pic:cNvPicPr/></pic:nvPicPr>`)
	w.rawf(`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, d.relID)
	w.rawf(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, d.Width, d.Height)
	w.raw(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`)
	w.raw(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`)
}

func namespaces() string {
	return fmt.Sprintf(`xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"`,
		nsW, nsR, nsWP, nsA, nsPic)
}

func (d *Document) documentXML() []byte {
	var w xmlWriter
	w.raw(xmlDecl)
	w.rawf("<w:document %s><w:body>", namespaces())
	for _, b := range d.body {
		switch b := b.(type) {
		case *Table:
			w.table(b)
		case *Paragraph:
			w.paragraph(b)
		}
	}
	if len(d.body) == 0 {
		w.raw("<w:p/>")
	} else if _, ok := d.body[len(d.body)-1].(*Table); ok {
		// the body may not end with a table
		w.raw("<w:p/>")
	}
	w.raw("<w:sectPr>")
	if d.header != nil {
		w.raw(`<w:headerReference w:type="default" r:id="rIdHeader"/>`)
	}
	if d.footer != nil {
		w.raw(`<w:footerReference w:type="default" r:id="rIdFooter"/>`)
	}
	w.rawf(`<w:pgSz w:w="%d" w:h="%d"/>`, pageWidth, pageHeight)
	w.rawf(`<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="%d" w:footer="%d" w:gutter="0"/>`,
		pageMargin, pageMargin, pageMargin, pageMargin, headerSpace, headerSpace)
	w.raw("</w:sectPr></w:body></w:document>")
	return w.Bytes()
}

func headerFooterXML(root string, p *Paragraph) []byte {
	var w xmlWriter
	w.raw(xmlDecl)
	w.rawf("<w:%s %s>", root, namespaces())
	w.paragraph(p)
	w.rawf("</w:%s>", root)
	return w.Bytes()
}

const stylesXML = xmlDecl + `<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="Arial" w:hAnsi="Arial" w:cs="Arial" w:eastAsia="Arial"/>` +
	`<w:sz w:val="22"/><w:szCs w:val="22"/><w:lang w:val="ca-ES"/>` +
	`</w:rPr></w:rPrDefault><w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="table" w:default="1" w:styleId="TableNormal"><w:name w:val="Normal Table"/>` +
	`<w:tblPr><w:tblInd w:w="0" w:type="dxa"/><w:tblCellMar><w:top w:w="0" w:type="dxa"/><w:left w:w="108" w:type="dxa"/>` +
	`<w:bottom w:w="0" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:basedOn w:val="TableNormal"/>` +
	`<w:tblPr><w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`</w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`
