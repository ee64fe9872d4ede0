package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// zipEpoch pins entry timestamps so identical documents are byte-identical.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

type part struct {
	name string
	data []byte
}

func (d *Document) parts() []part {
	var ct xmlWriter
	ct.raw(xmlDecl)
	ct.raw(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.raw(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.raw(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.raw(`<Default Extension="png" ContentType="image/png"/>`)
	ct.raw(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	ct.raw(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	ct.raw(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	if d.header != nil {
		ct.raw(`<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>`)
	}
	if d.footer != nil {
		ct.raw(`<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>`)
	}
	ct.raw(`</Types>`)

	rootRels := xmlDecl +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	var rels xmlWriter
	rels.raw(xmlDecl)
	rels.raw(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	rels.raw(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	if d.header != nil {
		rels.raw(`<Relationship Id="rIdHeader" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>`)
	}
	if d.footer != nil {
		rels.raw(`<Relationship Id="rIdFooter" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>`)
	}
	for _, m := range d.media {
		rels.rawf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`, m.relID, m.name)
	}
	rels.raw(`</Relationships>`)

	parts := []part{
		{"[Content_Types].xml", ct.Bytes()},
		{"_rels/.rels", []byte(rootRels)},
		{"word/_rels/document.xml.rels", rels.Bytes()},
		{"word/document.xml", d.documentXML()},
		{"word/styles.xml", []byte(stylesXML)},
	}
	if d.header != nil {
		parts = append(parts, part{"word/header1.xml", headerFooterXML("hdr", d.header)})
	}
	if d.footer != nil {
		parts = append(parts, part{"word/footer1.xml", headerFooterXML("ftr", d.footer)})
	}
	for _, m := range d.media {
		parts = append(parts, part{"word/media/" + m.name, m.data})
	}
	return parts
}

// WriteTo serializes the document as a .docx package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, p := range d.parts() {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return cw.n, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("finish docx package: %w", err)
	}
	return cw.n, nil
}

// Bytes returns the serialized package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
