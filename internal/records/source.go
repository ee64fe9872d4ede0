package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data row keyed by header name.
type Row struct {
	// Line is the 1-based line in the source file (the header is line 1).
	Line   int
	values map[string]string
}

// NewRow builds a row from parallel header and cell slices. Cells past the
// end of the header are dropped; missing trailing cells read as "".
func NewRow(line int, header, cells []string) Row {
	values := make(map[string]string, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if _, dup := values[h]; dup {
			continue
		}
		v := ""
		if i < len(cells) {
			v = strings.TrimSpace(cells[i])
		}
		values[h] = v
	}
	return Row{Line: line, values: values}
}

// Value returns the trimmed cell under column, or "" when absent.
func (r Row) Value(column string) string {
	return r.values[column]
}

func (r Row) blank() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Table is a header plus its data rows in source order.
type Table struct {
	Header []string
	Rows   []Row
}

// TableSource yields a table of string cells.
type TableSource interface {
	ReadTable() (*Table, error)
}

func buildTable(raw [][]string) *Table {
	if len(raw) == 0 {
		return &Table{}
	}
	header := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := &Table{Header: header}
	for i, cells := range raw[1:] {
		row := NewRow(i+2, header, cells)
		if row.blank() {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// XLSXSource reads a worksheet of an .xlsx workbook. Cells are read raw, so
// numbers keep full precision and dates arrive as Excel serials.
type XLSXSource struct {
	Path  string
	Sheet string // first sheet when empty
}

func (s XLSXSource) ReadTable() (*Table, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: %w", s.Path, ErrNoSheet)
		}
		sheet = sheets[0]
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, s.Path, err)
	}
	return buildTable(raw), nil
}

// CSVSource reads a comma separated file with a header line.
type CSVSource struct {
	Path  string
	Comma rune // ',' when zero
}

func (s CSVSource) ReadTable() (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.Path, err)
	}
	defer f.Close()
	return readCSV(f, s.Comma)
}

func readCSV(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1
	raw, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(raw) > 0 && len(raw[0]) > 0 {
		raw[0][0] = strings.TrimPrefix(raw[0][0], "\ufeff")
	}
	return buildTable(raw), nil
}

// OpenTable picks a TableSource from the file extension.
func OpenTable(path, sheet string) (TableSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSXSource{Path: path, Sheet: sheet}, nil
	case ".csv":
		return CSVSource{Path: path}, nil
	case ".tsv":
		return CSVSource{Path: path, Comma: '\t'}, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}
