package records

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
}

// Reader projects table rows into incident records.
type Reader struct {
	Columns Columns
	// Streets resolves Record.District; nil leaves districts empty.
	Streets *StreetTable
	Logger  *zap.Logger
}

// NewReader returns a reader with the default column mapping.
func NewReader(streets *StreetTable, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{Columns: DefaultColumns(), Streets: streets, Logger: logger}
}

// Read loads every row of src. The first malformed row aborts the read; no
// partial result is returned.
func (r *Reader) Read(src TableSource) ([]IncidentRecord, error) {
	if err := r.Columns.Validate(); err != nil {
		return nil, err
	}
	table, err := src.ReadTable()
	if err != nil {
		return nil, err
	}
	if err := checkHeader(table.Header, r.Columns.Required()); err != nil {
		return nil, err
	}

	out := make([]IncidentRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec, err := r.project(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	r.logger().Debug("records read",
		zap.Int("rows", len(out)),
		zap.Int("streets", r.Streets.Len()))
	return out, nil
}

func (r *Reader) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Reader) project(row Row) (IncidentRecord, error) {
	c := r.Columns
	rec := IncidentRecord{
		Title:          row.Value(c.Title),
		Location:       row.Value(c.Location),
		Thoroughfare:   row.Value(c.Thoroughfare),
		Building:       row.Value(c.Building),
		Room:           row.Value(c.Room),
		Floor:          row.Value(c.Floor),
		IncidentNumber: normalizeID(row.Value(c.IncidentNumber)),
		ImageIDs:       SplitImageIDs(row.Value(c.Images)),
	}

	for _, dc := range c.Defects {
		desc := row.Value(dc.Description)
		if desc == "" {
			continue
		}
		q, err := parseQuantity(row.Value(dc.Measurement))
		if err != nil {
			return IncidentRecord{}, rowErr(row, dc.Measurement, err)
		}
		rec.Defects = append(rec.Defects, desc)
		rec.Measurements = append(rec.Measurements, q)
		rec.Units = append(rec.Units, row.Value(dc.Unit))
		rec.Interferences = append(rec.Interferences, row.Value(dc.Interference))
		rec.Actions = append(rec.Actions, row.Value(dc.Action))
	}

	var err error
	if rec.Date, err = ParseDate(row.Value(c.Date)); err != nil {
		return IncidentRecord{}, rowErr(row, c.Date, err)
	}
	if rec.Latitude, err = parseCoordinate(row.Value(c.Latitude), 90); err != nil {
		return IncidentRecord{}, rowErr(row, c.Latitude, err)
	}
	if rec.Longitude, err = parseCoordinate(row.Value(c.Longitude), 180); err != nil {
		return IncidentRecord{}, rowErr(row, c.Longitude, err)
	}

	rec.District = r.Streets.Resolve(rec.Thoroughfare)
	return rec, nil
}

func rowErr(row Row, column string, err error) error {
	return &RowError{Line: row.Line, Column: column, Value: row.Value(column), Err: err}
}

// SplitImageIDs splits a comma separated id list, dropping blanks.
func SplitImageIDs(cell string) []string {
	var ids []string
	for _, part := range strings.Split(cell, ",") {
		if id := normalizeID(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// normalizeID turns raw numeric cells such as "1234.0" into "1234".
func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	if whole, frac, ok := strings.Cut(s, "."); ok && strings.Trim(frac, "0") == "" && whole != "" {
		if _, err := strconv.ParseInt(whole, 10, 64); err == nil {
			return whole
		}
	}
	return s
}

// ParseDate accepts ISO-like text, day/month/year text or an Excel serial.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("excel serial date: %w", err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseQuantity(s string) (Quantity, error) {
	if s == "" {
		return Quantity{}, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: v, Valid: true}, nil
}

func parseCoordinate(s string, limit float64) (float64, error) {
	if s == "" {
		return 0, errors.New("coordinate is empty")
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %v out of range ±%v", v, limit)
	}
	return v, nil
}

// parseDecimal accepts "2.5" or a decimal comma ("2,5"). Thousands
// separators, NaN and infinities are rejected.
func parseDecimal(s string) (float64, error) {
	in := s
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q (expected a decimal such as 2.5 or 2,5)", in)
	}
	return v, nil
}
