// Package records loads inspection rows from spreadsheets and projects them
// into IncidentRecord values, optionally resolving each record's district
// from a street table.
package records

import (
	"strconv"
	"strings"
	"time"
)

// MaxDefects is the number of indexed defect column families in a row.
const MaxDefects = 3

// MaxImages is how many image ids of a record are rendered.
const MaxImages = 2

// Quantity is a measurement that may be absent from its cell.
type Quantity struct {
	Value float64
	Valid bool
}

// String formats the value without trailing zeros, or "" when absent.
func (q Quantity) String() string {
	if !q.Valid {
		return ""
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

// IncidentRecord is one spreadsheet row describing a defect at a location.
// Defects, Measurements, Units, Interferences and Actions are index-aligned:
// position i of each list belongs to the same defect slot.
type IncidentRecord struct {
	Title string

	Defects       []string
	Measurements  []Quantity
	Units         []string
	Interferences []string
	Actions       []string

	Location     string
	Thoroughfare string
	District     string
	Building     string
	Room         string
	Floor        string

	Date     time.Time
	ImageIDs []string

	Latitude  float64
	Longitude float64

	IncidentNumber string
}

// Elements splits the title into its comma-delimited element tokens.
func (r IncidentRecord) Elements() []string {
	if r.Title == "" {
		return nil
	}
	return strings.Split(r.Title, ", ")
}

// Element returns the i-th title element, or "" if the title is shorter.
func (r IncidentRecord) Element(i int) string {
	elems := r.Elements()
	if i < 0 || i >= len(elems) {
		return ""
	}
	return elems[i]
}

// DefectCount is the number of populated defect slots.
func (r IncidentRecord) DefectCount() int {
	return len(r.Defects)
}

// RenderedImageIDs returns the image ids that are placed in the document.
func (r IncidentRecord) RenderedImageIDs() []string {
	if len(r.ImageIDs) > MaxImages {
		return r.ImageIDs[:MaxImages]
	}
	return r.ImageIDs
}

// HasBuilding reports whether the building/room/floor block applies.
func (r IncidentRecord) HasBuilding() bool {
	return strings.TrimSpace(r.Building) != ""
}
