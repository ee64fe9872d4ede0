package records

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// fold case-folds s for case-insensitive comparisons, including accented
// letters ("CARRER DE L'ESGLÉSIA" folds equal to "carrer de l'església").
func fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(fold(s), fold(substr))
}

// Street is one row of the street register.
type Street struct {
	Name     string
	District string
}

// StreetTable resolves districts from thoroughfare text.
type StreetTable struct {
	streets []Street
	folded  []string
}

// NewStreetTable keeps streets in the given order; order decides ties.
func NewStreetTable(streets []Street) *StreetTable {
	t := &StreetTable{
		streets: make([]Street, len(streets)),
		folded:  make([]string, len(streets)),
	}
	copy(t.streets, streets)
	for i, s := range t.streets {
		t.folded[i] = fold(strings.TrimSpace(s.Name))
	}
	return t
}

// LoadStreetTable reads the register from src.
func LoadStreetTable(src TableSource, cols StreetColumns) (*StreetTable, error) {
	table, err := src.ReadTable()
	if err != nil {
		return nil, err
	}
	if err := checkHeader(table.Header, []string{cols.Street, cols.District}); err != nil {
		return nil, fmt.Errorf("street table: %w", err)
	}
	streets := make([]Street, 0, len(table.Rows))
	for _, row := range table.Rows {
		streets = append(streets, Street{
			Name:     row.Value(cols.Street),
			District: row.Value(cols.District),
		})
	}
	return NewStreetTable(streets), nil
}

// Resolve returns the district of the first street, in table order, whose
// name occurs in thoroughfare ignoring case. The first match wins even when
// a later, longer name also matches. Returns "" when nothing matches.
func (t *StreetTable) Resolve(thoroughfare string) string {
	if t == nil {
		return ""
	}
	haystack := fold(thoroughfare)
	for i, name := range t.folded {
		if name == "" {
			continue
		}
		if strings.Contains(haystack, name) {
			return t.streets[i].District
		}
	}
	return ""
}

// Len is the number of streets in the table.
func (t *StreetTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.streets)
}
