package records

import (
	"fmt"
	"strings"
)

// DefectColumns names the columns of one indexed defect slot.
type DefectColumns struct {
	Description  string `yaml:"description"`
	Measurement  string `yaml:"measurement"`
	Unit         string `yaml:"unit"`
	Interference string `yaml:"interference"`
	Action       string `yaml:"action"`
}

// Columns maps record fields to spreadsheet headers.
type Columns struct {
	Title          string                    `yaml:"title"`
	Location       string                    `yaml:"location"`
	Thoroughfare   string                    `yaml:"thoroughfare"`
	Defects        [MaxDefects]DefectColumns `yaml:"defects"`
	Date           string                    `yaml:"date"`
	Images         string                    `yaml:"images"`
	Latitude       string                    `yaml:"latitude"`
	Longitude      string                    `yaml:"longitude"`
	Building       string                    `yaml:"building"`
	Room           string                    `yaml:"room"`
	Floor          string                    `yaml:"floor"`
	IncidentNumber string                    `yaml:"incident_number"`
}

// StreetColumns maps the street lookup table headers.
type StreetColumns struct {
	Street   string `yaml:"street"`
	District string `yaml:"district"`
}

// DefaultColumns returns the headers produced by the inspection app export.
func DefaultColumns() Columns {
	c := Columns{
		Title:          "_title",
		Location:       "lloc",
		Thoroughfare:   "lloc_thoroughfare",
		Date:           "data",
		Images:         "imatges",
		Latitude:       "_latitude",
		Longitude:      "_longitude",
		Building:       "edifici",
		Room:           "sala",
		Floor:          "planta",
		IncidentNumber: "num_incidencia",
	}
	for i := 0; i < MaxDefects; i++ {
		desc := "tipus_de_desperfecte"
		if i > 0 {
			desc = fmt.Sprintf("%d_tipus_de_desperfecte", i+1)
		}
		c.Defects[i] = DefectColumns{
			Description:  desc,
			Measurement:  fmt.Sprintf("%d_amidament", i+1),
			Unit:         fmt.Sprintf("%d_unitats", i+1),
			Interference: fmt.Sprintf("%d_interferencia", i+1),
			Action:       fmt.Sprintf("%d_tipus_actuacio", i+1),
		}
	}
	return c
}

// DefaultStreetColumns returns the headers of the municipal street register.
func DefaultStreetColumns() StreetColumns {
	return StreetColumns{Street: "NOM_VIA", District: "BARRI"}
}

// Required lists the headers a records table must carry.
func (c Columns) Required() []string {
	req := []string{c.Title, c.Location, c.Thoroughfare}
	for _, d := range c.Defects {
		req = append(req, d.Description, d.Measurement, d.Unit)
	}
	return append(req, c.Date, c.Images, c.Latitude, c.Longitude)
}

// Validate checks that every required column has a name.
func (c Columns) Validate() error {
	for _, name := range c.Required() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("column mapping has an empty required column name")
		}
	}
	return nil
}

func checkHeader(header []string, required []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}
