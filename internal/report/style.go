package report

import "informes/internal/docx"

// Style is the presentation table of the report.
type Style struct {
	HeaderFill string
	LabelFill  string
	ValueFill  string

	Header docx.RunStyle
	Label  docx.RunStyle
	Value  docx.RunStyle

	PageHeader docx.RunStyle
	PageFooter docx.RunStyle
}

// DefaultStyle is navy section headers, blue labels and grey values.
func DefaultStyle() Style {
	return Style{
		HeaderFill: "002060",
		LabelFill:  "0070C0",
		ValueFill:  "D9D9D9",
		Header:     docx.RunStyle{Font: "Arial", Size: 16, Bold: true, Color: "FFFFFF"},
		Label:      docx.RunStyle{Font: "Arial", Size: 11, Bold: true, Color: "FFFFFF"},
		Value:      docx.RunStyle{Font: "Arial", Size: 11, Color: "000000"},
		PageHeader: docx.RunStyle{Font: "Arial", Size: 10, Bold: true, Color: "0070C0"},
		PageFooter: docx.RunStyle{Font: "Arial", Size: 9, Bold: true, Color: "0070C0"},
	}
}

// Labels holds the fixed captions of the report.
type Labels struct {
	Incident        string
	IncidentNumber  string
	Description     string
	Data            string
	Date            string
	Place           string
	District        string
	Thoroughfare    string
	Element         string
	BuildingSection string
	Building        string
	Room            string
	Floor           string
	Defect          string
	Measurement     string
	Interference    string
	Action          string
	Graphic         string
	Coordinates     string
	Latitude        string
	Longitude       string
	DistrictMap     string
	Location        string
	// Joiner links the description to the thoroughfare.
	Joiner string
}

// DefaultLabels returns the Catalan captions used by the municipal reports.
func DefaultLabels() Labels {
	return Labels{
		Incident:        "INCIDÈNCIA",
		IncidentNumber:  "INCIDÈNCIA Nº %s",
		Description:     "DESCRIPCIÓ",
		Data:            "DADES",
		Date:            "Data de detecció",
		Place:           "Lloc",
		District:        "Barri",
		Thoroughfare:    "Carrer",
		Element:         "Element afectat",
		BuildingSection: "EDIFICI",
		Building:        "Edifici",
		Room:            "Sala",
		Floor:           "Planta",
		Defect:          "Desperfecte %d",
		Measurement:     "Amidament",
		Interference:    "Interferència",
		Action:          "Actuació proposada",
		Graphic:         "GRÀFIC DE LA INCIDÈNCIA",
		Coordinates:     "COORDENADES",
		Latitude:        "Latitud",
		Longitude:       "Longitud",
		DistrictMap:     "PLÀNOL DEL BARRI",
		Location:        "LOCALITZACIÓ",
		Joiner:          "a",
	}
}

const (
	// DefaultHeaderText is the campaign title printed on every page.
	DefaultHeaderText = "Contractació per la presentació del servei d'unitat d'intervenció ràpida, pel manteniment de la via pública i dels edificis municipals"
	// DefaultFooterText is the tender section printed on every page.
	DefaultFooterText = "SOBRE A. CRITERIS AVALUABLES A JUDICI DE VALOR"
)

func (s Style) header(text string) *docx.Cell {
	c := docx.NewCell(s.HeaderFill, docx.NewParagraph(text, docx.AlignCenter, s.Header))
	c.Span = 2
	return c
}

func (s Style) label(text string) *docx.Cell {
	return docx.NewCell(s.LabelFill, docx.NewParagraph(text, docx.AlignCenter, s.Label))
}

func (s Style) value(text string) *docx.Cell {
	return docx.NewCell(s.ValueFill, docx.NewParagraph(text, docx.AlignCenter, s.Value))
}

func (s Style) wideValue(text string) *docx.Cell {
	c := s.value(text)
	c.Span = 2
	return c
}
