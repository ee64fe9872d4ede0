package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Markdown summarises the run for terminal rendering.
func (r *Result) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Informe generat\n\n")
	fmt.Fprintf(&b, "- **Fitxer**: `%s`\n", r.Output)
	fmt.Fprintf(&b, "- **Incidències**: %d\n", r.Records)
	if r.Streets > 0 {
		fmt.Fprintf(&b, "- **Carrers al registre**: %d\n", r.Streets)
	}
	fmt.Fprintf(&b, "- **Mida**: %d KB\n", (r.Bytes+1023)/1024)
	fmt.Fprintf(&b, "- **Temps**: %s\n", r.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(&b, "- **Execució**: `%s`\n", r.RunID)

	if len(r.Sections) == 0 {
		return b.String()
	}
	b.WriteString("\n| # | Desperfectes | Fotos | Edifici | Plànol del barri | Mapa |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i, s := range r.Sections {
		building := "no"
		if s.BuildingBlock {
			building = "sí"
		}
		district := "-"
		if s.DistrictImage != "" {
			district = "sí"
		}
		snapshot := "-"
		if s.MapSnapshotBytes > 0 {
			snapshot = fmt.Sprintf("%d KB", (s.MapSnapshotBytes+1023)/1024)
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %s |\n", i+1, s.Defects, s.Photos, building, district, snapshot)
	}
	return b.String()
}
