package records

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fullHeader = []interface{}{
	"_title", "lloc", "lloc_thoroughfare",
	"tipus_de_desperfecte", "2_tipus_de_desperfecte", "3_tipus_de_desperfecte",
	"1_amidament", "2_amidament", "3_amidament",
	"1_unitats", "2_unitats", "3_unitats",
	"1_interferencia", "1_tipus_actuacio",
	"data", "imatges", "_latitude", "_longitude",
	"edifici", "sala", "planta", "num_incidencia",
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReader_ReadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditoria.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		fullHeader,
		{
			"Paviment, Vorera", "Carrer Major 5", "Carrer Major",
			"Esquerda", "Clot", "",
			2.5, 1.0, "",
			"m", "m2", "",
			"Risc de caiguda", "Reparació",
			"2024-03-15", "101, 102,103", 41.3851, 2.1734,
			"", "", "", 1234,
		},
	})

	streets := NewStreetTable([]Street{{Name: "Major", District: "Centre"}})
	got, err := NewReader(streets, nil).Read(XLSXSource{Path: path})
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := IncidentRecord{
		Title:          "Paviment, Vorera",
		Defects:        []string{"Esquerda", "Clot"},
		Measurements:   []Quantity{{Value: 2.5, Valid: true}, {Value: 1, Valid: true}},
		Units:          []string{"m", "m2"},
		Interferences:  []string{"Risc de caiguda", ""},
		Actions:        []string{"Reparació", ""},
		Location:       "Carrer Major 5",
		Thoroughfare:   "Carrer Major",
		District:       "Centre",
		Date:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		ImageIDs:       []string{"101", "102", "103"},
		Latitude:       41.3851,
		Longitude:      2.1734,
		IncidentNumber: "1234",
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"101", "102"}, got[0].RenderedImageIDs())
}

func TestReader_PreservesRowOrderAndSkipsBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditoria.csv")
	writeFile(t, path, "_title,lloc,lloc_thoroughfare,tipus_de_desperfecte,2_tipus_de_desperfecte,3_tipus_de_desperfecte,1_amidament,2_amidament,3_amidament,1_unitats,2_unitats,3_unitats,data,imatges,_latitude,_longitude\n"+
		"Banc,Parc,Passeig Nou,Trencat,,,1,,,u,,,2024-01-02,7,41.1,2.1\n"+
		",,,,,,,,,,,,,,,\n"+
		"Fanal,Plaça,Plaça Gran,,,,,,,,,,15/02/2024,,41.2,2.2\n")

	got, err := NewReader(nil, nil).Read(CSVSource{Path: path})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Banc", got[0].Title)
	assert.Equal(t, "Fanal", got[1].Title)
	assert.Equal(t, 1, got[0].DefectCount())
	assert.Equal(t, 0, got[1].DefectCount())
	assert.Empty(t, got[1].Measurements)
	assert.Empty(t, got[1].ImageIDs)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), got[1].Date)
	assert.Equal(t, "", got[0].District)
}

func TestReader_DefectSlotsStayAligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditoria.csv")
	writeFile(t, path, "_title,lloc,lloc_thoroughfare,tipus_de_desperfecte,2_tipus_de_desperfecte,3_tipus_de_desperfecte,1_amidament,2_amidament,3_amidament,1_unitats,2_unitats,3_unitats,data,imatges,_latitude,_longitude\n"+
		"\"A, B\",L,T,,Clot,Forat,,\"3,5\",4,,m2,u,2024-01-02,,41,2\n")

	got, err := NewReader(nil, nil).Read(CSVSource{Path: path})
	require.NoError(t, err)
	rec := got[0]
	assert.Equal(t, []string{"Clot", "Forat"}, rec.Defects)
	assert.Equal(t, []Quantity{{Value: 3.5, Valid: true}, {Value: 4, Valid: true}}, rec.Measurements)
	assert.Equal(t, []string{"m2", "u"}, rec.Units)
	assert.Len(t, rec.Interferences, 2)
	assert.Len(t, rec.Actions, 2)
}

func TestReader_MissingColumnFailsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditoria.csv")
	writeFile(t, path, "_title,lloc\nBanc,Parc\n")

	got, err := NewReader(nil, nil).Read(CSVSource{Path: path})
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "_latitude")
}

func TestReader_MalformedValueFailsRun(t *testing.T) {
	const header = "_title,lloc,lloc_thoroughfare,tipus_de_desperfecte,2_tipus_de_desperfecte,3_tipus_de_desperfecte,1_amidament,2_amidament,3_amidament,1_unitats,2_unitats,3_unitats,data,imatges,_latitude,_longitude\n"
	const good = "Banc,Parc,T,,,,,,,,,,2024-01-02,,41,2\n"

	tests := []struct {
		name   string
		row    string
		column string
		msg    string
	}{
		{"word latitude", "Banc,Parc,T,,,,,,,,,,2024-01-02,,nord,2\n", "_latitude", "not a number"},
		{"nan latitude", "Banc,Parc,T,,,,,,,,,,2024-01-02,,NaN,2\n", "_latitude", "not a number"},
		{"infinite longitude", "Banc,Parc,T,,,,,,,,,,2024-01-02,,41,Inf\n", "_longitude", "not a number"},
		{"nan measurement", "Banc,Parc,T,Clot,,,nan,,,m,,,2024-01-02,,41,2\n", "1_amidament", "not a number"},
		{"infinity measurement", "Banc,Parc,T,Clot,,,-infinity,,,m,,,2024-01-02,,41,2\n", "1_amidament", "not a number"},
		{"thousands separator", "Banc,Parc,T,Clot,,,\"1.234,5\",,,m,,,2024-01-02,,41,2\n", "1_amidament", "2,5"},
		{"latitude out of range", "Banc,Parc,T,,,,,,,,,,2024-01-02,,91,2\n", "_latitude", "out of range"},
		{"bad date", "Banc,Parc,T,,,,,,,,,,ahir,,41,2\n", "data", "unrecognised date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "auditoria.csv")
			writeFile(t, path, header+good+tt.row)

			got, err := NewReader(nil, nil).Read(CSVSource{Path: path})
			require.Error(t, err)
			assert.Nil(t, got)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 3, rowErr.Line)
			assert.Equal(t, tt.column, rowErr.Column)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2023-07-14", "2023-07-14 00:00:00", "14/07/2023", "45121"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}

	_, err := ParseDate("ahir")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestSplitImageIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "abc"}, SplitImageIDs(" 1.0, 2 ,, abc"))
	assert.Nil(t, SplitImageIDs(""))
}

func TestOpenTable(t *testing.T) {
	src, err := OpenTable("a.xlsx", "Full1")
	require.NoError(t, err)
	assert.Equal(t, XLSXSource{Path: "a.xlsx", Sheet: "Full1"}, src)

	src, err = OpenTable("a.CSV", "")
	require.NoError(t, err)
	assert.Equal(t, CSVSource{Path: "a.CSV"}, src)

	_, err = OpenTable("a.ods", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
