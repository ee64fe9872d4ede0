package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"informes/internal/config"
	"informes/internal/mapsnap"
	"informes/internal/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const recordsHeader = "_title,lloc,lloc_thoroughfare," +
	"tipus_de_desperfecte,2_tipus_de_desperfecte,3_tipus_de_desperfecte," +
	"1_amidament,2_amidament,3_amidament,1_unitats,2_unitats,3_unitats," +
	"data,imatges,_latitude,_longitude,num_incidencia\n"

const recordsCSV = recordsHeader +
	`"Paviment, Vorera",Carrer Major 5,Carrer Major,Esquerda,Clot,,2.5,1,,m,m2,,2024-03-15,"101,102",41.3851,2.1734,1` + "\n" +
	`Fanal,Plaça Nova 1,Plaça Nova,Trencat,,,1,,,u,,,16/03/2024,,41.3900,2.1700,2` + "\n" +
	`"Banc, Paperera, Senyal",Rambla 10,La Rambla,Pintades,Cremada,Doblegat,3,1,1,u,u,u,2024-03-17,103,41.3800,2.1750,3` + "\n"

func setup(t *testing.T) (Options, string) {
	t.Helper()
	dir := t.TempDir()
	recs := filepath.Join(dir, "incidencies.csv")
	streets := filepath.Join(dir, "carrers.csv")
	require.NoError(t, os.WriteFile(recs, []byte(recordsCSV), 0o644))
	require.NoError(t, os.WriteFile(streets, []byte("NOM_VIA,BARRI\nMajor,Centre\nRambla,Ciutat Vella\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Inputs.Records = recs
	cfg.Inputs.Streets = streets
	cfg.Inputs.Photos = filepath.Join(dir, "fotos")
	cfg.Inputs.Output = filepath.Join(dir, "out", "informes_word.docx")
	return OptionsFromConfig(cfg), dir
}

func fakeMaps(t *testing.T) (mapsnap.Renderer, *int32) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 80, 60))))
	var calls int32
	return mapsnap.RendererFunc(func(ctx context.Context, at mapsnap.Coordinate) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return buf.Bytes(), nil
	}), &calls
}

func documentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatal("word/document.xml not found")
	return ""
}

func TestRun_OneSectionPerRecord(t *testing.T) {
	opts, _ := setup(t)
	maps, calls := fakeMaps(t)

	res, err := Run(context.Background(), opts, Deps{Maps: maps})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Streets)
	require.Len(t, res.Sections, 3)
	assert.Equal(t, int32(3), *calls)
	assert.Equal(t, []int{2, 1, 3}, []int{res.Sections[0].Defects, res.Sections[1].Defects, res.Sections[2].Defects})
	assert.NotEmpty(t, res.RunID)
	assert.Positive(t, res.Bytes)
	assert.FileExists(t, res.Output)

	xml := documentXML(t, res.Output)
	assert.Equal(t, 6, strings.Count(xml, "<w:tbl>"))
	assert.Contains(t, xml, "Paviment Esquerda, Vorera Clot a Carrer Major")
	assert.Contains(t, xml, "Ciutat Vella")
	assert.Contains(t, xml, "INCIDÈNCIA Nº 3")
}

func TestRun_DeterministicOutput(t *testing.T) {
	opts, _ := setup(t)
	maps, _ := fakeMaps(t)

	_, err := Run(context.Background(), opts, Deps{Maps: maps})
	require.NoError(t, err)
	first, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)

	_, err = Run(context.Background(), opts, Deps{Maps: maps})
	require.NoError(t, err)
	second, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "reruns must produce identical bytes")
}

func TestRun_SnapshotFailureWritesNothing(t *testing.T) {
	opts, _ := setup(t)
	boom := errors.New("chromium exited")
	maps := mapsnap.RendererFunc(func(context.Context, mapsnap.Coordinate) ([]byte, error) {
		return nil, boom
	})

	_, err := Run(context.Background(), opts, Deps{Maps: maps})
	require.ErrorIs(t, err, boom)
	assert.NoFileExists(t, opts.OutputPath)
}

func TestRun_FailureKeepsPreviousOutput(t *testing.T) {
	opts, _ := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755))
	require.NoError(t, os.WriteFile(opts.OutputPath, []byte("previous"), 0o644))

	require.NoError(t, os.WriteFile(opts.RecordsPath, []byte(recordsHeader+
		`Fanal,Plaça Nova 1,Plaça Nova,Trencat,,,molt,,,u,,,2024-03-16,,41.39,2.17,2`+"\n"), 0o644))

	_, err := Run(context.Background(), opts, Deps{})
	var rowErr *records.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Line)

	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(filepath.Dir(opts.OutputPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestRun_MissingColumn(t *testing.T) {
	opts, _ := setup(t)
	require.NoError(t, os.WriteFile(opts.RecordsPath, []byte("_title,lloc\nA,B\n"), 0o644))

	_, err := Run(context.Background(), opts, Deps{})
	require.ErrorIs(t, err, records.ErrMissingColumn)
	assert.NoFileExists(t, opts.OutputPath)
}

func TestRun_NoRecordsPath(t *testing.T) {
	_, err := Run(context.Background(), Options{}, Deps{})
	assert.ErrorIs(t, err, ErrNoRecordsPath)
}

func TestRun_Cancelled(t *testing.T) {
	opts, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, opts, Deps{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, opts.OutputPath)
}

func TestRun_WithoutStreetTable(t *testing.T) {
	opts, _ := setup(t)
	opts.StreetsPath = ""

	res, err := Run(context.Background(), opts, Deps{})
	require.NoError(t, err)
	assert.Zero(t, res.Streets)
	assert.NotContains(t, documentXML(t, res.Output), "Ciutat Vella")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b.docx")

	require.NoError(t, WriteFileAtomic(target, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(target, []byte("two"), 0o644))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	assert.Error(t, WriteFileAtomic(dir, []byte("x"), 0o644))
	assert.Error(t, WriteFileAtomic("  ", []byte("x"), 0o644))

	link := filepath.Join(dir, "link.docx")
	require.NoError(t, os.Symlink(target, link))
	assert.ErrorContains(t, WriteFileAtomic(link, []byte("x"), 0o644), "symlinked")

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no scratch files left behind")
	assert.Equal(t, "b.docx", entries[0].Name())

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestResultMarkdown(t *testing.T) {
	opts, _ := setup(t)
	maps, _ := fakeMaps(t)
	res, err := Run(context.Background(), opts, Deps{Maps: maps})
	require.NoError(t, err)

	md := res.Markdown()
	assert.Contains(t, md, "# Informe generat")
	assert.Contains(t, md, "**Incidències**: 3")
	assert.Contains(t, md, "| 3 | 3 | 0 | no | - | 1 KB |")
}
