// Package pipeline runs one report generation: read records, render a
// section per record and write the document atomically.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"informes/internal/config"
	"informes/internal/docx"
	"informes/internal/mapsnap"
	"informes/internal/records"
	"informes/internal/report"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoRecordsPath is returned when Options has no records file.
var ErrNoRecordsPath = errors.New("records path is required")

// Options describes one run.
type Options struct {
	RecordsPath  string
	Sheet        string
	StreetsPath  string
	StreetsSheet string
	OutputPath   string

	Columns       records.Columns
	StreetColumns records.StreetColumns
	Report        report.Options
}

// OptionsFromConfig builds run options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RecordsPath:   cfg.Inputs.Records,
		Sheet:         cfg.Inputs.Sheet,
		StreetsPath:   cfg.Inputs.Streets,
		StreetsSheet:  cfg.Inputs.StreetsSheet,
		OutputPath:    cfg.GetOutput(),
		Columns:       cfg.Columns,
		StreetColumns: cfg.StreetColumns,
		Report:        cfg.ReportOptions(),
	}
}

// Deps are the collaborators a run uses. A nil Maps leaves the location
// cells empty. ReaderLogger and RenderLogger default to children of Logger.
type Deps struct {
	Maps         mapsnap.Renderer
	Logger       *zap.Logger
	ReaderLogger *zap.Logger
	RenderLogger *zap.Logger
}

func (d Deps) logger(l *zap.Logger, name string, runID zap.Field) *zap.Logger {
	if l != nil {
		return l.With(runID)
	}
	return d.Logger.Named(name).With(runID)
}

// Result reports what a run produced.
type Result struct {
	RunID    string
	Records  int
	Streets  int
	Sections []report.Section
	Output   string
	Bytes    int
	Duration time.Duration
}

// Run reads the records, renders every one in source order and writes the
// document. Nothing is written unless every record rendered.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	start := time.Now()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	res := &Result{RunID: uuid.NewString(), Output: opts.OutputPath}
	if res.Output == "" {
		res.Output = config.DefaultOutput
	}
	runID := zap.String("run_id", res.RunID)
	logger := deps.Logger.With(runID)

	if opts.RecordsPath == "" {
		return nil, ErrNoRecordsPath
	}
	cols := opts.Columns
	if cols.Title == "" {
		cols = records.DefaultColumns()
	}
	streetCols := opts.StreetColumns
	if streetCols.Street == "" {
		streetCols = records.DefaultStreetColumns()
	}

	var streets *records.StreetTable
	if opts.StreetsPath != "" {
		src, err := records.OpenTable(opts.StreetsPath, opts.StreetsSheet)
		if err != nil {
			return nil, fmt.Errorf("open street table: %w", err)
		}
		streets, err = records.LoadStreetTable(src, streetCols)
		if err != nil {
			return nil, fmt.Errorf("load street table %s: %w", opts.StreetsPath, err)
		}
		res.Streets = streets.Len()
		logger.Debug("street table loaded", zap.Int("streets", res.Streets))
	}

	src, err := records.OpenTable(opts.RecordsPath, opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	reader := records.NewReader(streets, deps.logger(deps.ReaderLogger, "reader", runID))
	reader.Columns = cols
	recs, err := reader.Read(src)
	if err != nil {
		return nil, fmt.Errorf("read records %s: %w", opts.RecordsPath, err)
	}
	res.Records = len(recs)
	logger.Info("records loaded", zap.Int("records", len(recs)), zap.String("path", opts.RecordsPath))

	doc := docx.New()
	renderer := report.NewRenderer(opts.Report, deps.Maps, deps.logger(deps.RenderLogger, "render", runID))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec, err := renderer.RenderRecord(ctx, doc, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i+1, rec.IncidentNumber, err)
		}
		res.Sections = append(res.Sections, sec)
	}
	renderer.Finish(doc)

	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	if err := WriteFileAtomic(res.Output, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", res.Output, err)
	}
	res.Bytes = len(data)
	res.Duration = time.Since(start)

	logger.Info("document written",
		zap.String("output", res.Output),
		zap.Int("sections", len(res.Sections)),
		zap.Int("bytes", res.Bytes),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}
