package core

import (
	"context"
	"fmt"

	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/model"
	"github.com/paulmach/orb/geojson"
)

// RecordSource yields decoded multipatch records from one input file,
// iterator style: Next advances, Record returns the current record, Err
// reports a decode failure once Next returns false.
type RecordSource interface {
	Next() bool
	Record() *model.MultipatchRecord
	Err() error
	Close() error
}

// SourceOpener opens a record source for an input path.
type SourceOpener func(path string) (RecordSource, error)

// FailedFile records one input file that could not be processed.
type FailedFile struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// BatchResult summarises a batch run.
type BatchResult struct {
	FilesProcessed int          `json:"files_processed"`
	FilesFailed    []FailedFile `json:"files_failed,omitempty"`
	RecordsIn      int          `json:"records_in"`
	RecordsOut     int          `json:"records_out"`
	RecordsDropped int          `json:"records_dropped"`
	PartsSkipped   int          `json:"parts_skipped"`
	PartsFiltered  int          `json:"parts_filtered"`
	Summary        Summary      `json:"summary"`
}

// BatchConverter runs the record converter across input files and merges
// everything into one feature collection. A file that fails to open or
// decode is recorded and skipped; it contributes nothing to the output.
type BatchConverter struct {
	conv *Converter
	open SourceOpener
	log  logging.Logger
}

// NewBatchConverter wires a converter to a source opener.
func NewBatchConverter(conv *Converter, open SourceOpener, log logging.Logger) *BatchConverter {
	if log == nil {
		log = logging.Noop()
	}
	return &BatchConverter{conv: conv, open: open, log: log}
}

// Run converts every path and returns the merged collection plus run totals.
// Per-file failures do not fail the batch.
func (b *BatchConverter) Run(ctx context.Context, paths []string) (*geojson.FeatureCollection, *BatchResult, error) {
	if b.conv == nil || b.open == nil {
		return nil, nil, fmt.Errorf("batch converter is not fully wired")
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no input files")
	}

	fc := geojson.NewFeatureCollection()
	res := &BatchResult{}
	var heights []model.HeightResult

	for _, path := range paths {
		out, err := b.runFile(ctx, path)
		if err != nil {
			res.FilesFailed = append(res.FilesFailed, FailedFile{Path: path, Err: err.Error()})
			if b.conv.metrics != nil {
				b.conv.metrics.IncFileFailed()
			}
			b.log.Warn(ctx, "skipping input file",
				logging.String("path", path),
				logging.String("error", err.Error()))
			continue
		}

		res.FilesProcessed++
		res.RecordsIn += out.recordsIn
		res.RecordsOut += out.recordsOut
		res.RecordsDropped += out.recordsDropped
		res.PartsSkipped += out.partsSkipped
		res.PartsFiltered += out.partsFiltered
		for _, f := range out.features {
			fc.Append(f)
		}
		heights = append(heights, out.heights...)
	}

	res.Summary = Summarize(heights)
	return fc, res, nil
}

type fileOutput struct {
	features []*geojson.Feature
	heights  []model.HeightResult

	recordsIn      int
	recordsOut     int
	recordsDropped int
	partsSkipped   int
	partsFiltered  int
}

func (b *BatchConverter) runFile(ctx context.Context, path string) (*fileOutput, error) {
	src, err := b.open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out := &fileOutput{}
	for src.Next() {
		rec := src.Record()
		out.recordsIn++

		rr, err := b.conv.ConvertRecord(ctx, rec)
		if err != nil {
			out.recordsDropped++
			b.log.Debug(ctx, "record dropped",
				logging.String("path", path),
				logging.String("building_id", rec.BuildingID),
				logging.String("error", err.Error()))
			continue
		}

		out.recordsOut++
		out.partsSkipped += rr.PartsSkipped
		out.partsFiltered += rr.PartsFiltered
		out.features = append(out.features, rr.Features...)
		out.heights = append(out.heights, rr.Heights...)
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
