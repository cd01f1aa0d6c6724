package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gridforma/massing/core"
	"github.com/gridforma/massing/internal/export"
	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/internal/observability"
	"github.com/gridforma/massing/internal/proj"
	"github.com/gridforma/massing/internal/shapefile"
	"github.com/gridforma/massing/model"
)

func main() {
	in := flag.String("in", "", "Input multipatch shapefile, or a directory of them")
	out := flag.String("out", "massing.geojson", "Output path")
	format := flag.String("format", "geojson", "Output format: geojson or shp")
	relative := flag.Bool("relative", false, "Emit base/top heights relative to the ground elevation attribute")
	minHeight := flag.Float64("min-height", 0, "Drop parts below this height in output units")
	srcEPSG := flag.Int("src-epsg", 4326, "EPSG code of the input coordinate reference system")
	unitsIn := flag.String("units-in", "m", "Vertical units of the input: m or ft")
	unitsOut := flag.String("units-out", "m", "Vertical units of the output: m or ft")
	idAttrs := flag.String("id-attrs", "", "Comma-separated DBF columns tried for the building ID")
	groundAttrs := flag.String("ground-attrs", "", "Comma-separated DBF columns tried for the ground elevation")
	missingGround := flag.String("missing-ground", "zero", "Policy for records without a ground attribute: zero or skip")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables the endpoint")
	summaryJSON := flag.String("summary-json", "", "Optional path for a JSON run report, - for stdout")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *in == "" {
		log.Error(ctx, "missing required -in flag")
		flag.Usage()
		os.Exit(2)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewConvertCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	opts, err := convertOptions(*relative, *minHeight, *unitsIn, *unitsOut, *missingGround)
	if err != nil {
		log.Error(ctx, "invalid conversion flags", logging.String("error", err.Error()))
		os.Exit(2)
	}

	transformer, err := proj.NewTransformer(*srcEPSG)
	if err != nil {
		log.Error(ctx, "cannot build reprojection",
			logging.Int("epsg", *srcEPSG),
			logging.String("error", err.Error()))
		os.Exit(2)
	}

	paths, err := resolveInputs(*in)
	if err != nil {
		log.Error(ctx, "cannot resolve inputs", logging.String("in", *in), logging.String("error", err.Error()))
		os.Exit(2)
	}
	log.Info(ctx, "starting conversion",
		logging.Int("files", len(paths)),
		logging.String("mode", opts.Mode.String()),
		logging.String("out", *out))

	sourceOpts := shapefile.Options{
		IDAttributes:     splitList(*idAttrs),
		GroundAttributes: splitList(*groundAttrs),
	}
	opener := func(path string) (core.RecordSource, error) {
		src, err := shapefile.Open(path, sourceOpts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	converter := core.NewConverter(transformer, opts, log, core.WithMetricsRecorder(collector))
	batch := core.NewBatchConverter(converter, opener, log)

	runCtx, span := observability.StartSpan(ctx, "convert/run", attribute.Int("files", len(paths)))
	fc, res, err := batch.Run(runCtx, paths)
	span.End()
	if err != nil {
		log.Error(ctx, "conversion failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeOutput(*format, *out, fc); err != nil {
		log.Error(ctx, "writing output failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info(ctx, "conversion complete",
		logging.Int("files_processed", res.FilesProcessed),
		logging.Int("files_failed", len(res.FilesFailed)),
		logging.Int("records_in", res.RecordsIn),
		logging.Int("records_out", res.RecordsOut),
		logging.Int("records_dropped", res.RecordsDropped),
		logging.Int("parts_skipped", res.PartsSkipped),
		logging.Int("parts_filtered", res.PartsFiltered),
		logging.Int("parts_out", res.Summary.Count),
		logging.Float64("mean_height", res.Summary.MeanHeight),
		logging.Float64("max_height", res.Summary.MaxHeight))

	if *summaryJSON != "" {
		if err := writeSummary(*summaryJSON, res); err != nil {
			log.Warn(ctx, "writing summary report failed", logging.String("error", err.Error()))
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	if res.FilesProcessed == 0 {
		log.Error(ctx, "no input file could be read")
		os.Exit(1)
	}
}

func convertOptions(relative bool, minHeight float64, unitsIn, unitsOut, missingGround string) (core.ConvertOptions, error) {
	uin, err := model.UnitFromString(unitsIn)
	if err != nil {
		return core.ConvertOptions{}, err
	}
	uout, err := model.UnitFromString(unitsOut)
	if err != nil {
		return core.ConvertOptions{}, err
	}
	policy, err := core.MissingGroundPolicyFromString(missingGround)
	if err != nil {
		return core.ConvertOptions{}, err
	}

	mode := model.HeightAbsolute
	if relative {
		mode = model.HeightRelative
	}
	return core.ConvertOptions{
		Mode:          mode,
		MinHeight:     minHeight,
		UnitsIn:       uin,
		UnitsOut:      uout,
		MissingGround: policy,
	}, nil
}

// resolveInputs expands a file or directory argument into the sorted list of
// shapefiles to convert.
func resolveInputs(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(in), ".shp") {
			return nil, fmt.Errorf("%s is not a .shp file", in)
		}
		return []string{in}, nil
	}

	paths, err := filepath.Glob(filepath.Join(in, "*.shp"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .shp files in %s", in)
	}
	return paths, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeOutput(format, path string, fc *geojson.FeatureCollection) error {
	switch strings.ToLower(format) {
	case "geojson", "json":
		return export.WriteGeoJSONFile(path, fc)
	case "shp", "shapefile":
		return export.WriteShapefile(path, fc)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeSummary(path string, res *core.BatchResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func serveMetrics(addr string, collector *observability.ConvertCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
