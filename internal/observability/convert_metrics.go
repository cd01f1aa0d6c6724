package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConvertCollector exposes conversion-pipeline Prometheus metrics.
type ConvertCollector struct {
	gatherer prometheus.Gatherer

	RecordsProcessed prometheus.Counter
	RecordsDropped   prometheus.Counter
	PartsSkipped     *prometheus.CounterVec
	FilesFailed      prometheus.Counter
	PartHeights      prometheus.Histogram
}

// NewConvertCollector registers conversion metrics against the provided registerer.
func NewConvertCollector(reg prometheus.Registerer) (*ConvertCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "convert_records_processed_total",
		Help: "Cumulative number of multipatch records handed to the converter.",
	})
	processed, err := registerCounter(reg, processed, "convert_records_processed_total")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "convert_records_dropped_total",
		Help: "Cumulative number of records dropped for missing attributes or lack of valid parts.",
	})
	dropped, err = registerCounter(reg, dropped, "convert_records_dropped_total")
	if err != nil {
		return nil, err
	}

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "convert_parts_skipped_total",
		Help: "Cumulative number of parts skipped during conversion, labeled by reason.",
	}, []string{"reason"})
	skipped, err = registerCounterVec(reg, skipped, "convert_parts_skipped_total")
	if err != nil {
		return nil, err
	}

	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "convert_files_failed_total",
		Help: "Cumulative number of input shapefiles skipped because they could not be read.",
	})
	failed, err = registerCounter(reg, failed, "convert_files_failed_total")
	if err != nil {
		return nil, err
	}

	heights := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "convert_part_height_meters",
		Help:    "Distribution of extracted part heights in output units.",
		Buckets: []float64{2, 5, 10, 20, 50, 100, 200, 500},
	})
	heights, err = registerHistogram(reg, heights, "convert_part_height_meters")
	if err != nil {
		return nil, err
	}

	return &ConvertCollector{
		gatherer:         gatherer,
		RecordsProcessed: processed,
		RecordsDropped:   dropped,
		PartsSkipped:     skipped,
		FilesFailed:      failed,
		PartHeights:      heights,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ConvertCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler returns an HTTP handler exposing the collector's metrics.
func (c *ConvertCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// IncRecordProcessed increments the processed-record counter.
func (c *ConvertCollector) IncRecordProcessed() {
	if c == nil || c.RecordsProcessed == nil {
		return
	}
	c.RecordsProcessed.Inc()
}

// IncRecordDropped increments the dropped-record counter.
func (c *ConvertCollector) IncRecordDropped() {
	if c == nil || c.RecordsDropped == nil {
		return
	}
	c.RecordsDropped.Inc()
}

// IncPartSkipped increments the skipped-part counter for the given reason.
func (c *ConvertCollector) IncPartSkipped(reason string) {
	if c == nil || c.PartsSkipped == nil {
		return
	}
	c.PartsSkipped.WithLabelValues(reason).Inc()
}

// IncFileFailed increments the failed-file counter.
func (c *ConvertCollector) IncFileFailed() {
	if c == nil || c.FilesFailed == nil {
		return
	}
	c.FilesFailed.Inc()
}

// ObservePartHeight records one extracted part height.
func (c *ConvertCollector) ObservePartHeight(h float64) {
	if c == nil || c.PartHeights == nil {
		return
	}
	c.PartHeights.Observe(h)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
