package viewer

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gridforma/massing/core"
	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/internal/observability"
	"github.com/gridforma/massing/store"
)

//go:embed assets
var assets embed.FS

// Server exposes the feature store over HTTP for the browser viewer.
type Server struct {
	store   *store.FeatureStore
	hub     *Hub
	log     logging.Logger
	metrics *observability.ViewerCollector
}

// NewServer wires the viewer's HTTP surface. hub and metrics may be nil.
func NewServer(st *store.FeatureStore, hub *Hub, log logging.Logger, metrics *observability.ViewerCollector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		store:   st,
		hub:     hub,
		log:     log,
		metrics: metrics,
	}
}

// Routes assembles the viewer mux.
func (s *Server) Routes() http.Handler {
	sub, _ := fs.Sub(assets, "assets")

	mux := http.NewServeMux()
	mux.Handle("/", s.route("/", http.FileServer(http.FS(sub))))
	mux.Handle("/api/features", s.route("/api/features", http.HandlerFunc(s.handleFeatures)))
	mux.Handle("/api/summary", s.route("/api/summary", http.HandlerFunc(s.handleSummary)))
	if s.hub != nil {
		mux.Handle("/ws", s.route("/ws", s.hub))
	}
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// route stacks the standard middleware for one endpoint.
func (s *Server) route(route string, h http.Handler) http.Handler {
	h = withRequestContext(s.log, route, h)
	if s.metrics != nil {
		h = s.metrics.InstrumentHandler(route, h)
	}
	return h
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.requestLog(ctx)

	if r.Method != http.MethodGet {
		writeError(ctx, w, log, fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method))
		return
	}
	if !s.store.Ready() {
		writeError(ctx, w, log, ErrNoDataset)
		return
	}

	var features []*geojson.Feature
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		bound, err := parseBBox(raw)
		if err != nil {
			writeError(ctx, w, log, err)
			return
		}
		features = s.store.Search(bound)
	} else {
		features = s.store.All()
	}
	if features == nil {
		features = []*geojson.Feature{}
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features
	writeJSON(ctx, w, log, fc)
}

type summaryResponse struct {
	Features int          `json:"features"`
	Summary  core.Summary `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.requestLog(ctx)

	if r.Method != http.MethodGet {
		writeError(ctx, w, log, fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method))
		return
	}
	if !s.store.Ready() {
		writeError(ctx, w, log, ErrNoDataset)
		return
	}

	writeJSON(ctx, w, log, summaryResponse{
		Features: s.store.Len(),
		Summary:  s.store.Summary(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (s *Server) requestLog(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// parseBBox parses "minLon,minLat,maxLon,maxLat" into a bound.
func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("%w: bbox wants minLon,minLat,maxLon,maxLat", ErrBadRequest)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return orb.Bound{}, fmt.Errorf("%w: bbox coordinate %q", ErrBadRequest, p)
		}
		vals[i] = v
	}
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return orb.Bound{}, fmt.Errorf("%w: bbox min exceeds max", ErrBadRequest)
	}
	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}
