package store

import (
	"fmt"
	"io"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gridforma/massing/core"
	"github.com/gridforma/massing/model"
)

// rtreego rejects degenerate rectangles, so point-like footprints get a
// tiny extent instead.
const minExtent = 1e-9

// StoreMetricsRecorder receives store gauge updates.
type StoreMetricsRecorder interface {
	SetFeatureCount(n int)
}

// entry adapts one feature to rtreego's Spatial interface.
type entry struct {
	f    *geojson.Feature
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// FeatureStore holds the active feature set together with a spatial index
// over the footprints. All methods are safe for concurrent use.
type FeatureStore struct {
	mu       sync.RWMutex
	features []*geojson.Feature
	tree     *rtreego.Rtree
	summary  core.Summary
	loaded   bool

	subscribers map[int]func()
	nextSubID   int

	metrics StoreMetricsRecorder
}

// Option customises FeatureStore construction.
type Option func(*FeatureStore)

// WithMetricsRecorder attaches an optional recorder for store gauges.
func WithMetricsRecorder(m StoreMetricsRecorder) Option {
	return func(s *FeatureStore) {
		s.metrics = m
	}
}

// New returns an empty FeatureStore.
func New(opts ...Option) *FeatureStore {
	s := &FeatureStore{
		tree:        rtreego.NewTree(2, 25, 50),
		subscribers: make(map[int]func()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the store contents with the FeatureCollection read from r.
func (s *FeatureStore) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read feature collection: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("decode feature collection: %w", err)
	}
	s.ReplaceAll(fc.Features)
	return nil
}

// ReplaceAll swaps in a new feature set atomically and notifies subscribers.
// Features without usable geometry are kept listable but not indexed.
func (s *FeatureStore) ReplaceAll(features []*geojson.Feature) {
	tree := rtreego.NewTree(2, 25, 50)
	heights := make([]model.HeightResult, 0, len(features))
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if rect, err := boundRect(f.Geometry.Bound()); err == nil {
			tree.Insert(&entry{f: f, rect: rect})
		}
		heights = append(heights, model.HeightResult{Height: f.Properties.MustFloat64("height", 0)})
	}
	summary := core.Summarize(heights)

	s.mu.Lock()
	s.features = features
	s.tree = tree
	s.summary = summary
	s.loaded = true
	subs := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetFeatureCount(len(features))
	}
	// Notify outside the lock so callbacks may call back into the store.
	for _, fn := range subs {
		fn()
	}
}

// Search returns the features whose footprints intersect b.
func (s *FeatureStore) Search(b orb.Bound) []*geojson.Feature {
	rect, err := boundRect(b)
	if err != nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.tree.SearchIntersect(rect)
	out := make([]*geojson.Feature, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.(*entry).f)
	}
	return out
}

// All returns a copy of the current feature list.
func (s *FeatureStore) All() []*geojson.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*geojson.Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Len reports the number of stored features.
func (s *FeatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Ready reports whether a dataset has been loaded at least once. An empty
// dataset still counts as loaded.
func (s *FeatureStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Summary reports height aggregates over the stored features.
func (s *FeatureStore) Summary() core.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Subscribe registers fn to run after every ReplaceAll. The returned
// function removes the subscription.
func (s *FeatureStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
}
