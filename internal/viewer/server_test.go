package viewer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gridforma/massing/store"
)

func seededStore() *store.FeatureStore {
	near := geojson.NewFeature(orb.Polygon{orb.Ring{
		{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}, {0, 0},
	}})
	near.ID = "near/0"
	near.Properties = geojson.Properties{"building_id": "near", "height": 4.6}

	far := geojson.NewFeature(orb.Polygon{orb.Ring{
		{10, 10}, {10.001, 10}, {10.001, 10.001}, {10, 10.001}, {10, 10},
	}})
	far.ID = "far/0"
	far.Properties = geojson.Properties{"building_id": "far", "height": 30.0}

	st := store.New()
	st.ReplaceAll([]*geojson.Feature{near, far})
	return st
}

func getBody(t *testing.T, handler http.Handler, url string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return rr, body
}

func TestFeatures_ReturnsAll(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr, body := getBody(t, srv.Routes(), "/api/features")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}
}

func TestFeatures_FiltersByBBox(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr, body := getBody(t, srv.Routes(), "/api/features?bbox=-0.5,-0.5,0.5,0.5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if got := fc.Features[0].Properties.MustString("building_id", ""); got != "near" {
		t.Errorf("building_id = %q, want near", got)
	}
}

func TestFeatures_UnloadedStoreReturns503(t *testing.T) {
	srv := NewServer(store.New(), nil, nil, nil)
	routes := srv.Routes()

	for _, url := range []string{"/api/features", "/api/summary"} {
		rr, body := getBody(t, routes, url)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", url, rr.Code)
		}
		if !strings.Contains(string(body), "no dataset") {
			t.Errorf("%s body = %s, want a no-dataset error", url, body)
		}
	}
}

func TestFeatures_RejectsMalformedBBox(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	for _, bbox := range []string{"nope", "1,2,3", "a,b,c,d", "2,2,1,3"} {
		rr, body := getBody(t, srv.Routes(), "/api/features?bbox="+bbox)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("bbox %q: status = %d, want 400", bbox, rr.Code)
			continue
		}
		var resp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
			t.Errorf("bbox %q: error body = %q", bbox, body)
		}
	}
}

func TestFeatures_MethodNotAllowed(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/features", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}

func TestSummary_ReportsStoreAggregates(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr, body := getBody(t, srv.Routes(), "/api/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Features != 2 || resp.Summary.Count != 2 {
		t.Errorf("resp = %+v, want 2 features", resp)
	}
	if resp.Summary.MaxHeight != 30.0 {
		t.Errorf("MaxHeight = %v, want 30", resp.Summary.MaxHeight)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr, body := getBody(t, srv.Routes(), "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %q", body)
	}
}

func TestIndex_ServesViewerPage(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr, body := getBody(t, srv.Routes(), "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(string(body), "maplibre-gl") {
		t.Errorf("index page does not reference the map library")
	}
	if !strings.Contains(string(body), "fill-extrusion") {
		t.Errorf("index page does not configure the extrusion layer")
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := NewServer(seededStore(), nil, nil, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set(requestIDHeader, "req-42")
	srv.Routes().ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got != "req-42" {
		t.Errorf("echoed request id = %q, want req-42", got)
	}

	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if rr.Header().Get(requestIDHeader) == "" {
		t.Errorf("missing generated request id header")
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := NewServer(seededStore(), hub, nil, nil)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	if !waitFor(func() bool { return hub.Len() == 1 }) {
		t.Fatalf("hub never registered the client")
	}

	hub.Broadcast(context.Background(), "reload", nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.Type != "reload" {
		t.Errorf("message type = %q, want reload", msg.Type)
	}

	conn.Close()
	if !waitFor(func() bool { return hub.Len() == 0 }) {
		t.Errorf("hub did not drop the closed client")
	}
}
