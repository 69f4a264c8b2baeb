package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/vmap/internal/config"
)

// newTestServer serves a scene with the slab at the origin, the pool at
// x=100 and a pool object in phase 2 at x=200.
func newTestServer(t *testing.T, modify func(*config.Config)) (*server, *scene) {
	t.Helper()
	cfg := config.Default()
	cfg.Data.VMapsDir = createTestModels(t)
	cfg.Data.Manifest = "manifest"
	cfg.Scene.Spawns = []config.SpawnConfig{
		{Model: "slab.vmo", ID: 1},
		{Model: "pool.vmo", ID: 2, Position: [3]float32{100, 0, 0}},
		{Model: "missing.vmo", ID: 3},
	}
	cfg.Scene.Objects = []config.ObjectConfig{
		{GUID: 1, DisplayID: 7, Position: [3]float32{200, 0, 0}, PhaseMask: 2},
		{GUID: 2, DisplayID: 999},
	}
	if modify != nil {
		modify(cfg)
	}

	log := zaptest.NewLogger(t)
	sc := loadScene(cfg, log)
	t.Cleanup(sc.release)
	return newServer(cfg, sc.tree, sc.cache, log), sc
}

func get(t *testing.T, s *server, url string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if v != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec
}

func TestServeLOS(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var resp losResponse
	rec := get(t, s, "/v1/los?x1=5.3&y1=5.4&z1=5&x2=5.3&y2=5.4&z2=-5", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Visible)

	rec = get(t, s, "/v1/los?x1=5.3&y1=5.4&z1=5&x2=5.3&y2=5.4&z2=3", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Visible)
}

func TestServeLOSDisabled(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Collision.EnableLineOfSight = false
	})

	var resp losResponse
	get(t, s, "/v1/los?x1=5.3&y1=5.4&z1=5&x2=5.3&y2=5.4&z2=-5", &resp)
	assert.True(t, resp.Visible)
}

func TestServeHeight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var resp heightResponse
	get(t, s, "/v1/height?x=5.3&y=5.4&z=5", &resp)
	require.NotNil(t, resp.Height)
	assert.InDelta(t, 1, *resp.Height, 1e-3)

	resp = heightResponse{}
	get(t, s, "/v1/height?x=5.3&y=5.4&z=5&max=2", &resp)
	assert.Nil(t, resp.Height)

	rec := get(t, s, "/v1/height?x=50&y=50&z=5", nil)
	assert.JSONEq(t, `{"height": null}`, rec.Body.String())
}

func TestServeArea(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var resp areaResponse
	rec := get(t, s, "/v1/area?x=105.3&y=5.4&z=4", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, resp.GroundZ, 1e-3)
	assert.Equal(t, uint32(2), resp.RootID)
	assert.Equal(t, uint32(20), resp.GroupID)
	assert.Equal(t, uint32(0x8), resp.MogpFlags)

	rec = get(t, s, "/v1/area?x=500&y=5.4&z=4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeObjectPhase(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/v1/area?x=205.3&y=5.4&z=4&phase=1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/v1/area?x=205.3&y=5.4&z=4&phase=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/v1/area?x=205.3&y=5.4&z=4", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeLiquid(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var resp liquidResponse
	rec := get(t, s, "/v1/liquid?x=105.3&y=5.4&z=4", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.5, resp.Level, 1e-3)
	assert.Equal(t, uint32(4), resp.Type)
	assert.InDelta(t, 1, resp.GroundZ, 1e-3)

	rec = get(t, s, "/v1/liquid?x=5.3&y=5.4&z=0.5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeModels(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var resp modelsResponse
	rec := get(t, s, "/v1/models", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, resp.Placements)
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "pool.vmo", resp.Models[0].Name)
	assert.Equal(t, 2, resp.Models[0].Refs)
	assert.Equal(t, "slab.vmo", resp.Models[1].Name)
	assert.Equal(t, 1, resp.Models[1].Refs)
}

func TestServeBadRequest(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, url := range []string{
		"/v1/height?x=1&y=2",
		"/v1/height?x=1&y=2&z=abc",
		"/v1/los?x1=0&y1=0&z1=0&x2=1&y2=1&z2=1&phase=-1",
		"/v1/area?x=1&y=2&z=3&phase=x",
		"/v1/height?x=NaN&y=2&z=3",
		"/v1/los?x1=0&y1=0&z1=0&x2=Inf&y2=1&z2=1",
	} {
		rec := get(t, s, url, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
		assert.Contains(t, rec.Body.String(), `"error"`, url)
	}
}

func TestServeRequestID(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/v1/models", nil)
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestSceneRelease(t *testing.T) {
	_, sc := newTestServer(t, nil)

	sc.release()
	assert.Equal(t, 0, sc.cache.Len())
	assert.Equal(t, 0, sc.tree.Size())
}
