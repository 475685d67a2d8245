package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brain2-lod/internal/application/engine"
	"brain2-lod/internal/config"
	"brain2-lod/internal/domain/lod"
	"brain2-lod/internal/infrastructure/memory"
	"brain2-lod/internal/infrastructure/observability"
	"brain2-lod/internal/infrastructure/render"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	cfg := config.Default()
	cfg.DebounceTimeMs = 20
	cfg.MinNodesForActivation = 100
	cfg.SizeThresholds = config.SizeThresholds{Small: 10, Medium: 20, Large: 50}

	p := memory.NewProvider()
	memory.Generate(p, 1000, 1500, 1)
	vp := memory.NewViewport(0.3)

	eng := engine.New(cfg, p, vp, render.NewStyleAdapter(), zap.NewNop())
	eng.Start()
	t.Cleanup(eng.Stop)

	h := NewHandler(eng, observability.NewCollector("test_lod"), nil, zap.NewNop())
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, eng
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var st engine.Status
	code := getJSON(t, srv.URL+"/api/lod/status", &st)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, engine.StateDisabled, st.State)
	assert.Zero(t, st.NodeCount, "a disabled engine holds no snapshot")
}

func TestEnableDisableEndpoints(t *testing.T) {
	srv, eng := newTestServer(t)

	var st engine.Status
	code := postJSON(t, srv.URL+"/api/lod/enable", &st)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, engine.StateActive, st.State)

	require.Eventually(t, func() bool {
		s := eng.Status()
		return s.Level == lod.LevelCoarse && !s.Processing
	}, 3*time.Second, 10*time.Millisecond)

	code = postJSON(t, srv.URL+"/api/lod/disable", &st)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, engine.StateDisabled, st.State)
}

func TestClustersEndpoint(t *testing.T) {
	srv, eng := newTestServer(t)

	t.Run("before any build", func(t *testing.T) {
		code := getJSON(t, srv.URL+"/api/lod/clusters/spatial", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		var body map[string]string
		code := getJSON(t, srv.URL+"/api/lod/clusters/bogus", &body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, body["error"])
	})

	t.Run("after enable", func(t *testing.T) {
		eng.Enable()
		require.Eventually(t, func() bool {
			s := eng.Status()
			return s.Level == lod.LevelCoarse && !s.Processing
		}, 3*time.Second, 10*time.Millisecond)

		var body struct {
			Kind     string        `json:"kind"`
			Count    int           `json:"count"`
			Clusters []lod.Cluster `json:"clusters"`
		}
		code := getJSON(t, srv.URL+"/api/lod/clusters/spatial", &body)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "spatial", body.Kind)
		assert.Positive(t, body.Count)
		assert.Len(t, body.Clusters, body.Count)
	})
}

func TestEdgesEndpoint(t *testing.T) {
	srv, eng := newTestServer(t)

	code := getJSON(t, srv.URL+"/api/lod/edges", nil)
	assert.Equal(t, http.StatusNotFound, code, "no aggregation before a coarse apply")

	eng.Enable()
	require.Eventually(t, func() bool {
		s := eng.Status()
		return s.Level == lod.LevelCoarse && !s.Processing
	}, 3*time.Second, 10*time.Millisecond)

	var body struct {
		Count int `json:"count"`
		Pairs []struct {
			A     string `json:"a"`
			B     string `json:"b"`
			Count int    `json:"count"`
		} `json:"pairs"`
	}
	code = getJSON(t, srv.URL+"/api/lod/edges", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Positive(t, body.Count)
	assert.Len(t, body.Pairs, body.Count)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
