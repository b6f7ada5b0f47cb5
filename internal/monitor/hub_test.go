package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/rendercal/internal/diagnostics"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/trials"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestTrialStream(t *testing.T) {
	h := NewHub("run-1", "target")
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	c := dial(t, srv, "/trials")
	require.Eventually(t, func() bool { n, _ := h.Clients(); return n == 1 }, time.Second, 5*time.Millisecond)

	h.OnTrial(trials.Record{Ordinal: 7, Fields: []float64{1, 2}, Output: scene.RGB{R: 0.5, G: 0.25, B: 0}})

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	var msg trialMsg
	require.NoError(t, json.Unmarshal(b, &msg))
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, 7, msg.Ordinal)
	assert.Equal(t, [3]float64{0.5, 0.25, 0}, msg.Output)
}

func TestDiagStream(t *testing.T) {
	h := NewHub("run-2", "sweep")
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	c := dial(t, srv, "/diag")
	require.Eventually(t, func() bool { _, n := h.Clients(); return n == 1 }, time.Second, 5*time.Millisecond)

	h.OnDiagnostic(diagnostics.Diagnostic{Severity: diagnostics.Err, Code: diagnostics.CodeMissingLUT, Summary: "missing"})

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	var d diagnostics.Diagnostic
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, diagnostics.CodeMissingLUT, d.Code)
}

func TestHealth(t *testing.T) {
	h := NewHub("run-3", "direct")
	h.OnTrial(trials.Record{Ordinal: 1})
	h.OnTrial(trials.Record{Ordinal: 2})
	h.OnDiagnostic(diagnostics.Diagnostic{Code: diagnostics.CodeDegenerate})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-3", resp["run_id"])
	assert.Equal(t, float64(2), resp["trials"])
	assert.Equal(t, float64(1), resp["skipped"])
	assert.Equal(t, float64(2), resp["last"])
	assert.NotContains(t, resp, "render")

	h.FrameStats = func() render.Stats { return render.Stats{Frame: 42, RenderMS: 1.5, PostMS: 0.25} }
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var withStats struct {
		Render render.Stats `json:"render"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withStats))
	assert.Equal(t, render.Stats{Frame: 42, RenderMS: 1.5, PostMS: 0.25}, withStats.Render)
}

func TestClientDisconnect(t *testing.T) {
	h := NewHub("run-4", "target")
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	c := dial(t, srv, "/trials")
	require.Eventually(t, func() bool { n, _ := h.Clients(); return n == 1 }, time.Second, 5*time.Millisecond)
	c.Close()
	assert.Eventually(t, func() bool { n, _ := h.Clients(); return n == 0 }, time.Second, 5*time.Millisecond)
}
