// Package monitor streams a run's trials and diagnostics to websocket
// clients and reports progress over HTTP.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rendercal/internal/diagnostics"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/trials"
)

const writeWait = 200 * time.Millisecond

type Hub struct {
	mu sync.RWMutex

	RunID string
	Mode  string
	// FrameStats, when set, adds the render host's last frame timings to /health.
	FrameStats func() render.Stats

	trials    int
	skipped   int
	last      *trials.Record
	startTime time.Time

	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

func NewHub(runID, mode string) *Hub {
	return &Hub{
		RunID:       runID,
		Mode:        mode,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
}

type trialMsg struct {
	RunID   string     `json:"run_id"`
	Ordinal int        `json:"n"`
	Fields  []float64  `json:"fields"`
	Output  [3]float64 `json:"output"`
}

func (h *Hub) OnTrial(r trials.Record) {
	h.mu.Lock()
	h.trials++
	rec := r
	h.last = &rec
	h.mu.Unlock()

	b, _ := json.Marshal(trialMsg{RunID: h.RunID, Ordinal: r.Ordinal, Fields: r.Fields,
		Output: [3]float64{r.Output.R, r.Output.G, r.Output.B}})
	h.broadcast(h.clients, b)
}

func (h *Hub) OnDiagnostic(d diagnostics.Diagnostic) {
	if d.Code == diagnostics.CodeDegenerate {
		h.mu.Lock()
		h.skipped++
		h.mu.Unlock()
	}
	b, _ := json.Marshal(d)
	h.broadcast(h.diagClients, b)
}

func (h *Hub) broadcast(set map[*websocket.Conn]bool, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("monitor write")
		}
	}
}

func (h *Hub) HandleTrialsWS(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, h.diagClients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	set[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Clients is the number of connected trial and diagnostic streams.
func (h *Hub) Clients() (trials, diag int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.diagClients)
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	resp := map[string]any{
		"run_id":   h.RunID,
		"mode":     h.Mode,
		"trials":   h.trials,
		"skipped":  h.skipped,
		"uptime_s": time.Since(h.startTime).Seconds(),
	}
	if h.last != nil {
		resp["last"] = h.last.Ordinal
	}
	if h.FrameStats != nil {
		resp["render"] = h.FrameStats()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trials", h.HandleTrialsWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
