package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shelfwatch/shelfwatch/internal/checker"
	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/metrics"
)

//go:embed index.html
var indexHTML []byte

// errorResponse is the JSON payload for any failed /api/status call.
// Traceback carries the full error chain and is populated only when
// server.debug is set.
type errorResponse struct {
	Error          string `json:"error"`
	Traceback      string `json:"traceback,omitempty"`
	ProductPageURL string `json:"product_page_url"`
	Source         string `json:"source"`
}

// StatusSource is what the handler needs from the checker.
// *checker.Checker satisfies it.
type StatusSource interface {
	Collect(ctx context.Context) (*checker.Snapshot, error)
	Config() *config.Config
	Endpoint() string
}

// Handler serves the status page and API.
type Handler struct {
	chk StatusSource
	mux *http.ServeMux
}

// New creates the Handler and registers all routes. reg and hub may be nil,
// which drops the corresponding route.
func New(chk StatusSource, reg *metrics.Registry, hub *Hub) http.Handler {
	h := &Handler{chk: chk, mux: http.NewServeMux()}

	h.mux.HandleFunc("/", h.index)
	h.mux.HandleFunc("/api/status", h.status)
	if reg != nil {
		h.mux.Handle("/metrics", reg)
	}
	if hub != nil {
		h.mux.Handle("/ws/stream", hub)
	}

	return h
}

// ServeHTTP dispatches to the mux with panic recovery: a handler failure
// becomes the JSON error response, never a dead process.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("web: handler panic", "path", r.URL.Path, "panic", rec)
			h.writeError(w, fmt.Errorf("internal error: %v", rec))
		}
	}()
	h.mux.ServeHTTP(w, r)
}

// index serves the embedded status page on exactly "/"; every unregistered
// path lands here and gets a bare 404.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// status runs one collection cycle and returns the snapshot.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// A dropped browser connection must not abort the in-flight upstream
	// calls; the cycle runs to completion either way.
	ctx := context.WithoutCancel(r.Context())

	snap, err := h.chk.Collect(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, snap)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	cfg := h.chk.Config()
	resp := errorResponse{
		Error:          err.Error(),
		ProductPageURL: cfg.Product.PageURL,
		Source:         h.chk.Endpoint(),
	}
	if cfg.Server.Debug {
		resp.Traceback = errorChain(err)
	}
	jsonResp(w, http.StatusInternalServerError, resp)
}

// errorChain renders every link of a wrapped error, outermost first.
func errorChain(err error) string {
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

func jsonResp(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("web: encode response", "err", err)
	}
}
