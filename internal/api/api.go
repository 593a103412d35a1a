// Package api provides the HTTP control surface for supbridge.
//
// It exposes the outbound send contract plus diagnostic endpoints for the
// event journal and the sync loop state. Send failures are always reported
// as a structured {ok:false, error} result, never as a raw HTTP error.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/fernwick/supbridge/internal/store"
	"github.com/fernwick/supbridge/internal/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Constants for API server configuration
const (
	// DefaultAddr is the default listen address for the control API.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// Sender is the outbound slice of the Sup client the API depends on.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string, mentions []string) (string, error)
}

// Searcher is the user-search slice of the Sup client.
type Searcher interface {
	SearchUsers(ctx context.Context, query string) (any, error)
}

// LoopStatus reports the sync loop's observable state.
type LoopStatus interface {
	State() syncer.State
	SeenCount() int
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server is the supbridge control API server.
type Server struct {
	addr     string
	router   chi.Router
	sender   Sender
	searcher Searcher
	status   LoopStatus
	store    store.Store
}

// NewServer creates a control API server. sender and searcher may be nil
// when the bridge is not configured; the affected endpoints then report a
// structured not-configured result instead of failing at startup.
func NewServer(sender Sender, searcher Searcher, status LoopStatus, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		addr:     cfg.Addr,
		sender:   sender,
		searcher: searcher,
		status:   status,
		store:    st,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/send", s.handleSend)
	r.Get("/events", s.handleEvents)
	r.Get("/receipts", s.handleReceipts)
	r.Get("/status", s.handleStatus)
	r.Get("/search", s.handleSearch)
	s.router = r

	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Control API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		slog.Info("Control API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// sendRequest is the POST /send request body.
type sendRequest struct {
	ChatID   string   `json:"chat_id"`
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SendResult{OK: false, Error: "invalid request body"})
		return
	}

	result := s.sendText(r.Context(), req.ChatID, req.Text, req.Mentions)
	writeJSON(w, http.StatusOK, result)
}

// sendText implements the outbound call contract: every failure is captured
// and reported in-band.
func (s *Server) sendText(ctx context.Context, chatID, text string, mentions []string) models.SendResult {
	if s.sender == nil {
		return models.SendResult{OK: false, Error: models.ErrNotConfigured.Error()}
	}

	optimisticID, err := s.sender.SendMessage(ctx, chatID, text, mentions)
	status := models.StatusTypeSent
	result := models.SendResult{OK: true}
	if err != nil {
		status = models.StatusTypeFailed
		result = models.SendResult{OK: false, Error: err.Error()}
	}

	if s.store != nil {
		receipt := models.SendReceipt{
			ChatID:       chatID,
			OptimisticID: optimisticID,
			Status:       status,
			Time:         time.Now().Unix(),
		}
		if storeErr := s.store.AddReceipt(receipt); storeErr != nil {
			slog.Error("Failed to journal send receipt", "error", storeErr, "chat_id", chatID)
		}
	}
	return result
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []models.EventRecord{})
		return
	}
	events, err := s.store.GetEvents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []models.EventRecord{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []models.SendReceipt{})
		return
	}
	receipts, err := s.store.GetReceipts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if receipts == nil {
		receipts = []models.SendReceipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// statusResponse is the GET /status response body.
type statusResponse struct {
	State     syncer.State `json:"state"`
	SeenCount int          `json:"seen_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: syncer.StateStopped}
	if s.status != nil {
		resp.State = s.status.State()
		resp.SeenCount = s.status.SeenCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, models.ErrNotConfigured)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errQueryRequired)
		return
	}
	result, err := s.searcher.SearchUsers(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
