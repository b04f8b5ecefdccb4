// Package server exposes scoring over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/ppiankov/planeval/internal/dataset"
	"github.com/ppiankov/planeval/internal/model"
	"github.com/ppiankov/planeval/internal/validate"
	"github.com/ppiankov/planeval/internal/worker"
)

// ItemScorer scores a batch of items. pipeline.Pipeline satisfies it.
type ItemScorer interface {
	EvaluateItems(items []model.Item, mode model.AggregationMode) (model.Result, error)
	LemmatizerName() string
}

// ScoreRequest is the body of POST /v1/score. Items use the run file record layout.
type ScoreRequest struct {
	Mode         string          `json:"mode"`
	IncludeItems bool            `json:"include_items"`
	Items        json.RawMessage `json:"items"`
}

// ScoreResponse is returned on success
type ScoreResponse struct {
	Lemmatizer string       `json:"lemmatizer"`
	Result     model.Result `json:"result"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error  string           `json:"error"`
	Issues []validate.Issue `json:"issues,omitempty"`
}

// Server serves the scoring API
type Server struct {
	scorer ItemScorer
	config model.ServerConfig
	router *mux.Router
	limits *worker.Limiter // nil when per-client limiting is off
}

// NewServer creates a server around scorer
func NewServer(scorer ItemScorer, cfg model.ServerConfig) *Server {
	s := &Server{
		scorer: scorer,
		config: cfg,
		router: mux.NewRouter(),
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	if cfg.RequestsPerSecond > 0 {
		s.limits = worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
		v1.Use(s.rateLimit)
	}
	v1.HandleFunc("/score", s.handleScore).Methods("POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// rateLimit rejects clients that exceed the configured request rate
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limits.Allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"lemmatizer": s.scorer.LemmatizerName(),
	})
}

// handleScore handles POST /v1/score
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	mode, err := model.ParseAggregationMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(bytes.TrimSpace(req.Items)) == 0 || bytes.Equal(bytes.TrimSpace(req.Items), []byte("null")) {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	items, err := dataset.DecodeItems(bytes.NewReader(req.Items), dataset.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.scorer.EvaluateItems(items, mode)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: model.ErrMalformedRecord.Error(), Issues: verr.Issues})
			return
		}
		if errors.Is(err, model.ErrMalformedRecord) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !req.IncludeItems {
		result.PerItem = nil
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		Lemmatizer: s.scorer.LemmatizerName(),
		Result:     result,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
