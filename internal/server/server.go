// Package server exposes stored rules and matching over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/profile"
	"github.com/ppiankov/yojana/internal/store"
)

const maxProfileBytes = 1 << 20

// RuleSource provides persisted rule documents
type RuleSource interface {
	Get(id string) (*model.RuleDocument, error)
	List() ([]*model.RuleDocument, []error)
}

// Engine matches profiles against rules
type Engine interface {
	Match(profile model.UserProfile, rule *model.RuleDocument) model.MatchResult
	MatchAll(profile model.UserProfile, rules []*model.RuleDocument) []model.MatchResult
	ExplainEnabled() bool
	Explain(ctx context.Context, rule *model.RuleDocument, result *model.MatchResult) error
}

// Server handles the HTTP API
type Server struct {
	rules  RuleSource
	engine Engine
	log    *zap.Logger
}

// New creates a new server
func New(rules RuleSource, engine Engine, log *zap.Logger) *Server {
	return &Server{rules: rules, engine: engine, log: logger.OrNop(log)}
}

type errorResponse struct {
	Error string `json:"error"`
}

// SchemeSummary is one entry of the scheme listing
type SchemeSummary struct {
	SchemeID   string           `json:"schemeId"`
	Title      string           `json:"title,omitempty"`
	SourceURL  string           `json:"sourceUrl,omitempty"`
	Confidence model.Confidence `json:"confidence"`
	Criteria   int              `json:"criteria"`
}

// ListResponse is the body of GET /api/schemes
type ListResponse struct {
	Schemes    []SchemeSummary `json:"schemes"`
	Unreadable int             `json:"unreadable,omitempty"`
}

// MatchResponse is the body of POST /api/match
type MatchResponse struct {
	Results []model.MatchResult `json:"results"`
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/schemes", s.handleList)
		r.Get("/schemes/{id}", s.handleGet)
		r.Post("/match", s.handleMatch)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, cfg model.ServerConfig) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rules, errs := s.rules.List()
	for _, err := range errs {
		s.log.Warn("skipping unreadable rule", zap.Error(err))
	}

	resp := ListResponse{
		Schemes:    make([]SchemeSummary, 0, len(rules)),
		Unreadable: len(errs),
	}
	for _, rule := range rules {
		resp.Schemes = append(resp.Schemes, SchemeSummary{
			SchemeID:   rule.SchemeID,
			Title:      rule.Title,
			SourceURL:  rule.SourceURL,
			Confidence: rule.Confidence,
			Criteria:   len(rule.Criteria),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProfileBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read body: " + err.Error()})
		return
	}
	if len(body) > maxProfileBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "profile too large"})
		return
	}

	p, err := profile.Parse(body, profile.FormatJSON)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var results []model.MatchResult
	byID := make(map[string]*model.RuleDocument)

	if id := strings.TrimSpace(r.URL.Query().Get("scheme")); id != "" {
		rule, err := s.rules.Get(id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		byID[rule.SchemeID] = rule
		results = []model.MatchResult{s.engine.Match(p, rule)}
	} else {
		rules, errs := s.rules.List()
		for _, err := range errs {
			s.log.Warn("skipping unreadable rule", zap.Error(err))
		}
		for _, rule := range rules {
			byID[rule.SchemeID] = rule
		}
		results = s.engine.MatchAll(p, rules)
	}

	if explain, _ := strconv.ParseBool(r.URL.Query().Get("explain")); explain && s.engine.ExplainEnabled() {
		for i := range results {
			if err := s.engine.Explain(r.Context(), byID[results[i].SchemeID], &results[i]); err != nil {
				// client went away; verdicts are complete without explanations
				s.log.Debug("explanation aborted", zap.Error(err))
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, MatchResponse{Results: results})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.Error("rule store", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
