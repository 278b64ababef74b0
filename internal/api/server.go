package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/formacoach/tally/internal/agent"
	"github.com/formacoach/tally/internal/store"
)

// Runner runs one extraction for one inbound message.
type Runner interface {
	Run(ctx context.Context, input agent.RunInput) (*agent.RunResult, error)
}

// WorkoutStore is the read side of workout persistence.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id uuid.UUID) (*store.WorkoutRow, error)
	ListUserWorkouts(ctx context.Context, userID string, limit int) ([]store.WorkoutRow, error)
	SearchSimilar(ctx context.Context, userID string, embedding []float64, limit int) ([]store.SearchHit, error)
}

type Server struct {
	router *chi.Mux
	port   int
	runner Runner
	db     WorkoutStore
}

func NewServer(port int, apiToken string, runner Runner, db WorkoutStore) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		runner: runner,
		db:     db,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/tally/status", s.status)

	router.Group(func(r chi.Router) {
		r.Use(bearerAuth(apiToken))
		r.Post("/api/v1/workouts/log", s.logWorkout)
		r.Get("/api/v1/workouts/{id}", s.getWorkout)
		r.Get("/api/v1/users/{userID}/workouts", s.listWorkouts)
		r.Post("/api/v1/users/{userID}/workouts/search", s.searchWorkouts)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// bearerAuth rejects requests without the configured bearer token. An empty
// configured token disables the check for local development.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "invalid or missing token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "tally",
		"status": "active",
	})
}

// LogRequest is the payload for POST /api/v1/workouts/log.
type LogRequest struct {
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
	Source     string `json:"source,omitempty"` // "command" or "natural"; natural when empty
	TemplateID string `json:"template_id,omitempty"`
}

func (s *Server) logWorkout(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	source := agent.SourceNatural
	if req.Source == string(agent.SourceCommand) {
		source = agent.SourceCommand
	}

	result, err := s.runner.Run(r.Context(), agent.RunInput{
		UserID:     req.UserID,
		Message:    req.Message,
		Source:     source,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		slog.Error("extraction run failed", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}

	row, err := s.db.GetWorkout(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "workout not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) listWorkouts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	rows, err := s.db.ListUserWorkouts(r.Context(), userID, limit)
	if err != nil {
		slog.Error("list workouts failed", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workouts": rows,
		"count":    len(rows),
	})
}

// SearchRequest is the payload for similarity search. The embedding comes
// from the caller; tally stores vectors but does not compute them.
type SearchRequest struct {
	Embedding []float64 `json:"embedding"`
	Limit     int       `json:"limit,omitempty"`
}

func (s *Server) searchWorkouts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	hits, err := s.db.SearchSimilar(r.Context(), userID, req.Embedding, req.Limit)
	if err != nil {
		slog.Error("similarity search failed", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"count": len(hits),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
