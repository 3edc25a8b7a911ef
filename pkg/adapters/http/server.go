package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/byland-ai/byland"
	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/internal/sanitize"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

// GenericFailureReply is the reply body of a turn that could not be stored.
const GenericFailureReply = domain.GenericFailureReply

// Sessions is the onboarding surface the server drives.
type Sessions interface {
	Turn(ctx context.Context, userID, input string) (*session.TurnResult, error)
	Start(ctx context.Context, userID string) (*domain.Session, error)
	Load(ctx context.Context, userID string) (*domain.Session, error)
	Delete(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*domain.HikerProfile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.HikerProfile, error)
}

// Planner produces trip plans.
type Planner interface {
	Plan(ctx context.Context, req domain.TripRequest) (*domain.TripPlan, error)
}

// Server holds the HTTP handlers.
type Server struct {
	Sessions Sessions
	Planner  Planner
	Streams  *StreamManager

	spec        *openapi3.T
	sanitizer   *sanitize.Sanitizer
	corsOrigins []string
	metrics     http.Handler
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize bounds free-text fields (default sanitize.DefaultMaxInputSize).
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.sanitizer = sanitize.New(n)
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler builds the HTTP API.
func NewHandler(sessions Sessions, planner Planner, opts ...Option) (http.Handler, error) {
	server := &Server{
		Sessions:    sessions,
		Planner:     planner,
		Streams:     NewStreamManager(),
		sanitizer:   sanitize.New(0),
		corsOrigins: []string{"*"},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams.logger = server.logger

	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	server.spec = spec
	specRouter, err := newSpecRouter(spec)
	if err != nil {
		return nil, fmt.Errorf("build spec router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(server.cors)
	r.Use(requestValidator(specRouter, func(w http.ResponseWriter, err error) {
		server.logger.Warn("Request rejected by schema", "error", err)
		writeError(w, http.StatusBadRequest, classValidation, err.Error())
	}))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Route("/hiker_profiles", func(r chi.Router) {
		r.Post("/start", server.StartOnboarding)
		r.Post("/update/{user_id}", server.UpdateProfile)
		r.Post("/edit/{user_id}", server.UpdateProfile)
		r.Get("/chat/{user_id}", server.GetConversation)
		r.Post("/chat/{user_id}", server.ChatTurn)
		r.Delete("/chat/{user_id}", server.ResetConversation)
		r.Get("/chat/{user_id}/events", server.SubscribeTurns)
		r.Get("/{user_id}", server.GetProfile)
	})

	r.Post("/plan", server.PlanTrip)
	r.Get("/agents", server.ListAgents)

	return r, nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>ByLand API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "byland-http",
		"version":     strings.TrimSpace(byland.Version),
		"api_version": apiVersion,
	})
}

// chatResponse is the reply to every conversation endpoint.
type chatResponse struct {
	UserID          string                 `json:"user_id"`
	Messages        []string               `json:"messages"`
	Transcript      []domain.Message       `json:"transcript"`
	CurrentState    domain.OnboardingState `json:"current_state"`
	ProfileComplete bool                   `json:"profile_complete"`
}

func newChatResponse(sess *domain.Session, appended []domain.Message) chatResponse {
	messages := make([]string, 0, len(appended))
	for _, m := range appended {
		messages = append(messages, m.Content)
	}
	transcript := sess.Transcript
	if transcript == nil {
		transcript = []domain.Message{}
	}
	return chatResponse{
		UserID:          sess.UserID,
		Messages:        messages,
		Transcript:      transcript,
		CurrentState:    sess.CurrentState,
		ProfileComplete: sess.ProfileComplete,
	}
}

// StartOnboarding handles POST /hiker_profiles/start?user_id=.
func (s *Server) StartOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, classValidation, "user_id is required")
		return
	}

	sess, err := s.Sessions.Start(r.Context(), userID)
	if err != nil {
		s.logger.Error("Start onboarding failed", "user_id", userID, "error", err)
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newChatResponse(sess, nil))
}

// GetProfile handles GET /hiker_profiles/{user_id}.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.Sessions.Profile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles POST /hiker_profiles/{update,edit}/{user_id}.
func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn("UpdateProfile: Invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, classValidation, "Invalid request body")
		return
	}
	if err := s.cleanUpdate(&update); err != nil {
		writeError(w, http.StatusBadRequest, classValidation, fmt.Sprintf("Invalid input: %v", err))
		return
	}

	profile, err := s.Sessions.UpdateProfile(r.Context(), chi.URLParam(r, "user_id"), update)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) cleanUpdate(u *domain.ProfileUpdate) error {
	for _, field := range []*string{u.HikingExperience, u.GearStyle, u.DietaryNeeds, u.MedicalNotes} {
		if field == nil {
			continue
		}
		clean, err := s.sanitizer.Clean(*field)
		if err != nil {
			return err
		}
		*field = clean
	}
	for _, list := range []*[]string{u.PreferredTerrain, u.PersonalityTags} {
		if list == nil {
			continue
		}
		for i, item := range *list {
			clean, err := s.sanitizer.Clean(item)
			if err != nil {
				return err
			}
			(*list)[i] = clean
		}
	}
	return nil
}

type chatRequest struct {
	UserInput string `json:"user_input"`
}

// ChatTurn handles POST /hiker_profiles/chat/{user_id}.
func (s *Server) ChatTurn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("ChatTurn: Invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, classValidation, "Invalid request body")
		return
	}

	input, err := s.sanitizer.Clean(body.UserInput)
	if err != nil {
		s.logger.Warn("ChatTurn: Input rejected", "error", err, "size", len(body.UserInput))
		writeError(w, http.StatusBadRequest, classValidation, fmt.Sprintf("Invalid input: %v", err))
		return
	}

	res, err := s.Sessions.Turn(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			s.writeTurnFailure(w, r.Context(), userID)
			return
		}
		s.writeDomainError(w, err)
		return
	}

	if bytes, err := json.Marshal(res.Diff); err == nil {
		s.Streams.Broadcast(userID, string(bytes))
	}
	writeJSON(w, http.StatusOK, newChatResponse(res.Session, res.Diff.Appended))
}

// writeTurnFailure answers a turn that could not be made durable with the
// generic reply and the transcript as it was last stored.
func (s *Server) writeTurnFailure(w http.ResponseWriter, ctx context.Context, userID string) {
	transcript := []domain.Message{}
	if last, err := s.Sessions.Load(ctx, userID); err == nil && last.Transcript != nil {
		transcript = last.Transcript
	}
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{
		Error:      GenericFailureReply,
		Class:      classPersistence,
		Messages:   []string{GenericFailureReply},
		Transcript: transcript,
	})
}

// GetConversation handles GET /hiker_profiles/chat/{user_id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(sess, nil))
}

// ResetConversation handles DELETE /hiker_profiles/chat/{user_id}.
func (s *Server) ResetConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlanTrip handles POST /plan.
func (s *Server) PlanTrip(w http.ResponseWriter, r *http.Request) {
	var req domain.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("PlanTrip: Invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, classValidation, "Invalid request body")
		return
	}
	for _, field := range []*string{&req.Origin, &req.Destination} {
		clean, err := s.sanitizer.Clean(*field)
		if err != nil {
			writeError(w, http.StatusBadRequest, classValidation, fmt.Sprintf("Invalid input: %v", err))
			return
		}
		*field = clean
	}

	plan, err := s.Planner.Plan(r.Context(), req)
	if err != nil {
		s.logger.Warn("Plan failed", "origin", req.Origin, "destination", req.Destination, "error", err)
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"agents": domain.Producers})
}
