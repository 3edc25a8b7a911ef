package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/byland-ai/byland"
	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/internal/sanitize"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/onboarding"
	"github.com/byland-ai/byland/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// StatesURI is the resource describing the onboarding state machine.
const StatesURI = "byland://onboarding/states"

// Planner is the trip planning surface exposed as tools.
type Planner interface {
	Plan(ctx context.Context, req domain.TripRequest) (*domain.TripPlan, error)
	Route(ctx context.Context, req domain.TripRequest) ([]string, error)
	Gear(ctx context.Context, req domain.TripRequest) ([]string, error)
	Weather(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error)
	Permits(ctx context.Context, req domain.TripRequest) (domain.Permits, error)
}

// Sessions runs onboarding turns.
type Sessions interface {
	Turn(ctx context.Context, userID, input string) (*session.TurnResult, error)
}

// TripArgs are the arguments shared by every planning tool.
type TripArgs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Days        int    `json:"days"`
}

func (a TripArgs) request() domain.TripRequest {
	return domain.TripRequest{Origin: a.Origin, Destination: a.Destination, Days: a.Days}
}

// TurnArgs are the arguments of onboarding_turn.
type TurnArgs struct {
	UserID    string `json:"user_id,omitempty"`
	UserInput string `json:"user_input"`
}

type RouteResult struct {
	Route []string `json:"route" jsonschema_description:"Ordered waypoints from origin to destination"`
}

type GearResult struct {
	GearList []string `json:"gear_list" jsonschema_description:"Recommended gear, without duplicates"`
}

type ForecastResult struct {
	Forecast []domain.ForecastDay `json:"forecast" jsonschema_description:"One entry per trip day, starting at day 1"`
}

type PermitsResult struct {
	Permits domain.Permits `json:"permits"`
}

// TurnResult aligns with the HTTP chat response.
type TurnResult struct {
	UserID          string                 `json:"user_id" jsonschema_description:"Pass back on the next turn to continue the conversation"`
	Messages        []string               `json:"messages" jsonschema_description:"System messages appended by this turn"`
	CurrentState    domain.OnboardingState `json:"current_state"`
	ProfileComplete bool                   `json:"profile_complete"`
}

// Server exposes the planner and onboarding as an MCP Server.
type Server struct {
	planner   Planner
	sessions  Sessions
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for tool calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize bounds free-text arguments.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.sanitizer = sanitize.New(n)
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(planner Planner, sessions Sessions, opts ...Option) *Server {
	s := &Server{
		planner:   planner,
		sessions:  sessions,
		sanitizer: sanitize.New(0),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("byland-mcp", strings.TrimSpace(byland.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tripOptions(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("origin", mcp.Required(), mcp.Description("Trip starting point")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Trip end point")),
		mcp.WithNumber("days", mcp.Required(), mcp.Description("Trip length in days (at least 1)")),
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTools(s.tools()...)
}

// tools lists every tool the server exposes.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("plan_route",
				append(tripOptions("Plan the waypoints of a multi-day hike."), mcp.WithOutputSchema[RouteResult]())...,
			),
			Handler: mcp.NewStructuredToolHandler(s.handlePlanRoute),
		},
		{
			Tool: mcp.NewTool("suggest_gear",
				append(tripOptions("Suggest gear for a hike."), mcp.WithOutputSchema[GearResult]())...,
			),
			Handler: mcp.NewStructuredToolHandler(s.handleSuggestGear),
		},
		{
			Tool: mcp.NewTool("forecast_weather",
				append(tripOptions("Forecast the weather for each day of a hike."), mcp.WithOutputSchema[ForecastResult]())...,
			),
			Handler: mcp.NewStructuredToolHandler(s.handleForecastWeather),
		},
		{
			Tool: mcp.NewTool("check_permits",
				append(tripOptions("Check whether a hike requires permits."), mcp.WithOutputSchema[PermitsResult]())...,
			),
			Handler: mcp.NewStructuredToolHandler(s.handleCheckPermits),
		},
		{
			Tool: mcp.NewTool("plan_trip",
				append(tripOptions("Assemble a full trip plan: route, gear, forecast and permits. Fails as a whole if any part fails."),
					mcp.WithOutputSchema[domain.TripPlan]())...,
			),
			Handler: mcp.NewStructuredToolHandler(s.handlePlanTrip),
		},
		{
			Tool: mcp.NewTool("onboarding_turn",
				mcp.WithDescription("Send one message of the hiker onboarding conversation. Omit user_id to start a new conversation."),
				mcp.WithString("user_id", mcp.Description("Conversation owner returned by a previous turn (optional)")),
				mcp.WithString("user_input", mcp.Required(), mcp.Description("The hiker's answer")),
				mcp.WithOutputSchema[TurnResult](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleOnboardingTurn),
		},
	}
}

func (s *Server) clean(args TripArgs) (domain.TripRequest, error) {
	req := args.request()
	for _, field := range []*string{&req.Origin, &req.Destination} {
		clean, err := s.sanitizer.Clean(*field)
		if err != nil {
			return req, fmt.Errorf("input rejected: %w", err)
		}
		*field = clean
	}
	return req, nil
}

// Handler methods for structured tools

func (s *Server) handlePlanRoute(ctx context.Context, _ mcp.CallToolRequest, args TripArgs) (RouteResult, error) {
	req, err := s.clean(args)
	if err != nil {
		return RouteResult{}, err
	}
	route, err := s.planner.Route(ctx, req)
	if err != nil {
		return RouteResult{}, err
	}
	return RouteResult{Route: route}, nil
}

func (s *Server) handleSuggestGear(ctx context.Context, _ mcp.CallToolRequest, args TripArgs) (GearResult, error) {
	req, err := s.clean(args)
	if err != nil {
		return GearResult{}, err
	}
	gear, err := s.planner.Gear(ctx, req)
	if err != nil {
		return GearResult{}, err
	}
	return GearResult{GearList: gear}, nil
}

func (s *Server) handleForecastWeather(ctx context.Context, _ mcp.CallToolRequest, args TripArgs) (ForecastResult, error) {
	req, err := s.clean(args)
	if err != nil {
		return ForecastResult{}, err
	}
	forecast, err := s.planner.Weather(ctx, req)
	if err != nil {
		return ForecastResult{}, err
	}
	return ForecastResult{Forecast: forecast}, nil
}

func (s *Server) handleCheckPermits(ctx context.Context, _ mcp.CallToolRequest, args TripArgs) (PermitsResult, error) {
	req, err := s.clean(args)
	if err != nil {
		return PermitsResult{}, err
	}
	permits, err := s.planner.Permits(ctx, req)
	if err != nil {
		return PermitsResult{}, err
	}
	return PermitsResult{Permits: permits}, nil
}

func (s *Server) handlePlanTrip(ctx context.Context, _ mcp.CallToolRequest, args TripArgs) (domain.TripPlan, error) {
	req, err := s.clean(args)
	if err != nil {
		return domain.TripPlan{}, err
	}
	plan, err := s.planner.Plan(ctx, req)
	if err != nil {
		s.logger.Warn("MCP plan_trip failed", "error", err)
		return domain.TripPlan{}, err
	}
	return *plan, nil
}

func (s *Server) handleOnboardingTurn(ctx context.Context, _ mcp.CallToolRequest, args TurnArgs) (TurnResult, error) {
	userID := strings.TrimSpace(args.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}

	input, err := s.sanitizer.Clean(args.UserInput)
	if err != nil {
		s.logger.Warn("MCP onboarding_turn: Input rejected", "error", err, "size", len(args.UserInput))
		return TurnResult{}, fmt.Errorf("input rejected: %w", err)
	}

	res, err := s.sessions.Turn(ctx, userID, input)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return TurnResult{}, errors.New(domain.GenericFailureReply)
		}
		return TurnResult{}, err
	}

	messages := make([]string, 0, len(res.Diff.Appended))
	for _, m := range res.Diff.Appended {
		messages = append(messages, m.Content)
	}
	return TurnResult{
		UserID:          userID,
		Messages:        messages,
		CurrentState:    res.Session.CurrentState,
		ProfileComplete: res.Session.ProfileComplete,
	}, nil
}

// stateEdge is one entry of the states resource.
type stateEdge struct {
	From domain.OnboardingState `json:"from"`
	To   domain.OnboardingState `json:"to"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StatesURI, "Onboarding State Machine",
		mcp.WithResourceDescription("Ordered onboarding states and their transitions"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StatesURI,
				MIMEType: "application/json",
				Text:     statesJSON(),
			},
		}, nil
	})
}

func statesJSON() string {
	edges := []stateEdge{}
	for _, e := range onboarding.Transitions() {
		edges = append(edges, stateEdge{From: e[0], To: e[1]})
	}
	data, _ := json.Marshal(map[string]any{
		"states":      domain.States,
		"transitions": edges,
	})
	return string(data)
}
