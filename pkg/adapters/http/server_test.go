package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byland-ai/byland/pkg/adapters/memory"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/planner"
	"github.com/byland-ai/byland/pkg/ports"
	"github.com/byland-ai/byland/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, sessions Sessions, opts ...Option) http.Handler {
	t.Helper()
	if sessions == nil {
		sessions = session.NewManager(memory.NewStore(), memory.NewProfileStore())
	}
	h, err := NewHandler(sessions, planner.New(), opts...)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/plan"))
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "byland-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.NotEmpty(t, info["version"])

	w = do(t, h, "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestChat_FullOnboarding(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "POST", "/hiker_profiles/start?user_id=h1", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	start := decode[chatResponse](t, w)
	assert.Equal(t, domain.StateIntro, start.CurrentState)
	assert.Empty(t, start.Transcript)

	inputs := []string{"hi", "intermediate", "ultralight", "alpine , coastal", "adventurous", "none", "", "Confirm"}
	var last chatResponse
	for i, in := range inputs {
		w := do(t, h, "POST", "/hiker_profiles/chat/h1", map[string]string{"user_input": in})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decode[chatResponse](t, w)
		assert.Len(t, last.Messages, 1)
		assert.Len(t, last.Transcript, i+1)
	}
	assert.True(t, last.ProfileComplete)
	assert.Equal(t, domain.StateConfirmation, last.CurrentState)
	assert.Equal(t, "Profile complete!", last.Messages[0])

	w = do(t, h, "GET", "/hiker_profiles/h1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[domain.HikerProfile](t, w)
	assert.Equal(t, []string{"alpine", "coastal"}, profile.PreferredTerrain)
	assert.Equal(t, "intermediate, ultralight, alpine, coastal, adventurous, none", profile.ProfileSummary)
}

func TestChat_FirstTurnWithoutStart(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "POST", "/hiker_profiles/chat/fresh", map[string]string{"user_input": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[chatResponse](t, w)
	assert.Equal(t, domain.StateExperience, res.CurrentState)
	require.Len(t, res.Transcript, 1)
	assert.Equal(t, domain.RoleSystem, res.Transcript[0].Role)
}

func TestChat_Rejections(t *testing.T) {
	h := newTestHandler(t, nil, WithMaxInputSize(8))

	w := do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": strings.Repeat("a", 9)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, classValidation, decode[errorResponse](t, w).Class)

	w = do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": "hi\x1b[2J"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "control characters")
	w = do(t, h, "GET", "/hiker_profiles/chat/u", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "rejected input starts no session")

	req := httptest.NewRequest("POST", "/hiker_profiles/chat/u", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = do(t, h, "POST", "/hiker_profiles/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "user_id is required")
}

// flakySessions fails writes once armed.
type flakySessions struct {
	*memory.Store
	fail atomic.Bool
}

func (s *flakySessions) Save(ctx context.Context, userID string, sess *domain.Session) error {
	if s.fail.Load() {
		return errors.New("database is locked")
	}
	return s.Store.Save(ctx, userID, sess)
}

func TestChat_PersistenceFailureKeepsTranscript(t *testing.T) {
	store := &flakySessions{Store: memory.NewStore()}
	h := newTestHandler(t, session.NewManager(store, memory.NewProfileStore()))

	for _, in := range []string{"hi", "beginner"} {
		w := do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": in})
		require.Equal(t, http.StatusOK, w.Code)
	}

	store.fail.Store(true)
	w := do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": "tent"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	res := decode[errorResponse](t, w)
	assert.Equal(t, GenericFailureReply, res.Error)
	assert.Equal(t, classPersistence, res.Class)
	assert.Equal(t, []string{GenericFailureReply}, res.Messages)
	assert.Len(t, res.Transcript, 2, "last durable transcript is returned")

	// Once storage recovers the same answer lands on the un-advanced session.
	store.fail.Store(false)
	w = do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": "tent"})
	require.Equal(t, http.StatusOK, w.Code)
	ok := decode[chatResponse](t, w)
	assert.Len(t, ok.Transcript, 3)
	assert.Equal(t, domain.StateTerrain, ok.CurrentState)
}

// switchableLocker stands in for a lock backend that can go away.
type switchableLocker struct {
	down atomic.Bool
}

func (l *switchableLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.down.Load() {
		return nil, errors.New("dial tcp: connection refused")
	}
	return func(context.Context) error { return nil }, nil
}

func TestChat_LockerDownKeepsTranscript(t *testing.T) {
	locker := &switchableLocker{}
	h := newTestHandler(t, session.NewManager(memory.NewStore(), memory.NewProfileStore(), session.WithLocker(locker)))

	for _, in := range []string{"hi", "beginner"} {
		w := do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": in})
		require.Equal(t, http.StatusOK, w.Code)
	}

	locker.down.Store(true)
	w := do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": "tent"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	res := decode[errorResponse](t, w)
	assert.Equal(t, GenericFailureReply, res.Error)
	assert.Equal(t, classPersistence, res.Class)
	assert.Len(t, res.Transcript, 2)
}

func TestConversation_GetAndReset(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "GET", "/hiker_profiles/chat/u", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(t, h, "POST", "/hiker_profiles/chat/u", map[string]string{"user_input": "hi"})
	w = do(t, h, "GET", "/hiker_profiles/chat/u", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[chatResponse](t, w).Transcript, 1)

	w = do(t, h, "DELETE", "/hiker_profiles/chat/u", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/hiker_profiles/chat/u", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfile_UpdateAndEdit(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "GET", "/hiker_profiles/nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, classNotFound, decode[errorResponse](t, w).Class)

	w = do(t, h, "POST", "/hiker_profiles/update/nobody", map[string]string{"gear_style": "tent"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(t, h, "POST", "/hiker_profiles/start?user_id=u", nil)

	w = do(t, h, "POST", "/hiker_profiles/update/u", map[string]any{
		"hiking_experience": "expert",
		"preferred_terrain": []string{"desert"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[domain.HikerProfile](t, w)
	assert.Equal(t, "expert", p.HikingExperience)
	assert.Equal(t, "expert, , desert, , ", p.ProfileSummary)

	w = do(t, h, "POST", "/hiker_profiles/edit/u", map[string]string{"medical_notes": "knee brace"})
	require.Equal(t, http.StatusOK, w.Code)
	p = decode[domain.HikerProfile](t, w)
	assert.Equal(t, "expert", p.HikingExperience, "untouched fields survive")
	assert.Equal(t, "knee brace", p.MedicalNotes)
}

// failingWeather always errors.
type failingWeather struct{}

func (failingWeather) Forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	return nil, errors.New("weather service unavailable")
}

func TestPlan(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, "POST", "/plan", map[string]any{"origin": "Golden Gate", "destination": "Yosemite", "days": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	plan := decode[domain.TripPlan](t, w)
	assert.Equal(t, "Golden Gate", plan.Route[0])
	assert.Equal(t, "Yosemite", plan.Route[len(plan.Route)-1])
	assert.Len(t, plan.Forecast, 3)
	assert.False(t, plan.Permits.Required)

	w = do(t, h, "POST", "/plan", map[string]any{"origin": "A", "destination": "B", "days": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, classValidation, decode[errorResponse](t, w).Class)

	w = do(t, h, "POST", "/plan", map[string]any{"origin": "A", "destination": "B", "days": "three"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, days := range []int{planner.DefaultMaxDays + 1, 1_000_000_000, math.MaxInt} {
		w = do(t, h, "POST", "/plan", map[string]any{"origin": "A", "destination": "B", "days": days})
		assert.Equal(t, http.StatusBadRequest, w.Code, "days=%d", days)
		assert.Equal(t, classValidation, decode[errorResponse](t, w).Class)
	}

	failing, err := NewHandler(session.NewManager(memory.NewStore(), memory.NewProfileStore()),
		planner.New(planner.WithWeatherForecaster(failingWeather{})))
	require.NoError(t, err)
	w = do(t, failing, "POST", "/plan", map[string]any{"origin": "A", "destination": "B", "days": 2})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	res := decode[errorResponse](t, w)
	assert.Equal(t, classUpstream, res.Class)
	assert.Contains(t, res.Error, "weather_agent")
}

func TestListAgents(t *testing.T) {
	w := do(t, newTestHandler(t, nil), "GET", "/agents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agents":["route_planner","gear_agent","weather_agent","permits_agent"]}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, nil, WithCORSOrigins("https://app.byland.ai"))

	req := httptest.NewRequest("OPTIONS", "/plan", nil)
	req.Header.Set("Origin", "https://app.byland.ai")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.byland.ai", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, newTestHandler(t, nil), "GET", "/health", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("byland_up 1\n"))
	})
	w := do(t, newTestHandler(t, nil, WithMetricsHandler(metrics)), "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "byland_up 1\n", w.Body.String())
}

func TestSubscribeTurns(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/hiker_profiles/chat/s1/events?watch=state", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	body := strings.NewReader(`{"user_input":"hi"}`)
	post, err := http.Post(srv.URL+"/hiker_profiles/chat/s1", "application/json", body)
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var diff domain.TurnDiff
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &diff))
		require.NotNil(t, diff.CurrentState)
		assert.Equal(t, domain.StateExperience, *diff.CurrentState)
		assert.Len(t, diff.Appended, 1)
		return
	}
}

func TestMatchesWatch(t *testing.T) {
	state := domain.StateGear
	withState, _ := json.Marshal(domain.TurnDiff{CurrentState: &state})
	plain, _ := json.Marshal(domain.TurnDiff{})

	assert.True(t, matchesWatch(string(withState), []string{"state"}))
	assert.False(t, matchesWatch(string(plain), []string{"state", "profile"}))
	assert.True(t, matchesWatch("not json", []string{"state"}))
}
