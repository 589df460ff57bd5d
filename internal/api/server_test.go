package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/ai/rules"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/intake"
	"github.com/spigell/broker-genie/internal/plans"
	"github.com/spigell/broker-genie/internal/set"
)

type testEnv struct {
	handler  http.Handler
	clients  *clients.MemoryRepository
	activity *activity.Memory
}

func newTestEnv(t *testing.T, assistant ai.Assistant) *testEnv {
	t.Helper()

	src := catalog.NewStatic(catalog.Document{
		Plans: []*plans.Plan{
			{ID: "1", CompanyName: "Acme", ProductName: "Silver", ProductCategory: "Medical", MonthlyPrice: 300},
			{ID: "2", CompanyName: "Acme", ProductName: "Smile", ProductCategory: "Dental", MonthlyPrice: 25, DisqualifyingHealthConditions: set.New("Diabetes")},
			{ID: "3", CompanyName: "Empire", ProductName: "View", ProductCategory: "Vision", MonthlyPrice: 12, AvailableStates: set.New("NY")},
		},
		HealthConditions: []string{"Diabetes"},
		Medications:      []string{"Insulin"},
	})
	repo := clients.NewMemoryRepository()
	store := activity.NewMemory()

	if assistant == nil {
		assistant = rules.New()
	}

	srv := New(Options{
		Catalog:   src,
		Intake:    intake.New(src, repo, store, nil),
		Clients:   repo,
		Activity:  store,
		Assistant: assistant,
	})

	return &testEnv{handler: srv.Routes(), clients: repo, activity: store}
}

func (e *testEnv) do(t *testing.T, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func planIDs(ps []*plans.Plan) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestListPlans(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/plans?sort=price&order=desc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[plansResponse](t, rec)
	assert.Equal(t, []string{"1", "2", "3"}, planIDs(resp.Plans))
	assert.Equal(t, []string{"Medical", "Dental", "Vision"}, resp.Categories)

	rec = env.do(t, http.MethodGet, "/api/plans?category=Dental", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2"}, planIDs(decodeBody[plansResponse](t, rec).Plans))

	rec = env.do(t, http.MethodGet, "/api/plans?search=nothing-like-this", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"plans":[],"categories":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/plans?sort=rating", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/plans?order=sideways", "", nil).Code)
}

func TestMatch(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/match", "broker-1", map[string]any{
		"full_name":         "Jane Roe",
		"state":             "CA",
		"health_conditions": []string{"Diabetes"},
		"height":            "170",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeBody[intake.Result](t, rec)
	assert.Equal(t, []string{"1"}, planIDs(res.Plans))
	assert.False(t, res.Saved)
	assert.Equal(t, "Jane Roe", res.Client.FullName)

	list, err := env.clients.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list, "match must not persist clients")

	entries, err := env.activity.List(context.Background(), "broker-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.TypePlanMatch, entries[0].Type)
}

func TestMatchRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{name: "malformed json", body: `{"full_name":`},
		{name: "missing name", body: map[string]any{"state": "CA"}},
		{name: "unknown field", body: map[string]any{"full_name": "Jane", "favourite_color": "blue"}},
		{name: "two spouses", body: map[string]any{
			"full_name": "Jane",
			"dependents": []map[string]any{
				{"relationship": "spouse", "full_name": "John"},
				{"relationship": "spouse", "full_name": "Jim"},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/match", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestIntakePersistsClient(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/intake?sort=price", "broker-1", map[string]any{
		"full_name": "Jane Roe",
		"state":     "NY",
		"dependents": []map[string]any{
			{"relationship": "spouse", "full_name": "John Roe"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decodeBody[intake.Result](t, rec)
	assert.True(t, res.Saved)
	assert.Equal(t, []string{"3", "2", "1"}, planIDs(res.Plans))

	rec = env.do(t, http.MethodGet, "/api/clients", "broker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]*clients.Client](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, res.Client.ID, list[0].ID)

	rec = env.do(t, http.MethodGet, "/api/clients/"+res.Client.ID, "broker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[clients.Client](t, rec)
	require.Len(t, got.Dependents, 1)
	assert.Equal(t, clients.RelationshipSpouse, got.Dependents[0].Relationship)

	rec = env.do(t, http.MethodGet, "/api/clients", "broker-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetClientNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/clients/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, clients.ErrNotFound.Error(), decodeBody[errorResponse](t, rec).Error)
}

type failingAssistant struct{}

func (failingAssistant) Name() string { return "broken" }

func (failingAssistant) Answer(context.Context, string, *ai.KnowledgeBase) (string, error) {
	return "", errors.New("model unavailable")
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat", "broker-1", chatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rules.HelpMessage, decodeBody[chatResponse](t, rec).Response)

	rec = env.do(t, http.MethodPost, "/api/chat", "broker-1", chatRequest{Message: "Which plans does Empire offer?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[chatResponse](t, rec).Response, "Empire")

	entries, err := env.activity.List(context.Background(), "broker-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.TypeAIChat, entries[0].Type)
	assert.EqualValues(t, len("Which plans does Empire offer?"), entries[0].Details["message_length"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/chat", "", chatRequest{Message: "  "}).Code)
}

func TestChatAnonymousIsNotRecorded(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat", "", chatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := env.activity.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChatAssistantFailure(t *testing.T) {
	env := newTestEnv(t, failingAssistant{})

	rec := env.do(t, http.MethodPost, "/api/chat", "", chatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ai.ErrorReply, decodeBody[chatResponse](t, rec).Response)
}

func TestTimeSaved(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.activity.Record(ctx, activity.NewEntry("broker-1", activity.TypeClientIntake, nil)))
	require.NoError(t, env.activity.Record(ctx, activity.NewEntry("broker-1", activity.TypeCallAnalysis, nil)))
	require.NoError(t, env.activity.Record(ctx, activity.NewEntry("broker-1", activity.TypeAIChat, nil)))
	require.NoError(t, env.activity.Record(ctx, activity.NewEntry("broker-2", activity.TypePlanMatch, nil)))

	rec := env.do(t, http.MethodGet, "/api/activity/time-saved", "broker-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[activity.Summary](t, rec)
	assert.Equal(t, 3, summary.Activities)
	assert.Equal(t, 40, summary.Minutes)
	assert.Equal(t, "40m", summary.Formatted)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/activity/time-saved", "", nil).Code)
}

type failingRepo struct {
	clients.Repository
}

func (failingRepo) List(context.Context, string) ([]*clients.Client, error) {
	return nil, errors.New("connection refused")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	srv := New(Options{Clients: failingRepo{}})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv := New(Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", userIDHeader)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- New(Options{}).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}
