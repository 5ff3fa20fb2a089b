package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/session"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, persona string) (*model.RunState, error) {
	args := m.Called(ctx, persona)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunState), args.Error(1)
}

const testKey = "secret-key"

func newTestServer(r session.Runner) http.Handler {
	return New(session.NewManager(r, 10), Config{
		APIKeys: map[string]string{testKey: "alice"},
	}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func succeeded() *model.RunState {
	return &model.RunState{
		Persona: "CFOs",
		Status:  model.RunStatusSucceeded,
		Results: model.ResultSet{{Name: "Jane", Email: "jane@acme.io", Company: "Acme", Title: "CFO", Confidence: 75, Source: "Web Search"}},
	}
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(&mockRunner{}), http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	rr := do(t, newTestServer(&mockRunner{}), http.MethodGet, "/metrics", "", false)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestAuth(t *testing.T) {
	h := newTestServer(&mockRunner{})

	rr := do(t, h, http.MethodGet, "/v1/history", "", false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/history", http.NoBody)
	req.Header.Set("Authorization", "Basic abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/history", http.NoBody)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid api key")
}

func TestSearch_JSON(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(succeeded(), nil)
	h := newTestServer(r)

	rr := do(t, h, http.MethodPost, "/v1/searches", `{"persona":"CFOs"}`, true)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.RunState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	assert.Equal(t, "alice", got.User)
	assert.Equal(t, []string{"jane@acme.io"}, got.Results.Emails())

	rr = do(t, h, http.MethodGet, "/v1/history", "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	var hist map[string][]model.HistoryEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Len(t, hist["history"], 1)
	assert.Equal(t, 1, hist["history"][0].ResultCount)
}

func TestSearch_CSV(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(succeeded(), nil)

	rr := do(t, newTestServer(r), http.MethodPost, "/v1/searches?format=csv", `{"persona":"CFOs"}`, true)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "Name,Email,Company,Title,Confidence,Source\nJane,jane@acme.io,Acme,CFO,75,Web Search\n", rr.Body.String())
}

func TestSearch_XLSX(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(succeeded(), nil)

	rr := do(t, newTestServer(r), http.MethodPost, "/v1/searches?format=xlsx", `{"persona":"CFOs"}`, true)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))
}

func TestSearch_BadRequests(t *testing.T) {
	h := newTestServer(&mockRunner{})

	rr := do(t, h, http.MethodPost, "/v1/searches", `not json`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/searches?format=pdf", `{"persona":"CFOs"}`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearch_EmptyPersona(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "").Return(
		&model.RunState{Status: model.RunStatusFailed, Message: resilience.CategoryInput.Message()},
		eris.Wrap(resilience.ErrInput, "pipeline: persona is empty"),
	)

	rr := do(t, newTestServer(r), http.MethodPost, "/v1/searches", `{"persona":""}`, true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), resilience.CategoryInput.Message())
}

func TestSearch_FailedOutcome(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(
		&model.RunState{Status: model.RunStatusFailed, Message: resilience.CategoryNetwork.Message()},
		errors.New("connection refused"),
	)

	rr := do(t, newTestServer(r), http.MethodPost, "/v1/searches", `{"persona":"CFOs"}`, true)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var got model.RunState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestSearch_Conflict(t *testing.T) {
	r := &mockRunner{}
	started := make(chan struct{})
	release := make(chan struct{})
	r.On("Run", mock.Anything, "first").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(succeeded(), nil)
	h := newTestServer(r)

	done := make(chan int, 1)
	go func() {
		done <- do(t, h, http.MethodPost, "/v1/searches", `{"persona":"first"}`, true).Code
	}()
	<-started

	rr := do(t, h, http.MethodPost, "/v1/searches", `{"persona":"second"}`, true)
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&mockRunner{})
	req := httptest.NewRequest(http.MethodOptions, "/v1/searches", http.NoBody)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
