// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/campusvote/internal/auth"
	"codeberg.org/oliverandrich/campusvote/internal/config"
	"codeberg.org/oliverandrich/campusvote/internal/handlers"
	"codeberg.org/oliverandrich/campusvote/internal/repository"
	authsvc "codeberg.org/oliverandrich/campusvote/internal/services/auth"
	"codeberg.org/oliverandrich/campusvote/internal/services/events"
	"codeberg.org/oliverandrich/campusvote/internal/services/otp"
	"codeberg.org/oliverandrich/campusvote/internal/services/results"
	"codeberg.org/oliverandrich/campusvote/internal/services/session"
	"codeberg.org/oliverandrich/campusvote/internal/services/voting"
	"codeberg.org/oliverandrich/campusvote/internal/sse"
	"codeberg.org/oliverandrich/campusvote/internal/testutil"
)

const testHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type fakeSender struct {
	mu    sync.Mutex
	sent  map[string]string
	links map[string]string
	err   error
}

func (f *fakeSender) SendOTP(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent[to] = code
	return nil
}

func (f *fakeSender) SendPasswordReset(_ context.Context, to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.links[to] = link
	return nil
}

func (f *fakeSender) link(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[to]
}

func (f *fakeSender) last(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[to]
}

type testEnv struct {
	e        *echo.Echo
	repo     *repository.Repository
	sender   *fakeSender
	sessions *session.Manager
	hub      *sse.Hub
	results  *results.Service
	otp      *handlers.OTPHandlers
	student  *handlers.StudentHandlers
	admin    *handlers.AdminHandlers
	tally    *handlers.ResultsHandlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	sessions, err := session.NewManager(&config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     3600,
		HashKey:    testHashKey,
	}, false)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	sender := &fakeSender{sent: map[string]string{}, links: map[string]string{}}
	hub := sse.NewHub()
	resultsSvc := results.NewService(repo, hub, nil)
	votingSvc := voting.NewService(repo, resultsSvc, events.Options{})
	authSvc := authsvc.NewService(repo, authsvc.WithPasswordReset(sender, "https://vote.uni.edu", 0))

	env := &testEnv{
		e:        e,
		repo:     repo,
		sender:   sender,
		sessions: sessions,
		hub:      hub,
		results:  resultsSvc,
		otp:      handlers.NewOTP(otp.NewService(repo, sender, 10*time.Minute), sessions, false),
		student:  handlers.NewStudent(votingSvc, sessions),
		admin:    handlers.NewAdmin(repo, authSvc, sessions, events.Options{}),
		tally:    handlers.NewResults(repo, resultsSvc, hub),
	}
	env.routes()
	return env
}

// routes registers the parameterised admin routes so contexts are sized
// for their path parameters.
func (env *testEnv) routes() {
	admin := env.e.Group("/api/admin")
	admin.PUT("/students/:id", env.admin.UpdateStudent)
	admin.DELETE("/students/:id", env.admin.DeleteStudent)
	admin.DELETE("/positions/:id", env.admin.DeletePosition)
	admin.PUT("/events/:id", env.admin.UpdateEvent)
	admin.GET("/events/:id/results", env.tally.Results)
	admin.GET("/events/:id/results.csv", env.tally.ExportCSV)
	admin.GET("/events/:id/results/stream", env.tally.Stream)
	admin.GET("/events/:id/audit", env.tally.Audit)
}

type call struct {
	method  string
	path    string
	body    string
	session *session.Data
	params  map[string]string
}

func (env *testEnv) do(h echo.HandlerFunc, cl call) *httptest.ResponseRecorder {
	if cl.method == "" {
		cl.method = http.MethodPost
	}
	if cl.path == "" {
		cl.path = "/"
	}
	c, rec := testutil.NewEchoContext(env.e, cl.method, cl.path, strings.NewReader(cl.body))
	if cl.session != nil {
		c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), cl.session)))
	}
	if len(cl.params) > 0 {
		names := slices.Sorted(maps.Keys(cl.params))
		c.SetParamNames(names...)
		c.SetParamValues(lo.Map(names, func(name string, _ int) string { return cl.params[name] })...)
	}
	if err := h(c); err != nil {
		env.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

var adminSession = &session.Data{Role: session.RoleAdmin, SubjectID: "adm-1", Email: "admin@uni.edu"}

type pingFunc func(context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)
	require.NoError(t, handlers.New(nil).Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	db, _ := testutil.NewTestDB(t)
	c, rec = testutil.NewEchoContext(e, http.MethodGet, "/health", nil)
	require.NoError(t, handlers.New(db).Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := pingFunc(func(context.Context) error { return errors.New("down") })
	c, rec = testutil.NewEchoContext(e, http.MethodGet, "/health", nil)
	require.NoError(t, handlers.New(down).Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"http error", echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot, "short and stout"},
		{"not found", repository.ErrNotFound, http.StatusNotFound, "not found"},
		{"duplicate", repository.ErrDuplicate, http.StatusConflict, "already exists"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testutil.NewEchoContext(e, http.MethodGet, "/", nil)
			handlers.ErrorHandler(tt.err, c)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

func TestValidator(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
	}
	v := handlers.NewValidator()
	require.Error(t, v.Validate(&req{}))
	require.NoError(t, v.Validate(&req{Name: "x"}))

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/", nil)
	handlers.ErrorHandler(v.Validate(&req{}), c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Equal(t, map[string]any{"Name": "required"}, body["details"])
}

func TestExportedAPIDocumented(t *testing.T) {
	testutil.AssertDocumented(t, ".")
}
