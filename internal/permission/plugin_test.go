package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/netsense/internal/auth"
	"github.com/HerbHall/netsense/internal/channel"
	"github.com/HerbHall/netsense/internal/config"
	"github.com/HerbHall/netsense/internal/testutil"
	"github.com/HerbHall/netsense/pkg/plugin"
)

func newTestHandler(t *testing.T, m *Manager, secret string) http.Handler {
	t.Helper()
	p := NewPlugin(m, auth.NewVerifier(secret))
	require.NoError(t, p.Init(context.Background(), plugin.Dependencies{
		Config: config.New(nil),
		Logger: testutil.Logger(t),
	}))

	mux := http.NewServeMux()
	for _, route := range p.Routes() {
		mux.HandleFunc(fmt.Sprintf("%s /api/v1/permission%s", route.Method, route.Path), route.Handler)
	}
	return mux
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHTTPListAndResolve(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	h := newTestHandler(t, m, "")
	ctx := context.Background()

	req := m.Request(ctx, ReadPhoneState)

	w := do(h, http.MethodGet, "/api/v1/permission/requests", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var pending []RequestView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
	assert.Equal(t, ReadPhoneState, pending[0].Permission)

	w = do(h, http.MethodGet, "/api/v1/permission/requests/"+req.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodPost, "/api/v1/permission/requests/"+req.ID, `{"granted":true}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view RequestView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, DecisionGranted, view.Decision)
	assert.Equal(t, "user", view.Reason)

	d, err := req.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, d)

	w = do(h, http.MethodPost, "/api/v1/permission/requests/"+req.ID, `{"granted":false}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(h, http.MethodGet, "/api/v1/permission/state", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"prompt","READ_PHONE_STATE":"granted"}`, w.Body.String())
}

func TestHTTPResolveErrors(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	h := newTestHandler(t, m, "")
	req := m.Request(context.Background(), ReadPhoneState)

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"unknown id", "nope", `{"granted":true}`, http.StatusNotFound},
		{"bad json", req.ID, `{`, http.StatusBadRequest},
		{"missing granted", req.ID, `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/v1/permission/requests/"+tt.id, tt.body, "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}

	w := do(h, http.MethodGet, "/api/v1/permission/requests/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, resolved := req.Decision()
	assert.False(t, resolved)
}

func TestHTTPResolveRequiresToken(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	h := newTestHandler(t, m, "s3cret")
	req := m.Request(context.Background(), ReadPhoneState)

	w := do(h, http.MethodPost, "/api/v1/permission/requests/"+req.ID, `{"granted":true}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api/v1/permission/requests", "", "")
	assert.Equal(t, http.StatusOK, w.Code, "reads stay open")

	token, err := auth.NewVerifier("s3cret").Issue("phone-app", time.Minute)
	require.NoError(t, err)
	w = do(h, http.MethodPost, "/api/v1/permission/requests/"+req.ID, `{"granted":false}`, token)
	assert.Equal(t, http.StatusOK, w.Code)

	d, ok := req.Decision()
	require.True(t, ok)
	assert.Equal(t, DecisionDenied, d)
}

func invokePermission(t *testing.T, reg *channel.Registry, method, args string) channel.Envelope {
	t.Helper()
	call := channel.MethodCall{Method: method}
	if args != "" {
		call.Args = json.RawMessage(args)
	}
	return reg.Invoke(context.Background(), ChannelPermission, call).Envelope()
}

func TestChannelResolve(t *testing.T) {
	m, bus := newTestManager(t, ModePrompt, time.Minute)
	reg := channel.NewRegistry()
	require.NoError(t, RegisterChannel(reg, m, auth.NewVerifier("")))

	req := m.Request(context.Background(), ReadPhoneState)

	env := invokePermission(t, reg, "getPendingRequests", "")
	require.Nil(t, env.Error)
	assert.Contains(t, string(env.Result), req.ID)

	env = invokePermission(t, reg, "onRequestPermissionsResult",
		fmt.Sprintf(`{"requestId":%q,"granted":false}`, req.ID))
	require.Nil(t, env.Error)
	var view RequestView
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, DecisionDenied, view.Decision)

	env = invokePermission(t, reg, "onRequestPermissionsResult",
		fmt.Sprintf(`{"requestId":%q,"granted":true}`, req.ID))
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeAlreadyResolved, env.Error.Code)

	assert.Equal(t, 1, bus.Count(TopicResolved))
}

func TestChannelErrors(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	reg := channel.NewRegistry()
	require.NoError(t, RegisterChannel(reg, m, auth.NewVerifier("s3cret")))
	req := m.Request(context.Background(), ReadPhoneState)

	token, err := auth.NewVerifier("s3cret").Issue("phone-app", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		args string
		want string
	}{
		{"no args", "", channel.CodeBadArgs},
		{"missing granted", fmt.Sprintf(`{"requestId":%q}`, req.ID), channel.CodeBadArgs},
		{"missing token", fmt.Sprintf(`{"requestId":%q,"granted":true}`, req.ID), CodeUnauthorized},
		{"unknown id", fmt.Sprintf(`{"requestId":"nope","granted":true,"token":%q}`, token), CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := invokePermission(t, reg, "onRequestPermissionsResult", tt.args)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.want, env.Error.Code)
		})
	}

	env := invokePermission(t, reg, "requestPermissions", "")
	assert.True(t, env.NotImplemented)

	_, resolved := req.Decision()
	assert.False(t, resolved)
}
