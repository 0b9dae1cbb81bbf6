package seed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/postconfctl/internal/auth"
	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/danmuck/postconfctl/internal/seeds"
	"github.com/danmuck/postconfctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPostfix struct {
	values map[string]string
	writes int
}

func (s *stubPostfix) Describe(_ context.Context, name string) error {
	if _, ok := s.values[name]; !ok {
		return errors.New("postconf: warning: " + name + ": unknown parameter")
	}
	return nil
}

func (s *stubPostfix) Value(_ context.Context, name string) (string, error) {
	return s.values[name], nil
}

func (s *stubPostfix) Set(_ context.Context, name, value string) error {
	s.writes++
	s.values[name] = value
	return nil
}

func (s *stubPostfix) DeleteFromFile(_ context.Context, name string) error {
	s.writes++
	return nil
}

func (s *stubPostfix) Match(context.Context, string, string) (bool, error) {
	return false, nil
}

func newTestAgent(t *testing.T) (*Agent, *stubPostfix) {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	pf := &stubPostfix{values: map[string]string{"mailname": "", "message_drop_headers": "X-other-header", "message_size_limit": "10240000"}}
	registry := seeds.NewRegistry()
	require.NoError(t, registry.Register(seeds.NewPostfixSeed(pf, postconf.SubstringMatcher{})))

	a := Appear("postconfctl-test", "127.0.0.1:0", nil, registry)
	a.RegisterRoutes()
	return a, pf
}

func post(t *testing.T, a *Agent, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(rr, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body=%s", rr.Body.String())
	return rr, out
}

func TestActionSetsParameter(t *testing.T) {
	a, pf := newTestAgent(t)

	rr, body := post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"mailname","value":"mail.example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "mail.example.com", pf.values["mailname"])

	rr, body = post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"mailname","value":"mail.example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, body["changed"])
	assert.Equal(t, 1, pf.writes)
}

func TestActionCheckModeBoolean(t *testing.T) {
	a, pf := newTestAgent(t)

	rr, body := post(t, a, "/seeds/seed.postfix/actions/append", `{"name":"message_drop_headers","value":"X-our-header","check_mode":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, 0, pf.writes)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "X-other-header X-our-header", data["value"])
}

func TestActionErrorStatus(t *testing.T) {
	a, _ := newTestAgent(t)
	cases := []struct {
		path string
		body string
		code int
	}{
		{"/seeds/seed.missing/actions/present", `{"name":"mailname"}`, http.StatusNotFound},
		{"/seeds/seed.postfix/actions/restart", `{"name":"mailname"}`, http.StatusNotFound},
		{"/seeds/seed.postfix/actions/present", `{"name":"no_such_param"}`, http.StatusBadRequest},
		{"/seeds/seed.postfix/actions/present", `{}`, http.StatusBadRequest},
		{"/seeds/seed.postfix/actions/present", `{not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr, body := post(t, a, tc.path, tc.body)
		assert.Equal(t, tc.code, rr.Code, "%s %s", tc.path, tc.body)
		assert.Equal(t, "error", body["status"])
	}
}

func TestHealthAndSeedListing(t *testing.T) {
	a, _ := newTestAgent(t)

	for _, path := range []string{"/health", "/ready", "/seeds"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		a.HTTPRouter().ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/seeds", nil)
	rr := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `"id":"seed.postfix"`)
	assert.Contains(t, rr.Body.String(), `"name":"append"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(postconf.ErrMutationFailed))
	assert.Equal(t, http.StatusBadGateway, statusFor(postconf.ErrQuery))
	assert.Equal(t, http.StatusBadRequest, statusFor(postconf.ErrInvalidIntent))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestActionRequiresTokenWhenConfigured(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	pf := &stubPostfix{values: map[string]string{"mailname": ""}}
	registry := seeds.NewRegistry()
	require.NoError(t, registry.Register(seeds.NewPostfixSeed(pf, nil)))
	a := Appear("postconfctl-test", "127.0.0.1:0", nil, registry)
	a.Auth = auth.StaticToken{Token: "s3cret"}
	a.RegisterRoutes()

	rr, body := post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"mailname","value":"mx"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, 0, pf.writes)

	req := httptest.NewRequest(http.MethodPost, "/seeds/seed.postfix/actions/present", strings.NewReader(`{"name":"mailname","value":"mx"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	ok := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "mx", pf.values["mailname"])

	health := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestActionKeepsNumericLiterals(t *testing.T) {
	a, pf := newTestAgent(t)

	rr, body := post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"message_size_limit","value":51200000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "51200000", pf.values["message_size_limit"])
	assert.Equal(t, "Parameter message_size_limit was set to '51200000'.", body["msg"])

	rr, _ = post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"message_size_limit","value":1.5e3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1.5e3", pf.values["message_size_limit"])
}

func TestActionRejectsNestedArgs(t *testing.T) {
	a, pf := newTestAgent(t)

	rr, body := post(t, a, "/seeds/seed.postfix/actions/present", `{"name":"mailname","value":["a","b"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, 0, pf.writes)
}
