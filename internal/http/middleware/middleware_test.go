package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/telemetry"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	session *auth.Session
	tokens  []string
}

func (f *fakeResolver) ResolveSession(token string) (*auth.Session, error) {
	f.tokens = append(f.tokens, token)
	if token != "good" {
		return nil, apperr.Authentication("Unauthorized")
	}
	return f.session, nil
}

func run(mw echo.MiddlewareFunc, req *http.Request, next echo.HandlerFunc) (echo.Context, *httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec, mw(next)(c)
}

func TestSessionAuth(t *testing.T) {
	session := &auth.Session{UserID: uuid.New(), TenantID: uuid.New(), Role: auth.RoleSales}
	resolver := &fakeResolver{session: session}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	tests := []struct {
		name   string
		header string
		kind   apperr.Kind
	}{
		{"missing header", "", apperr.KindAuthentication},
		{"wrong scheme", "Basic abc", apperr.KindAuthentication},
		{"bad token", "Bearer nope", apperr.KindAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c, _, err := run(SessionAuth(resolver), req, ok)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Nil(t, SessionFrom(c))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	c, rec, err := run(SessionAuth(resolver), req, ok)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, session, SessionFrom(c))
	tenantID, found := TenantFrom(c)
	assert.True(t, found)
	assert.Equal(t, session.TenantID, tenantID)
	assert.Equal(t, []string{"nope", "good"}, resolver.tokens)
}

func TestRequestID(t *testing.T) {
	next := func(c echo.Context) error {
		assert.NotEmpty(t, c.Get(requestIDKey))
		return nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	_, rec, err := run(RequestID(), req, next)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))

	_, rec, err = run(RequestID(), httptest.NewRequest(http.MethodGet, "/", nil), next)
	require.NoError(t, err)
	_, err = uuid.Parse(rec.Header().Get(echo.HeaderXRequestID))
	assert.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit("ten per minute")
	assert.Error(t, err)

	mw, err := RateLimit("2-M")
	require.NoError(t, err)

	e := echo.New()
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	call := func(ip string) error {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", nil)
		req.RemoteAddr = ip + ":5000"
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	require.NoError(t, call("10.0.0.1"))
	require.NoError(t, call("10.0.0.1"))
	err = call("10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))

	// limits are per client address
	assert.NoError(t, call("10.0.0.2"))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(apperr.NotFound("Not found")))
	assert.Equal(t, http.StatusForbidden, StatusOf(apperr.QuotaExceeded("full", 1, 1)))
	assert.Equal(t, http.StatusBadRequest, StatusOf(echo.NewHTTPError(http.StatusBadRequest)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestRequestLoggerRendersErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequestLogger(nil)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStackLogsPanics(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(Stack(metrics)...)
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "500")))
}
