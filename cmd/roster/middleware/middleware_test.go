package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/common/auth"
	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/idempotency"
	"github.com/lyzr/coffeeroster/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSession(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue()
	require.NoError(t, err)

	e := echo.New()
	e.GET("/api/participants", func(c echo.Context) error {
		claims := GetSession(c)
		require.NotNil(t, claims)
		return c.String(http.StatusOK, claims.Subject)
	}, RequireSession(issuer))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-token", want: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/participants", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, auth.Subject, rec.Body.String())
			}
		})
	}
}

type idempotencyFixture struct {
	e     *echo.Echo
	calls atomic.Int32
}

func newIdempotencyFixture(t *testing.T, status int) *idempotencyFixture {
	t.Helper()
	c := cache.NewMemoryCache(logger.Discard())
	t.Cleanup(func() { _ = c.Close() })

	f := &idempotencyFixture{e: echo.New()}
	store := idempotency.NewStore(c, time.Hour)
	f.e.POST("/api/purchases", func(c echo.Context) error {
		n := f.calls.Add(1)
		return c.JSON(status, map[string]interface{}{"id": n})
	}, Idempotency(store, logger.Discard()))
	return f
}

func (f *idempotencyFixture) post(key string) *httptest.ResponseRecorder {
	return f.postBody(key, `{"participant_id":1}`)
}

func (f *idempotencyFixture) postBody(key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	first := f.post("abc")
	second := f.post("abc")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Empty(t, first.Header().Get(HeaderIdempotencyReplayed))
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotencyReplayed))
	assert.Equal(t, int32(1), f.calls.Load())

	f.post("other")
	assert.Equal(t, int32(2), f.calls.Load(), "a new key runs the handler")
}

func TestIdempotency_ReusedKeyWithOtherBodyIsRejected(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	first := f.postBody("abc", `{"participant_id":1}`)
	second := f.postBody("abc", `{"participant_id":2}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Empty(t, second.Header().Get(HeaderIdempotencyReplayed))
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestIdempotency_HandlerStillReadsBody(t *testing.T) {
	c := cache.NewMemoryCache(logger.Discard())
	t.Cleanup(func() { _ = c.Close() })
	store := idempotency.NewStore(c, time.Hour)

	e := echo.New()
	e.POST("/api/purchases", func(c echo.Context) error {
		var req struct {
			ParticipantID int64 `json:"participant_id"`
		}
		if err := c.Bind(&req); err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, req)
	}, Idempotency(store, logger.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(`{"participant_id":7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"participant_id":7}`, rec.Body.String())
}

func TestIdempotency_NoKeyIsNotIdempotent(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	f.post("")
	f.post("")

	assert.Equal(t, int32(2), f.calls.Load())
}

func TestIdempotency_ServerErrorsAreRetryable(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusInternalServerError)

	f.post("abc")
	rec := f.post("abc")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderIdempotencyReplayed))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestIdempotency_InFlightDuplicateConflicts(t *testing.T) {
	c := cache.NewMemoryCache(logger.Discard())
	t.Cleanup(func() { _ = c.Close() })
	store := idempotency.NewStore(c, time.Hour)

	// simulate a first attempt that is still running
	rec, err := store.Begin(context.Background(), "POST /api/purchases", "abc", idempotency.Fingerprint(nil))
	require.NoError(t, err)
	require.Nil(t, rec)

	e := echo.New()
	e.POST("/api/purchases", func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	}, Idempotency(store, logger.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	assert.Equal(t, http.StatusConflict, res.Code)
}
