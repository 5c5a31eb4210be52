package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenRefill(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	l := New(1, 2)
	l.now = func() time.Time { return at }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	at = at.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestIdleKeysAreSwept(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return at }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	at = at.Add(11 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	l := New(0.001, 1)
	e.GET("/signal", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, l.Middleware())

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/signal", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"detail":"Too Many Requests"}`, rec.Body.String())
}
