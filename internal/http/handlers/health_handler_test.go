package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func serveHealth(p Pinger) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health", Health(p))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func TestHealth(t *testing.T) {
	w := serveHealth(pingerFunc(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("ping must carry a deadline")
		}
		return nil
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("healthy = %d", w.Code)
	}
	if got := decodeData[HealthResponse](t, w); got.Status != "ok" || got.Database != "ok" {
		t.Fatalf("unexpected body %+v", got)
	}

	w = serveHealth(pingerFunc(func(context.Context) error { return errors.New("locked") }))
	if w.Code != http.StatusServiceUnavailable || decodeErr(t, w).Code != "unhealthy" {
		t.Fatalf("ping failure = %d %s", w.Code, w.Body.String())
	}

	w = serveHealth(nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no database = %d", w.Code)
	}
}
