package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesID(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rid := rec.Header().Get("X-Request-ID"); rid == "" {
		t.Fatal("expected generated X-Request-ID header")
	}
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rid := rec.Header().Get("X-Request-ID"); rid != "caller-supplied-id" {
		t.Errorf("expected caller-supplied-id, got %q", rid)
	}
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecoveryCatchesPanic(t *testing.T) {
	e := echo.New()
	e.GET("/panic", func(c echo.Context) error {
		panic("boom")
	}, Recovery(zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, Recovery(zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Logger
// ---------------------------------------------------------------------------

func TestLoggerDoesNotAlterResponse(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, Logger(zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body ok, got %q", rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// BodyLimit
// ---------------------------------------------------------------------------

func TestBodyLimitAllowsSmallBody(t *testing.T) {
	e := echo.New()
	e.POST("/mcu-records", okHandler, BodyLimit(64, 1024))

	req := httptest.NewRequest(http.MethodPost, "/mcu-records", strings.NewReader(`{"nama":"Budi"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBodyLimitRejectsOversizedBody(t *testing.T) {
	e := echo.New()
	e.POST("/mcu-records", okHandler, BodyLimit(16, 1024))

	req := httptest.NewRequest(http.MethodPost, "/mcu-records", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestBodyLimitUploadPathsGetLargerLimit(t *testing.T) {
	e := echo.New()
	mw := BodyLimit(16, 1024)
	e.POST("/mcu-records/upload", func(c echo.Context) error {
		// Drain the body the way a multipart parser would.
		buf := make([]byte, 128)
		for {
			if _, err := c.Request().Body.Read(buf); err != nil {
				break
			}
		}
		return c.NoContent(http.StatusOK)
	}, mw)

	body := strings.Repeat("x", 512) // over default, under upload limit
	req := httptest.NewRequest(http.MethodPost, "/mcu-records/upload", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for upload path, got %d", rec.Code)
	}
}

func TestBodyLimitRejectsOversizedUpload(t *testing.T) {
	e := echo.New()
	e.POST("/patients/bulk-upload", okHandler, BodyLimit(16, 256))

	req := httptest.NewRequest(http.MethodPost, "/patients/bulk-upload", strings.NewReader(strings.Repeat("x", 512)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set("X-Real-IP", "10.0.0.1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set("X-Real-IP", "10.0.0.2")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", rec.Code)
	}
}
