package blobstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func seedObject(t *testing.T, store Store, path, contentType, content string) *ObjectInfo {
	t.Helper()
	info, err := store.Upload(context.Background(), path, contentType, strings.NewReader(content))
	if err != nil {
		t.Fatalf("seedObject: %v", err)
	}
	return info
}

// ---------------------------------------------------------------------------
// Store tests
// ---------------------------------------------------------------------------

func TestMemoryStoreUpload(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	content := "hello world"

	info, err := store.Upload(context.Background(), "cases/c1/photo1/foto.jpg", "image/jpeg", strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Path != "cases/c1/photo1/foto.jpg" {
		t.Errorf("expected path=cases/c1/photo1/foto.jpg, got %s", info.Path)
	}
	if info.ContentType != "image/jpeg" {
		t.Errorf("expected ContentType=image/jpeg, got %s", info.ContentType)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), info.Size)
	}
	if info.Hash == "" {
		t.Fatal("expected non-empty Hash")
	}
	if info.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
}

func TestMemoryStoreUploadRequiresPath(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")

	_, err := store.Upload(context.Background(), "", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, ErrMissingPath) {
		t.Errorf("expected ErrMissingPath, got %v", err)
	}
}

func TestMemoryStoreOpen(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	content := "binary-content-here"

	seedObject(t, store, "cases/c1/lab_result/hasil.pdf", "application/pdf", content)

	rc, info, err := store.Open(context.Background(), "cases/c1/lab_result/hasil.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("error reading content: %v", err)
	}
	if string(data) != content {
		t.Errorf("expected content=%q, got %q", content, string(data))
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("expected ContentType=application/pdf, got %s", info.ContentType)
	}
}

func TestMemoryStoreOpenNotFound(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")

	_, _, err := store.Open(context.Background(), "missing/path")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStoreUploadReplacesExisting(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")

	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/jpeg", "first")
	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/png", "second version")

	rc, info, err := store.Open(context.Background(), "cases/c1/photo1/foto.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "second version" {
		t.Errorf("expected replaced content, got %q", string(data))
	}
	if info.ContentType != "image/png" {
		t.Errorf("expected ContentType=image/png, got %s", info.ContentType)
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/jpeg", "x")

	if err := store.Remove(context.Background(), "cases/c1/photo1/foto.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "cases/c1/photo1/foto.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound after remove, got %v", err)
	}
	if err := store.Remove(context.Background(), "cases/c1/photo1/foto.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound for second remove, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Signed URL tests
// ---------------------------------------------------------------------------

func TestSignedURLContainsSignatureAndExpiry(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/jpeg", "x")

	signed, err := store.SignedURL(context.Background(), "cases/c1/photo1/foto.jpg", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed URL: %v", err)
	}
	q := u.Query()
	if q.Get("path") != "cases/c1/photo1/foto.jpg" {
		t.Errorf("expected path param, got %q", q.Get("path"))
	}
	if q.Get("sig") == "" {
		t.Error("expected non-empty sig param")
	}
	if q.Get("exp") == "" {
		t.Error("expected non-empty exp param")
	}
}

func TestSignedURLUnknownObject(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")

	_, err := store.SignedURL(context.Background(), "missing/path", time.Hour)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/jpeg", "x")

	signed, err := store.SignedURL(context.Background(), "cases/c1/photo1/foto.jpg", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, _ := url.Parse(signed)
	exp, _ := strconv.ParseInt(q.Query().Get("exp"), 10, 64)
	sig := q.Query().Get("sig")

	if err := store.VerifySignature("cases/c1/photo1/foto.jpg", exp, sig); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
	if err := store.VerifySignature("cases/c1/photo1/foto.jpg", exp, sig+"00"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for tampered sig, got %v", err)
	}
	if err := store.VerifySignature("cases/other/path", exp, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for wrong path, got %v", err)
	}
}

func TestVerifySignatureExpired(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	store.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	seedObject(t, store, "cases/c1/photo1/foto.jpg", "image/jpeg", "x")

	signed, err := store.SignedURL(context.Background(), "cases/c1/photo1/foto.jpg", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, _ := url.Parse(signed)
	exp, _ := strconv.ParseInt(q.Query().Get("exp"), 10, 64)
	sig := q.Query().Get("sig")

	store.now = func() time.Time { return time.Date(2025, 6, 1, 12, 2, 0, 0, time.UTC) }
	if err := store.VerifySignature("cases/c1/photo1/foto.jpg", exp, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature after expiry, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestHandlerSignedDownload(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	seedObject(t, store, "cases/c1/lab_result/hasil.pdf", "application/pdf", "pdf-bytes")

	signed, err := store.SignedURL(context.Background(), "cases/c1/lab_result/hasil.pdf", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse(signed)

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/files/signed?"+u.RawQuery, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "pdf-bytes" {
		t.Errorf("expected body=pdf-bytes, got %q", rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("expected Content-Type=application/pdf, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="hasil.pdf"`) {
		t.Errorf("expected attachment filename, got %q", cd)
	}
}

func TestHandlerRejectsTamperedSignature(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")
	seedObject(t, store, "cases/c1/lab_result/hasil.pdf", "application/pdf", "pdf-bytes")

	signed, _ := store.SignedURL(context.Background(), "cases/c1/lab_result/hasil.pdf", time.Hour)
	u, _ := url.Parse(signed)
	q := u.Query()
	q.Set("sig", "deadbeef")

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/files/signed?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandlerRejectsBadExpiry(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files")

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/files/signed?path=x&exp=notanumber&sig=abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
