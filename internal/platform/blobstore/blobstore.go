// Package blobstore provides file storage for uploaded medical documents.
// It defines the Store interface, a thread-safe in-memory implementation
// suitable for testing and single-node deployments, and an Echo HTTP handler
// that serves signed, time-limited download URLs.
package blobstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrMissingPath      = errors.New("object path is required")
	ErrInvalidSignature = errors.New("invalid or expired signature")
)

// MaxFileSize is the maximum allowed object size in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store defines the contract for blob storage backends.
type Store interface {
	Upload(ctx context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error)
	Open(ctx context.Context, path string) (io.ReadCloser, *ObjectInfo, error)
	Remove(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	info    ObjectInfo
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store. Signed URLs are HMAC-signed
// against a per-store secret and served by the Handler below.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewMemoryStore returns a ready-to-use MemoryStore. baseURL is the public
// prefix under which the signed-download handler is mounted, e.g.
// "http://localhost:8000/api/v1/files".
func NewMemoryStore(baseURL string) *MemoryStore {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("blobstore: read random secret: %v", err))
	}
	return &MemoryStore{
		objects: make(map[string]*storedObject),
		secret:  secret,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Upload reads the content, computes a SHA-256 hash, and stores the object
// under path, replacing any previous object at the same path.
func (s *MemoryStore) Upload(_ context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error) {
	if path == "" {
		return nil, ErrMissingPath
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	info := ObjectInfo{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", h),
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.objects[path] = &storedObject{info: info, content: data}
	s.mu.Unlock()

	out := info // copy
	return &out, nil
}

// Open returns an io.ReadCloser over the object content and its info.
func (s *MemoryStore) Open(_ context.Context, path string) (io.ReadCloser, *ObjectInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrObjectNotFound
	}

	info := obj.info // copy
	return io.NopCloser(bytes.NewReader(obj.content)), &info, nil
}

// Remove deletes an object by path.
func (s *MemoryStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[path]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, path)
	return nil
}

// SignedURL returns a time-limited download URL for the object at path. The
// URL embeds an expiry timestamp and an HMAC signature over path and expiry;
// it remains valid for ttl even if issued again later.
func (s *MemoryStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[path]
	s.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}

	exp := s.now().Add(ttl).Unix()
	sig := s.sign(path, exp)

	q := url.Values{}
	q.Set("path", path)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)

	return s.baseURL + "/signed?" + q.Encode(), nil
}

func (s *MemoryStore) sign(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", path, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a path/expiry/signature triple issued by SignedURL.
func (s *MemoryStore) VerifySignature(path string, exp int64, sig string) error {
	if s.now().Unix() > exp {
		return ErrInvalidSignature
	}
	expected := s.sign(path, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP handler
// ---------------------------------------------------------------------------

// Handler serves signed download URLs issued by a MemoryStore.
type Handler struct {
	store *MemoryStore
}

// NewHandler creates a new Handler.
func NewHandler(store *MemoryStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the signed download route on the supplied Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/files/signed", h.handleSignedDownload)
}

func (h *Handler) handleSignedDownload(c echo.Context) error {
	path := c.QueryParam("path")
	exp, err := strconv.ParseInt(c.QueryParam("exp"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid expiry"})
	}

	if err := h.store.VerifySignature(path, exp, c.QueryParam("sig")); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}

	rc, info, err := h.store.Open(c.Request().Context(), path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepathBase(path)))
	return c.Stream(http.StatusOK, info.ContentType, rc)
}

func filepathBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
