package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithRole(role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRoleKey, role)
	return req.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		role     string
		wantCode int
	}{
		{"matching role passes", []string{RolePerawat}, RolePerawat, http.StatusOK},
		{"one of several passes", []string{RoleDokter, RolePerawat}, RoleDokter, http.StatusOK},
		{"admin always passes", []string{RoleDokter}, RoleAdmin, http.StatusOK},
		{"wrong role forbidden", []string{RoleDokter}, RolePerawat, http.StatusForbidden},
		{"missing role forbidden", []string{RolePerawat}, "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, RequireRole(tt.required...))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, requestWithRole(tt.role))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}
