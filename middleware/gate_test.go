package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want RouteClass
	}{
		{"/api/v1/posts", RoutePublic},
		{"/static/app.js", RoutePublic},
		{"/health", RoutePublic},
		{"/auth/callback", RoutePublic},
		{"/login", RouteGuestOnly},
		{"/register", RouteGuestOnly},
		{"/reset-password", RouteGuestOnly},
		{"/admin", RouteRoleRestricted},
		{"/admin/users", RouteRoleRestricted},
		{"/", RouteAuthenticatedOnly},
		{"/profile", RouteAuthenticatedOnly},
		{"/archive", RouteAuthenticatedOnly},
		{"/posts/abc", RouteAuthenticatedOnly},
	}
	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSafeRedirectTarget(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"/profile", "/profile"},
		{"/posts/42?tab=comments", "/posts/42?tab=comments"},
		{"//evil.com", "/"},
		{"https://evil.com", "/"},
		{"evil.com/x", "/"},
		{`/\evil.com`, "/"},
		{`\\evil.com`, "/"},
		{"/login", "/"},
		{"/register?x=1", "/"},
	}
	for _, tc := range cases {
		if got := SafeRedirectTarget(tc.raw); got != tc.want {
			t.Errorf("SafeRedirectTarget(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name          string
		path          string
		redirectParam string
		authenticated bool
		role          models.Role
		wantAllow     bool
		wantLocation  string
	}{
		{"public anonymous", "/api/v1/posts", "", false, "", true, ""},
		{"public authenticated", "/api/v1/posts", "", true, models.RoleStudent, true, ""},
		{"page needs login", "/profile", "", false, "", false, "/login?redirect=%2Fprofile"},
		{"page with session", "/profile", "", true, models.RoleStudent, true, ""},
		{"login as guest", "/login", "", false, "", true, ""},
		{"login with session", "/login", "", true, models.RoleStudent, false, "/"},
		{"login with session and redirect", "/login", "/posts/42", true, models.RoleStudent, false, "/posts/42"},
		{"login with hostile redirect", "/login", "//evil.com", true, models.RoleStudent, false, "/"},
		{"admin anonymous", "/admin", "", false, "", false, "/login?redirect=%2Fadmin"},
		{"admin as student", "/admin", "", true, models.RoleStudent, false, "/"},
		{"admin as teacher", "/admin", "", true, models.RoleTeacher, true, ""},
		{"admin as admin", "/admin/users", "", true, models.RoleAdmin, true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.path, tc.redirectParam, tc.authenticated, tc.role)
			if got.Allow != tc.wantAllow {
				t.Fatalf("Allow = %v, want %v", got.Allow, tc.wantAllow)
			}
			if got.Location != tc.wantLocation {
				t.Errorf("Location = %q, want %q", got.Location, tc.wantLocation)
			}
		})
	}
}

func TestGateRedirectsAnonymousPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Gate(nil))
	r.GET("/profile", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=%2Fprofile" {
		t.Errorf("Location = %q", loc)
	}
}

func TestGateAllowsAnonymousAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Gate(nil))
	r.GET("/api/v1/posts", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
