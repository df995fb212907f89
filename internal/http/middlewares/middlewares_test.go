package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/dmdash/internal/http/middlewares"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	loggedIn bool
	err      error
}

func (f fakeChecker) LoggedIn(jar storage.CookieJar) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.loggedIn {
		return true, nil
	}
	_, ok, err := jar.Get("dm-access-token")
	return ok, err
}

func newGuardRouter(checker middlewares.SessionChecker) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.Stores(storage.NewMemoryProvider(time.Hour), false))

	guard := middlewares.NewSessionGuard(checker)

	r.GET("/login", guard.RedirectIfAuthenticated("/dashboard"), func(c *gin.Context) { c.String(http.StatusOK, "login form") })
	r.GET("/dashboard", guard.RequireSession("/login"), func(c *gin.Context) { c.String(http.StatusOK, "protected") })
	r.GET("/api/me", guard.RequireSession("/login"), func(c *gin.Context) { c.String(http.StatusOK, "protected") })

	return r
}

func TestSessionGuard(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		cookie       string
		wantStatus   int
		wantLocation string
		wantBody     string
	}{
		{"dashboard without cookie redirects", "/dashboard", "", http.StatusFound, "/login", ""},
		{"dashboard with cookie renders", "/dashboard", "dm-access-token=abc", http.StatusOK, "", "protected"},
		{"dashboard with empty cookie renders", "/dashboard", "dm-access-token=", http.StatusOK, "", "protected"},
		{"login with cookie redirects", "/login", "dm-access-token=abc", http.StatusFound, "/dashboard", ""},
		{"login without cookie renders", "/login", "", http.StatusOK, "", "login form"},
		{"api without cookie is 401", "/api/me", "", http.StatusUnauthorized, "", "unauthorized"},
	}

	r := newGuardRouter(fakeChecker{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", tt.cookie)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Fatalf("Location = %q, want %q", got, tt.wantLocation)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusFound && strings.Contains(w.Body.String(), "protected") {
				t.Fatal("protected content must not be written before the redirect")
			}
		})
	}
}

func TestSessionGuard_StorageFailure(t *testing.T) {
	r := newGuardRouter(fakeChecker{err: errors.New("cookie store unavailable")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "storage_error") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestStores_AssignsDeviceOnce(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.Stores(storage.NewMemoryProvider(time.Hour), false))
	r.GET("/", func(c *gin.Context) {
		if _, ok := middlewares.StoresFrom(c); !ok {
			t.Error("stores missing from context")
		}
		c.String(http.StatusOK, c.GetString(middlewares.CtxDeviceID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	device := w.Body.String()
	if device == "" {
		t.Fatal("expected device id")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "dm-device="+device) {
		t.Fatalf("expected dm-device cookie, got %q", w.Header().Get("Set-Cookie"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "dm-device="+device)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != device {
		t.Fatalf("device id changed: %q -> %q", device, w.Body.String())
	}
	if w.Header().Get("Set-Cookie") != "" {
		t.Fatal("existing device should not be re-issued")
	}
}

func TestStores_ReplacesInvalidDevice(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.Stores(storage.NewMemoryProvider(time.Hour), false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middlewares.CtxDeviceID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "dm-device=../../etc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() == "../../etc" {
		t.Fatal("non-uuid device ids must be replaced")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := middlewares.NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
	}

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: got %d, want %d", i, codes[i], want[i])
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("other client should not be limited, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/auth/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("phone=0912"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form body: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("bodyless post: got %d", w.Code)
	}
}

func TestRequestID_EchoesIncomingHeader(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middlewares.CtxRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "req-1" || w.Body.String() != "req-1" {
		t.Fatalf("request id not propagated: header=%q body=%q", w.Header().Get("X-Request-Id"), w.Body.String())
	}
}
