package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/dmdash/internal/domain/user"
	"github.com/geocoder89/dmdash/internal/http/handlers"
	"github.com/geocoder89/dmdash/internal/http/middlewares"
	"github.com/geocoder89/dmdash/internal/http/web"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/geocoder89/dmdash/internal/userdir"
	"github.com/gin-gonic/gin"
)

const (
	testToken     = "3f1c2a8e-7a44-4d5f-9a0b-1c2d3e4f5a6b"
	testDevice    = "8b0e0f2e-1d7c-4a55-b0c1-8f4a3b2c1d0e"
	testThumbnail = "https://randomuser.me/api/portraits/thumb/women/17.jpg"
)

type stubDirectory struct {
	u   user.User
	err error
}

func (d *stubDirectory) FetchRandom(ctx context.Context) (user.User, error) {
	return d.u, d.err
}

func janeDoe() user.User {
	return user.User{
		Name:    &user.Name{Title: "Ms", First: "Jane", Last: "Doe"},
		Login:   user.Login{UUID: testToken},
		Picture: &user.Picture{Thumbnail: testThumbnail},
	}
}

type testApp struct {
	router   *gin.Engine
	provider *storage.MemoryProvider
	dir      *stubDirectory
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := &stubDirectory{u: janeDoe()}
	provider := storage.NewMemoryProvider(time.Hour)
	svc := session.NewService(dir, session.Options{})

	r := gin.New()
	r.SetHTMLTemplate(web.Templates())
	r.Use(middlewares.Stores(provider, false))

	pages := handlers.NewPagesHandler(svc, nil, nil)
	r.GET("/", pages.Root)
	r.GET("/login", pages.LoginPage)
	r.POST("/login", pages.Login)
	r.GET("/dashboard", pages.Dashboard)
	r.POST("/logout", pages.Logout)

	api := handlers.NewAuthAPI(svc)
	r.POST("/api/auth/login", api.Login)
	r.GET("/api/auth/session", api.Session)
	r.POST("/api/auth/logout", api.Logout)
	r.GET("/api/me", api.Me)

	return &testApp{router: r, provider: provider, dir: dir}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) mirror(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := a.provider.Open(nil, testDevice).GetItem(context.Background(), session.MirrorKey)
	if err != nil {
		t.Fatalf("mirror read: %v", err)
	}
	return v, ok
}

func deviceCookie() *http.Cookie {
	return &http.Cookie{Name: middlewares.DeviceCookie, Value: testDevice}
}

func tokenCookie() *http.Cookie {
	return &http.Cookie{Name: session.CookieName, Value: testToken}
}

func formLogin(phone string) *http.Request {
	form := url.Values{"phone": {phone}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRoot_RedirectsToDashboard(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("got location %q", loc)
	}
}

func TestLoginPage_Renders(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/login", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"ورود", `name="phone"`, "09xxxxxxxxx", `dir="rtl"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("login page missing %q", want)
		}
	}
}

func TestLogin_InvalidPhoneRerendersForm(t *testing.T) {
	app := newTestApp(t)

	w := app.do(formLogin("12345"), deviceCookie())

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(w.Body.String(), "شماره تلفن وارد شده معتبر نیست.") {
		t.Fatalf("expected the invalid phone message, body=%s", w.Body.String())
	}
	if findCookie(w, session.CookieName) != nil {
		t.Fatalf("no session cookie expected on validation failure")
	}
	if _, ok := app.mirror(t); ok {
		t.Fatalf("no mirror expected on validation failure")
	}
}

func TestLogin_DirectoryFailureShowsGenericMessage(t *testing.T) {
	cases := map[string]error{
		"login_failed":       userdir.ErrLoginFailed,
		"malformed_response": userdir.ErrMalformedResponse,
		"network_error":      &userdir.NetworkError{Err: errors.New("dial tcp: connection refused")},
	}

	for name, dirErr := range cases {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t)
			app.dir.err = dirErr

			w := app.do(formLogin("09121234567"), deviceCookie())

			if w.Code != http.StatusBadGateway {
				t.Fatalf("got status %d, want %d", w.Code, http.StatusBadGateway)
			}
			if !strings.Contains(w.Body.String(), "خطایی در ورود رخ داد. لطفا دوباره تلاش کنید.") {
				t.Fatalf("expected the generic failure message")
			}
			if strings.Contains(w.Body.String(), dirErr.Error()) {
				t.Fatalf("error detail must not reach the page")
			}
			if findCookie(w, session.CookieName) != nil {
				t.Fatalf("no session cookie expected on failure")
			}
			if _, ok := app.mirror(t); ok {
				t.Fatalf("no mirror expected on failure")
			}
		})
	}
}

func TestLogin_SuccessWritesBothStoresAndRedirects(t *testing.T) {
	app := newTestApp(t)

	w := app.do(formLogin("09121234567"), deviceCookie())

	if w.Code != http.StatusSeeOther {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard?welcome=1" {
		t.Fatalf("got location %q", loc)
	}

	c := findCookie(w, session.CookieName)
	if c == nil {
		t.Fatalf("expected a session cookie")
	}
	if c.Value != testToken || !c.HttpOnly || c.Path != "/" || c.MaxAge != session.CookieMaxAge {
		t.Fatalf("unexpected session cookie: %+v", c)
	}

	raw, ok := app.mirror(t)
	if !ok {
		t.Fatalf("expected the mirror to be written")
	}
	u, err := user.DecodeMirror(raw)
	if err != nil {
		t.Fatalf("mirror should decode: %v", err)
	}
	if user.DisplayName(u) != "Jane Doe" {
		t.Fatalf("unexpected mirrored user: %q", user.DisplayName(u))
	}
}

func TestDashboard_RendersPersonalisedPage(t *testing.T) {
	app := newTestApp(t)

	login := app.do(formLogin("09121234567"), deviceCookie())
	if login.Code != http.StatusSeeOther {
		t.Fatalf("login failed with %d", login.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard?welcome=1", nil)
	w := app.do(req, deviceCookie(), findCookie(login, session.CookieName))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	for _, want := range []string{
		"سلام، Jane Doe خوش آمدید به داشبورد!",
		"ورود موفقیت آمیز بود.",
		testThumbnail,
		"خانه", "صندوق ورودی", "تقویم", "جستجو", "تنظیمات",
		`action="/logout"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_WithoutWelcomeHidesNotice(t *testing.T) {
	app := newTestApp(t)
	app.do(formLogin("09121234567"), deviceCookie())

	w := app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), deviceCookie(), tokenCookie())

	if strings.Contains(w.Body.String(), "ورود موفقیت آمیز بود.") {
		t.Fatalf("welcome notice should only follow a login")
	}
}

func TestDashboard_CorruptMirrorFallsBackToEmptyName(t *testing.T) {
	app := newTestApp(t)

	err := app.provider.Open(nil, testDevice).SetItem(context.Background(), session.MirrorKey, "{not json")
	if err != nil {
		t.Fatalf("seed mirror: %v", err)
	}

	w := app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), deviceCookie(), tokenCookie())

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "سلام،   خوش آمدید به داشبورد!") {
		t.Fatalf("expected the blank greeting, body=%s", w.Body.String())
	}
}

func TestDashboard_NoThumbnailUsesInitial(t *testing.T) {
	app := newTestApp(t)
	app.dir.u.Picture = nil
	app.do(formLogin("09121234567"), deviceCookie())

	w := app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), deviceCookie(), tokenCookie())

	body := w.Body.String()
	if strings.Contains(body, "<img") {
		t.Fatalf("no avatar image expected")
	}
	if !strings.Contains(body, `<span class="avatar-fallback">J</span>`) {
		t.Fatalf("expected the initial fallback, body=%s", body)
	}
}

func TestLogout_ClearsStoresAndRedirects(t *testing.T) {
	app := newTestApp(t)
	app.do(formLogin("09121234567"), deviceCookie())

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := app.do(req, deviceCookie(), tokenCookie())

	if w.Code != http.StatusSeeOther {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("got location %q", loc)
	}

	c := findCookie(w, session.CookieName)
	if c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected the session cookie to be expired, got %+v", c)
	}
	if _, ok := app.mirror(t); ok {
		t.Fatalf("expected the mirror to be removed")
	}
}

func TestPages_WithoutStoresRespondInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	pages := handlers.NewPagesHandler(session.NewService(&stubDirectory{}, session.Options{}), nil, nil)
	r.GET("/dashboard", pages.Dashboard)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
