// Package session issues, checks and terminates dashboard sessions.
//
// A session lives in two places: the HttpOnly dm-access-token cookie, which
// is the only signal the guards trust, and the dm-user local storage mirror,
// which carries the profile used to personalise pages. Service is the single
// owner of both so they are written and cleared together.
package session

import (
	"context"
	"log/slog"

	"github.com/geocoder89/dmdash/internal/domain/signin"
	"github.com/geocoder89/dmdash/internal/domain/user"
	"github.com/geocoder89/dmdash/internal/security"
	"github.com/geocoder89/dmdash/internal/storage"
)

const (
	CookieName   = "dm-access-token"
	MirrorKey    = "dm-user"
	CookieMaxAge = 60 * 60 * 24 * 7

	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

type Directory interface {
	FetchRandom(ctx context.Context) (user.User, error)
}

type History interface {
	Record(ctx context.Context, e signin.Entry) (signin.Entry, error)
}

type Metrics interface {
	ObserveLogin(result string)
}

// Navigator performs the client-side navigation that follows logout.
type Navigator interface {
	Redirect(location string)
}

// Stores are the two session stores as seen by one request.
type Stores struct {
	Cookies storage.CookieJar
	Local   storage.LocalStorage
}

type Service struct {
	dir      Directory
	history  History
	metrics  Metrics
	log      *slog.Logger
	phoneKey []byte
}

type Options struct {
	History      History
	Metrics      Metrics
	Logger       *slog.Logger
	PhoneHashKey string
}

func NewService(dir Directory, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		dir:      dir,
		history:  opts.History,
		metrics:  opts.Metrics,
		log:      log,
		phoneKey: []byte(opts.PhoneHashKey),
	}
}

// TokenCookie is the cookie written on a successful login.
func TokenCookie(token string) storage.Cookie {
	return storage.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
	}
}

// Login fetches an identity and persists it: first the token cookie, then
// the mirror. Nothing is written when the fetch fails. The two writes are
// not transactional; a failed mirror write leaves the cookie in place.
// phone is only used for the hashed sign-in history.
func (s *Service) Login(ctx context.Context, st Stores, phone string) (user.User, error) {
	u, err := s.dir.FetchRandom(ctx)
	if err != nil {
		return user.User{}, s.fail(ctx, err)
	}

	if err := st.Cookies.Set(TokenCookie(u.Token())); err != nil {
		return user.User{}, s.fail(ctx, asStorage("cookie", "set", err))
	}

	blob, err := user.EncodeMirror(u)
	if err != nil {
		return user.User{}, s.fail(ctx, asStorage("mirror", "encode", err))
	}

	if err := st.Local.SetItem(ctx, MirrorKey, blob); err != nil {
		return user.User{}, s.fail(ctx, asStorage("mirror", "set", err))
	}

	s.record(ctx, u, phone)
	s.observe("ok")

	s.log.InfoContext(ctx, "session issued", "display_name", user.DisplayName(&u))

	return u, nil
}

// LoggedIn reports whether the token cookie exists. The value is not
// inspected: an empty token still counts.
func (s *Service) LoggedIn(jar storage.CookieJar) (bool, error) {
	_, ok, err := jar.Get(CookieName)
	if err != nil {
		return false, asStorage("cookie", "get", err)
	}
	return ok, nil
}

// MirrorLoggedIn reports whether the mirror holds a non-empty string. The
// content is not validated.
func (s *Service) MirrorLoggedIn(ctx context.Context, ls storage.LocalStorage) (bool, error) {
	v, ok, err := ls.GetItem(ctx, MirrorKey)
	if err != nil {
		return false, err
	}
	return ok && v != "", nil
}

// Profile decodes the mirror. A missing mirror is not an error.
func (s *Service) Profile(ctx context.Context, ls storage.LocalStorage) (*user.User, error) {
	v, ok, err := ls.GetItem(ctx, MirrorKey)
	if err != nil {
		return nil, err
	}
	if !ok || v == "" {
		return nil, nil
	}
	return user.DecodeMirror(v)
}

// Logout deletes the cookie, clears the mirror and then navigates to the
// login page. Errors are returned as-is and stop the sequence, so a failed
// deletion never navigates.
func (s *Service) Logout(ctx context.Context, st Stores, nav Navigator) error {
	if err := st.Cookies.Delete(CookieName); err != nil {
		return asStorage("cookie", "delete", err)
	}

	if err := st.Local.RemoveItem(ctx, MirrorKey); err != nil {
		return asStorage("mirror", "remove", err)
	}

	nav.Redirect(LoginPath)
	return nil
}

func (s *Service) fail(ctx context.Context, err error) error {
	s.log.ErrorContext(ctx, "login failed", "err", err, "kind", Kind(err))
	s.observe(Kind(err))
	return err
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(result)
	}
}

// record is best effort; the session is already issued.
func (s *Service) record(ctx context.Context, u user.User, phone string) {
	if s.history == nil {
		return
	}

	entry := signin.Entry{
		Token:       u.Token(),
		DisplayName: user.DisplayName(&u),
	}

	if phone != "" {
		h, err := security.HashPhone(s.phoneKey, phone)
		if err != nil {
			s.log.WarnContext(ctx, "phone hash failed", "err", err)
		} else {
			entry.PhoneHash = h
		}
	}

	if _, err := s.history.Record(ctx, entry); err != nil {
		s.log.WarnContext(ctx, "sign-in history write failed", "err", err)
	}
}
