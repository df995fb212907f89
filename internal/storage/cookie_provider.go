package storage

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieProvider stores each item in its own client-readable cookie named
// after the key. Values are HS256-signed so a hand-edited cookie reads as
// absent instead of feeding forged profile data into the page.
type CookieProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type itemClaims struct {
	Value string `json:"v"`
	jwt.RegisteredClaims
}

func NewCookieProvider(secret string, ttl time.Duration) *CookieProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CookieProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (p *CookieProvider) Name() string { return "cookie" }

func (p *CookieProvider) Open(jar CookieJar, _ string) LocalStorage {
	return &cookieStorage{p: p, jar: jar}
}

func (p *CookieProvider) sign(key, value string) (string, error) {
	now := p.now().UTC()
	claims := itemClaims{
		Value: value,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *CookieProvider) verify(key, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &itemClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithSubject(key))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*itemClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid item")
	}
	return claims.Value, nil
}

type cookieStorage struct {
	p   *CookieProvider
	jar CookieJar
}

func (s *cookieStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.jar.Get(key)
	if err != nil {
		return "", false, wrap("cookie", "get", err)
	}
	if !ok || raw == "" {
		return "", false, nil
	}

	v, err := s.p.verify(key, raw)
	if err != nil {
		return "", false, nil
	}
	return v, true, nil
}

func (s *cookieStorage) SetItem(ctx context.Context, key, value string) error {
	raw, err := s.p.sign(key, value)
	if err != nil {
		return wrap("cookie", "set", err)
	}

	return wrap("cookie", "set", s.jar.Set(Cookie{
		Name:   key,
		Value:  raw,
		Path:   "/",
		MaxAge: int(s.p.ttl.Seconds()),
		// readable by page scripts, like localStorage
		HttpOnly: false,
	}))
}

func (s *cookieStorage) RemoveItem(ctx context.Context, key string) error {
	return wrap("cookie", "remove", s.jar.Delete(key))
}
