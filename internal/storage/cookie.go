package storage

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie is the subset of cookie attributes the session flow controls.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int
	HttpOnly bool
	Secure   bool
}

// CookieJar is the cookie store seen by one request.
type CookieJar interface {
	// Get reports whether the cookie is present. An empty value still counts.
	Get(name string) (value string, ok bool, err error)
	Set(c Cookie) error
	Delete(name string) error
}

// GinJar reads request cookies and writes Set-Cookie headers on the response.
// Writes are also visible to later reads in the same request.
type GinJar struct {
	ctx     *gin.Context
	secure  bool
	pending map[string]*string // nil value marks a deletion
}

func NewGinJar(ctx *gin.Context, secure bool) *GinJar {
	return &GinJar{ctx: ctx, secure: secure, pending: map[string]*string{}}
}

func (j *GinJar) Get(name string) (string, bool, error) {
	if v, ok := j.pending[name]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	v, err := j.ctx.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("cookie", "get", err)
	}
	return v, true, nil
}

func (j *GinJar) Set(c Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}

	j.ctx.SetSameSite(http.SameSiteLaxMode)
	j.ctx.SetCookie(c.Name, c.Value, c.MaxAge, path, "", c.Secure || j.secure, c.HttpOnly)

	v := c.Value
	j.pending[c.Name] = &v
	return nil
}

func (j *GinJar) Delete(name string) error {
	j.ctx.SetSameSite(http.SameSiteLaxMode)
	j.ctx.SetCookie(name, "", -1, "/", "", j.secure, true)

	j.pending[name] = nil
	return nil
}
