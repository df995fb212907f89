package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/gin-gonic/gin"
)

// SessionChecker keeps the guards independent of the session service so
// tests can fake it easily.
type SessionChecker interface {
	LoggedIn(jar storage.CookieJar) (bool, error)
}

type SessionGuard struct {
	checker SessionChecker
}

func NewSessionGuard(checker SessionChecker) *SessionGuard {
	return &SessionGuard{checker: checker}
}

// RequireSession redirects visitors without a session cookie to loginPath.
// API routes get a 401 envelope instead of a redirect.
func (g *SessionGuard) RequireSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, done := g.check(c)
		if done {
			return
		}

		if !ok {
			if isAPI(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "unauthorized",
						"message": "No active session",
					},
				})
				return
			}
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RedirectIfAuthenticated sends visitors that already hold a session cookie
// to target.
func (g *SessionGuard) RedirectIfAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, done := g.check(c)
		if done {
			return
		}

		if ok {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}

		c.Next()
	}
}

// check reports the session state; done is true when the request was
// already aborted.
func (g *SessionGuard) check(c *gin.Context) (ok bool, done bool) {
	st, found := StoresFrom(c)
	if !found {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "Session stores unavailable",
			},
		})
		return false, true
	}

	ok, err := g.checker.LoggedIn(st.Cookies)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "storage_error",
				"message": "Could not read session",
			},
		})
		return false, true
	}

	return ok, false
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
