package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/dmdash/internal/domain/signin"
	"github.com/geocoder89/dmdash/internal/domain/user"
	"github.com/geocoder89/dmdash/internal/http/middlewares"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/gin-gonic/gin"
)

// SessionFlow is the part of session.Service the handlers drive.
type SessionFlow interface {
	Login(ctx context.Context, st session.Stores, phone string) (user.User, error)
	Logout(ctx context.Context, st session.Stores, nav session.Navigator) error
	LoggedIn(jar storage.CookieJar) (bool, error)
	MirrorLoggedIn(ctx context.Context, ls storage.LocalStorage) (bool, error)
	Profile(ctx context.Context, ls storage.LocalStorage) (*user.User, error)
}

type SigninLister interface {
	Recent(ctx context.Context, limit int) ([]signin.Entry, error)
}

// LoginRequest is shared by the login form and the JSON API.
type LoginRequest struct {
	Phone string `json:"phone" form:"phone" binding:"required,irmobile"`
}

func requestStores(ctx *gin.Context) (session.Stores, bool) {
	st, ok := middlewares.StoresFrom(ctx)
	if !ok {
		RespondInternal(ctx, "Session stores unavailable")
		return session.Stores{}, false
	}
	return st, true
}

// redirectNavigator completes a page logout with a See Other redirect.
type redirectNavigator struct {
	ctx *gin.Context
}

func (n redirectNavigator) Redirect(location string) {
	n.ctx.Redirect(http.StatusSeeOther, location)
}

// headerNavigator only advertises the next location; API clients navigate
// themselves.
type headerNavigator struct {
	ctx *gin.Context
}

func (n headerNavigator) Redirect(location string) {
	n.ctx.Header("Location", location)
}
