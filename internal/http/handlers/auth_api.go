package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/dmdash/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type AuthAPI struct {
	sessions SessionFlow
}

func NewAuthAPI(sessions SessionFlow) *AuthAPI {
	return &AuthAPI{sessions: sessions}
}

type sessionState struct {
	LoggedIn bool `json:"loggedIn"`
	Mirrored bool `json:"mirrored"`
}

type meResponse struct {
	user.User
	DisplayName string `json:"displayName"`
}

func (h *AuthAPI) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	u, err := h.sessions.Login(ctx.Request.Context(), st, req.Phone)
	if err != nil {
		RespondSessionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthAPI) Session(ctx *gin.Context) {
	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	loggedIn, err := h.sessions.LoggedIn(st.Cookies)
	if err != nil {
		RespondSessionError(ctx, err)
		return
	}

	mirrored, err := h.sessions.MirrorLoggedIn(ctx.Request.Context(), st.Local)
	if err != nil {
		RespondSessionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, sessionState{LoggedIn: loggedIn, Mirrored: mirrored})
}

func (h *AuthAPI) Logout(ctx *gin.Context) {
	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	if err := h.sessions.Logout(ctx.Request.Context(), st, headerNavigator{ctx: ctx}); err != nil {
		RespondSessionError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthAPI) Me(ctx *gin.Context) {
	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	u, err := h.sessions.Profile(ctx.Request.Context(), st.Local)
	if err != nil {
		if errors.Is(err, user.ErrCorruptMirror) {
			RespondError(ctx, http.StatusInternalServerError, "corrupt_mirror", "Stored profile is unreadable", nil)
			return
		}
		RespondSessionError(ctx, err)
		return
	}

	if u == nil {
		RespondNotFound(ctx, "No stored profile")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, meResponse{User: *u, DisplayName: user.DisplayName(u)})
}
