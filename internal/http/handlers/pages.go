package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/dmdash/internal/domain/user"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidPhone = "شماره تلفن وارد شده معتبر نیست."
	msgLoginFailed  = "خطایی در ورود رخ داد. لطفا دوباره تلاش کنید."
	msgLogoutFailed = "خطایی در خروج رخ داد. لطفا دوباره تلاش کنید."

	recentSignins = 5
)

type navItem struct {
	Title string
	URL   string
	Icon  string
}

var sidebarItems = []navItem{
	{Title: "خانه", URL: "#", Icon: "home"},
	{Title: "صندوق ورودی", URL: "#", Icon: "inbox"},
	{Title: "تقویم", URL: "#", Icon: "calendar"},
	{Title: "جستجو", URL: "#", Icon: "search"},
	{Title: "تنظیمات", URL: "#", Icon: "settings"},
}

type loginView struct {
	Phone      string
	FieldError string
	Error      string
}

type signinView struct {
	DisplayName string
	At          string
}

type dashboardView struct {
	Sidebar     []navItem
	DisplayName string
	Avatar      string
	AvatarAlt   string
	Initial     string
	Welcome     bool
	Signins     []signinView
}

type PagesHandler struct {
	sessions SessionFlow
	signins  SigninLister
	log      *slog.Logger
}

// NewPagesHandler renders the login and dashboard pages. signins may be nil.
func NewPagesHandler(sessions SessionFlow, signins SigninLister, log *slog.Logger) *PagesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PagesHandler{sessions: sessions, signins: signins, log: log}
}

func (h *PagesHandler) Root(ctx *gin.Context) {
	ctx.Redirect(http.StatusFound, session.DashboardPath)
}

func (h *PagesHandler) LoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", loginView{})
}

func (h *PagesHandler) Login(ctx *gin.Context) {
	var form LoginRequest

	if err := ctx.ShouldBind(&form); err != nil {
		ctx.HTML(http.StatusUnprocessableEntity, "login.html", loginView{
			Phone:      form.Phone,
			FieldError: msgInvalidPhone,
		})
		return
	}

	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	// the session service already logged the failure and its kind
	if _, err := h.sessions.Login(ctx.Request.Context(), st, form.Phone); err != nil {
		_ = ctx.Error(err)
		ctx.HTML(http.StatusBadGateway, "login.html", loginView{
			Phone: form.Phone,
			Error: msgLoginFailed,
		})
		return
	}

	ctx.Redirect(http.StatusSeeOther, session.DashboardPath+"?welcome=1")
}

func (h *PagesHandler) Dashboard(ctx *gin.Context) {
	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	rctx := ctx.Request.Context()

	u, err := h.sessions.Profile(rctx, st.Local)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, user.ErrCorruptMirror) {
			level = slog.LevelWarn
		}
		h.log.Log(rctx, level, "profile unavailable", "err", err)
		u = nil
	}

	name := user.DisplayName(u)

	view := dashboardView{
		Sidebar:     sidebarItems,
		DisplayName: name,
		Avatar:      u.Thumbnail(),
		AvatarAlt:   name,
		Initial:     user.Initial(name),
		Welcome:     ctx.Query("welcome") == "1",
	}

	if h.signins != nil {
		entries, err := h.signins.Recent(rctx, recentSignins)
		if err != nil {
			h.log.WarnContext(rctx, "recent sign-ins unavailable", "err", err)
		}
		for _, e := range entries {
			view.Signins = append(view.Signins, signinView{
				DisplayName: e.DisplayName,
				At:          e.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
	}

	ctx.HTML(http.StatusOK, "dashboard.html", view)
}

func (h *PagesHandler) Logout(ctx *gin.Context) {
	st, ok := requestStores(ctx)
	if !ok {
		return
	}

	if err := h.sessions.Logout(ctx.Request.Context(), st, redirectNavigator{ctx: ctx}); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "logout failed", "err", err, "kind", session.Kind(err))
		ctx.String(http.StatusInternalServerError, msgLogoutFailed)
	}
}
