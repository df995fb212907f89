package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/dmdash/internal/config"
	"github.com/geocoder89/dmdash/internal/http/handlers"
	"github.com/geocoder89/dmdash/internal/http/middlewares"
	"github.com/geocoder89/dmdash/internal/http/web"
	"github.com/geocoder89/dmdash/internal/observability"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators built by main. Signins, Prom, Gatherer and
// Checks are optional.
type Deps struct {
	Sessions *session.Service
	Provider storage.Provider
	Signins  handlers.SigninLister
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.SetHTMLTemplate(web.Templates())

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("dmdash"))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.StaticFS("/static", http.FS(web.Static()))

	// everything below sees the per-browser stores
	provider := storage.Instrument(deps.Provider, mirrorObserver(deps.Prom))
	app := r.Group("/", middlewares.Stores(provider, cfg.IsProd()))

	guard := middlewares.NewSessionGuard(deps.Sessions)
	limiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	limitLogin := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	pages := handlers.NewPagesHandler(deps.Sessions, deps.Signins, log)

	app.GET("/", pages.Root)
	app.GET(session.LoginPath, guard.RedirectIfAuthenticated(session.DashboardPath), pages.LoginPage)
	app.POST(session.LoginPath, guard.RedirectIfAuthenticated(session.DashboardPath), limitLogin, pages.Login)
	app.GET(session.DashboardPath, guard.RequireSession(session.LoginPath), pages.Dashboard)
	app.POST("/logout", pages.Logout)

	auth := handlers.NewAuthAPI(deps.Sessions)

	api := app.Group("/api", middlewares.RequireJSON())
	api.POST("/auth/login", limitLogin, auth.Login)
	api.GET("/auth/session", auth.Session)
	api.POST("/auth/logout", auth.Logout)
	api.GET("/me", guard.RequireSession(session.LoginPath), auth.Me)

	return r
}

// mirrorObserver avoids handing a typed nil *Prom to storage.Instrument.
func mirrorObserver(p *observability.Prom) storage.ErrorObserver {
	if p == nil {
		return nil
	}
	return p
}
