package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammer-mt/FireFlask/api/controllers"
	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/internal/analytics"
	"github.com/hammer-mt/FireFlask/internal/auth"
	"github.com/hammer-mt/FireFlask/internal/authz"
	"github.com/hammer-mt/FireFlask/internal/connectors"
	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/internal/users"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// Dependencies is everything the HTTP surface needs, built once in cmd/api.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter middleware.RateLimiter
	Sessions    session.AccessSessionChecker
	OAuthState  *cookie.OAuthStateStore
	Gatherer    prometheus.Gatherer

	Gate       middleware.RoleAuthorizer
	Auth       auth.Service
	Users      users.Service
	Teams      teams.Service
	Connectors connectors.Service
	Analytics  analytics.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authHandlers := controllers.AuthHandlers{
		Auth:    deps.Auth,
		Resets:  deps.Users,
		JWT:     cfg.JWT,
		Session: cfg.Session,
		Logger:  logg,
	}
	connectorHandlers := controllers.ConnectorHandlers{
		Connectors: deps.Connectors,
		State:      deps.OAuthState,
		ReturnURL:  cfg.App.ConnectorsURL,
		Logger:     logg,
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimiter, logg)).Post("/sign-up", authHandlers.SignUp())
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/sign-in", authHandlers.SignIn())
		r.Post("/sign-out", authHandlers.SignOut())
		r.Post("/refresh", authHandlers.Refresh())
		r.With(middleware.AuthRateLimit(resetPolicy, deps.RateLimiter, logg)).Post("/password-reset", authHandlers.PasswordReset())
		r.Post("/password-reset/confirm", authHandlers.PasswordResetConfirm())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/profile", controllers.ProfileGet(deps.Users, logg))
		r.Put("/profile", controllers.ProfileUpdate(deps.Users, logg))
		r.Put("/profile/photo", controllers.ProfilePhoto(deps.Users, logg))

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", controllers.TeamsList(deps.Teams, logg))
			r.Post("/", controllers.TeamsCreate(deps.Teams, logg))
			r.Get("/{teamId}", controllers.TeamsGet(deps.Teams, logg))
			r.Put("/{teamId}", controllers.TeamsUpdate(deps.Teams, logg))
			r.Post("/{teamId}/select", authHandlers.SelectTeam())
			r.Post("/{teamId}/members", controllers.TeamsInviteMember(deps.Teams, logg))
		})

		r.Patch("/memberships/{membershipId}", controllers.MembershipUpdateRole(deps.Teams, logg))
		r.Delete("/memberships/{membershipId}", controllers.MembershipRemove(deps.Teams, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.TeamContext(logg))

			r.With(middleware.RequireTeamRoles(deps.Gate, logg, authz.AnyRole...)).Get("/connectors", connectorHandlers.List())
			r.With(middleware.RequireTeamRoles(deps.Gate, logg, authz.AnyRole...)).Get("/dashboard", controllers.Dashboard(deps.Analytics, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTeamRoles(deps.Gate, logg, authz.ManageRoles...))
				r.Get("/connectors/facebook/connect", connectorHandlers.Connect())
				r.Get("/connectors/facebook/callback", connectorHandlers.Callback())
				r.Delete("/connectors/facebook", connectorHandlers.Disconnect())
			})
		})
	})

	return r
}
