package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderdeskhq/orderdesk-backend/api/controllers"
	assignmentcontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/assignments"
	eventcontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/events"
	ordercontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/orders"
	staffcontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/staff"
	webhookcontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/webhooks"
	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	"github.com/orderdeskhq/orderdesk-backend/internal/assignments"
	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/realtime"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil optional members
// disable the route they back.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	HealthDeps  map[string]controllers.Pinger
	Orders      orders.Service
	Assignments assignments.Service
	Staff       staff.Service
	Hub         *realtime.Hub
	BotCallback webhookcontrollers.CallbackService
	BotGuard    webhookcontrollers.Guard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	if deps.BotCallback != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.Post("/bot", webhookcontrollers.BotWebhook(deps.BotCallback, cfg.Bot.WebhookSecret, deps.BotGuard, logg))
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/transition", ordercontrollers.Transition(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Get("/{orderId}/assignment", assignmentcontrollers.Get(deps.Assignments, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg,
					string(enums.StaffRoleManager), string(enums.StaffRoleSuperAdmin)))
				r.Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Post("/{orderId}/assign", assignmentcontrollers.Assign(deps.Assignments, logg))
			})
		})

		r.Route("/v1/staff", func(r chi.Router) {
			r.Get("/", staffcontrollers.List(deps.Staff, logg))
			r.Get("/{staffId}", staffcontrollers.Get(deps.Staff, logg))
			r.Patch("/{staffId}/channel", staffcontrollers.SetChannel(deps.Staff, logg))
			r.With(middleware.RequireAnyRole(logg,
				string(enums.StaffRoleManager), string(enums.StaffRoleSuperAdmin))).
				Patch("/{staffId}/active", staffcontrollers.SetActive(deps.Staff, logg))
		})

		if deps.Hub != nil {
			r.Get("/v1/events", eventcontrollers.Stream(deps.Hub, cfg.Realtime.Heartbeat, logg))
		}
	})

	return r
}
