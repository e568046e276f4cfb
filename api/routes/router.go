package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/advancehq/reconciliation-backend/api/controllers"
	webhookcontrollers "github.com/advancehq/reconciliation-backend/api/controllers/webhooks"
	"github.com/advancehq/reconciliation-backend/api/middleware"
	"github.com/advancehq/reconciliation-backend/internal/reconciliation"
	internalwebhooks "github.com/advancehq/reconciliation-backend/internal/webhooks"
	"github.com/advancehq/reconciliation-backend/pkg/config"
	"github.com/advancehq/reconciliation-backend/pkg/db"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
	"github.com/advancehq/reconciliation-backend/pkg/metrics"
	"github.com/advancehq/reconciliation-backend/pkg/redis"
)

type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            redis.Pinger
	Reconciliation   *reconciliation.Service
	PaymentGuard     *internalwebhooks.EventGuard
	TransactionGuard *internalwebhooks.EventGuard
	Metrics          *metrics.IngestMetrics
	Registry         *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentCreated(params.Reconciliation, webhookcontrollers.Params{
			Secret:        cfg.Webhook.Secret,
			IngestTimeout: cfg.Webhook.IngestTimeout,
			Guard:         params.PaymentGuard,
			Logger:        logg,
			Metrics:       params.Metrics,
		}))
		r.Post("/transactions", webhookcontrollers.TransactionSettled(params.Reconciliation, webhookcontrollers.Params{
			Secret:        cfg.Webhook.Secret,
			IngestTimeout: cfg.Webhook.IngestTimeout,
			Guard:         params.TransactionGuard,
			Logger:        logg,
			Metrics:       params.Metrics,
		}))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/", controllers.PaymentList(params.Reconciliation, logg))
		r.Get("/{paymentID}", controllers.PaymentDetail(params.Reconciliation, logg))
	})

	return r
}
