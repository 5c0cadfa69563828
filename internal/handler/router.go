package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// An empty corsOrigins list allows every origin.
func NewRouter(svc *service.QuoteService, metrics *observability.Metrics, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if svc == nil {
		return r
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/", statusHandler())

		// Sessions and conversation
		r.Post("/sessions", createSessionHandler(svc, logger))
		r.Get("/sessions/{id}", getSessionHandler(svc, logger))
		r.Patch("/sessions/{id}/state", patchStateHandler(svc, logger))
		r.Get("/sessions/{id}/transcript", transcriptHandler(svc, logger))
		r.Post("/welcome/{id}", welcomeHandler(svc, logger))
		r.Post("/chat", chatHandler(svc, logger))
		r.Get("/messages/{id}", messagesHandler(svc, logger))

		// Reference data
		r.Get("/vehicle-makes/{type}", vehicleMakesHandler(svc, logger))
		r.Get("/vehicle-models/{make}", vehicleModelsHandler(svc))

		// Lookups
		r.Get("/lta-lookup/{plate}", registryLookupHandler(svc, logger))
		r.Get("/singpass-retrieve/{nric}", identityRetrieveHandler(svc, logger))
		r.Get("/vin-decode/{vin}", vinDecodeHandler(svc, logger))

		// Quotes and payments
		r.Post("/generate-quote/{id}", generateQuoteHandler(svc, logger))
		r.Get("/payment/methods", paymentMethodsHandler(svc))
		r.Post("/payment/process", processPaymentHandler(svc, logger))

		// Documents
		r.With(DocumentTokenMiddleware(svc, logger)).Get("/document/verify", verifyDocumentHandler())
		r.Get("/document/{id}", documentSummaryHandler(svc, logger))
		r.Get("/document/{id}/pdf", documentPDFHandler(svc, logger))
		r.Get("/document/{id}/html", documentHTMLHandler(svc, logger))

		// Funnel
		r.Get("/metrics/funnel", funnelMetricsHandler(svc))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(svc *service.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeJSON(w, http.StatusOK, domain.HealthStatus{
				Status: "healthy",
				Services: []domain.ServiceHealth{
					{Name: "bfa-api", Status: "healthy", LastChecked: time.Now().UTC().Format(time.RFC3339)},
				},
			})
			return
		}
		writeJSON(w, http.StatusOK, svc.Health(r.Context()))
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Motor Quote BFA",
			"status":  "running",
		})
	}
}

func funnelMetricsHandler(svc *service.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.FunnelMetrics())
	}
}
