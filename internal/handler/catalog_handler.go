package handler

import (
	"net/http"
	"net/url"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Reference data: /v1/vehicle-makes, /v1/vehicle-models, /v1/payment/methods
// ============================================================

func vehicleMakesHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vt := domain.VehicleType(chi.URLParam(r, "type"))
		if vt != domain.VehicleCar && vt != domain.VehicleMotorcycle {
			logger.Debug("unknown vehicle type", zap.String("type", string(vt)))
			writeError(w, http.StatusBadRequest, "vehicle type must be car or motorcycle")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"vehicle_type": vt,
			"makes":        svc.Engine().Catalog().Makes(vt),
		})
	}
}

func vehicleModelsHandler(svc *service.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brand, err := url.PathUnescape(chi.URLParam(r, "make"))
		if err != nil {
			brand = chi.URLParam(r, "make")
		}
		cat := svc.Engine().Catalog()
		if matched, ok := cat.MatchMake(domain.VehicleCar, brand); ok {
			brand = matched
		} else if matched, ok := cat.MatchMake(domain.VehicleMotorcycle, brand); ok {
			brand = matched
		}

		models := cat.Models(brand)
		if models == nil {
			models = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"make":   brand,
			"models": models,
		})
	}
}

func paymentMethodsHandler(svc *service.QuoteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"methods":  svc.PaymentMethods(),
			"currency": svc.Engine().Catalog().Currency(),
		})
	}
}
