package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Lookups: registry, identity, VIN
// ============================================================

type registryLookupResponse struct {
	Found bool                  `json:"found"`
	Data  *domain.VehicleRecord `json:"data"`
}

// registryLookupHandler answers 200 with found=false for an unknown plate.
func registryLookupHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/lta-lookup/{plate}")
		defer span.End()

		plate := chi.URLParam(r, "plate")
		span.SetAttributes(attribute.String("vehicle.plate", plate))

		rec, err := svc.LookupVehicle(ctx, plate)
		var nf *domain.ErrNotFound
		switch {
		case errors.As(err, &nf):
			writeJSON(w, http.StatusOK, registryLookupResponse{Found: false})
		case err != nil:
			handleServiceError(w, err, logger)
		default:
			writeJSON(w, http.StatusOK, registryLookupResponse{Found: true, Data: rec})
		}
	}
}

func identityRetrieveHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/singpass-retrieve/{nric}")
		defer span.End()

		rec, err := svc.RetrieveIdentity(ctx, chi.URLParam(r, "nric"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func vinDecodeHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vin-decode/{vin}")
		defer span.End()

		data, err := svc.DecodeVIN(ctx, chi.URLParam(r, "vin"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}
