package handler

import (
	"net/http"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Quotes & Payments
// ============================================================

func generateQuoteHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/generate-quote/{id}")
		defer span.End()

		res, err := svc.GenerateQuote(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Float64("quote.final_premium", res.Quote.FinalPremium))
		writeJSON(w, http.StatusOK, res)
	}
}

func processPaymentHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payment/process")
		defer span.End()

		var req domain.PaymentRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.String("payment.method", req.PaymentMethod),
		)

		res, err := svc.ProcessPayment(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusOK
		if !res.Success {
			status = http.StatusPaymentRequired
		}
		writeJSON(w, status, res)
	}
}
