package handler

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Policy documents: /v1/document
// ============================================================

func documentSummaryHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/document/{id}")
		defer span.End()

		doc, err := svc.PolicyDocument(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func documentPDFHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/document/{id}/pdf")
		defer span.End()

		body, doc, err := svc.RenderPolicyPDF(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="policy-%s.pdf"`, doc.PolicyNumber))
		writeBytes(w, "application/pdf", body)
	}
}

func documentHTMLHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/document/{id}/html")
		defer span.End()

		body, _, err := svc.RenderPolicyHTML(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeBytes(w, "text/html; charset=utf-8", body)
	}
}

// verifyDocumentHandler runs behind DocumentTokenMiddleware.
func verifyDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := DocumentClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "unverified document")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":  true,
			"claims": claims,
		})
	}
}
