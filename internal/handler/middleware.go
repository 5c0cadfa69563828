package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const documentClaimsKey contextKey = "documentClaims"

// DocumentTokenMiddleware validates a policy verification token and injects
// its claims into the context. The token is read from a Bearer header or
// from the token query parameter.
func DocumentTokenMiddleware(svc *service.QuoteService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					logger.Warn("document: invalid token format",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					writeError(w, http.StatusUnauthorized, "invalid authorization header format")
					return
				}
				tokenString = parts[1]
			}
			if tokenString == "" {
				writeError(w, http.StatusBadRequest, "token is required")
				return
			}

			claims, err := svc.VerifyDocument(r.Context(), tokenString)
			if err != nil {
				logger.Warn("document: verification failed",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), documentClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DocumentClaimsFromContext extracts the verified document claims from context.
func DocumentClaimsFromContext(ctx context.Context) *domain.DocumentClaims {
	v, _ := ctx.Value(documentClaimsKey).(*domain.DocumentClaims)
	return v
}
