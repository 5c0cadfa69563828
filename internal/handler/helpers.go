package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes caps request bodies. Chat inputs and payment requests are tiny.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(data)
}

func writeBytes(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	return sonic.ConfigStd.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// errorStatus is the HTTP status for each domain error code.
var errorStatus = map[string]int{
	domain.CodeNotFound:        http.StatusNotFound,
	domain.CodeValidation:      http.StatusBadRequest,
	domain.CodeConflict:        http.StatusConflict,
	domain.CodeUnauthorized:    http.StatusUnauthorized,
	domain.CodeExternalService: http.StatusBadGateway,
	domain.CodeTimeout:         http.StatusGatewayTimeout,
	domain.CodeCircuitOpen:     http.StatusServiceUnavailable,
}

// handleServiceError maps domain errors to HTTP responses. Client errors log
// at debug, token failures at warn, everything else at error.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	code := domain.CodeOf(err)
	status, ok := errorStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	var external *domain.ErrExternalService
	switch {
	case errors.As(err, &external):
		msg = "upstream service unavailable: " + external.Service
	case status == http.StatusInternalServerError:
		msg = "internal server error"
	}

	fields := []zap.Field{zap.String("code", code), zap.Int("status", status), zap.Error(err)}
	switch {
	case status >= 500:
		logger.Error("request failed", fields...)
	case status == http.StatusUnauthorized:
		logger.Warn("request rejected", fields...)
	default:
		logger.Debug("request rejected", fields...)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
