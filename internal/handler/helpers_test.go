package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", &domain.ErrNotFound{Resource: "session", ID: "s1"}, http.StatusNotFound, domain.CodeNotFound, "session not found: s1"},
		{"wrapped validation", fmt.Errorf("chat: %w", &domain.ErrValidation{Field: "content", Message: "is required"}), http.StatusBadRequest, domain.CodeValidation, "chat: validation error on 'content': is required"},
		{"conflict", &domain.ErrConflict{Message: "quote is incomplete"}, http.StatusConflict, domain.CodeConflict, "quote is incomplete"},
		{"unauthorized", &domain.ErrUnauthorized{}, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized"},
		{"external", &domain.ErrExternalService{Service: "vin-decoder", Err: errors.New("dial tcp")}, http.StatusBadGateway, domain.CodeExternalService, "upstream service unavailable: vin-decoder"},
		{"timeout", &domain.ErrTimeout{Operation: "vin decode"}, http.StatusGatewayTimeout, domain.CodeTimeout, "operation timed out: vin decode"},
		{"circuit open", &domain.ErrCircuitOpen{Service: "supabase"}, http.StatusServiceUnavailable, domain.CodeCircuitOpen, "circuit breaker open for service: supabase"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, domain.CodeInternal, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Error)
		})
	}
}
