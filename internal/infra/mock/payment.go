package mock

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Payments approves every positive charge.
type Payments struct{}

// NewPayments returns the demo payment processor.
func NewPayments() *Payments { return &Payments{} }

// Charge approves the charge and returns a processor reference.
func (Payments) Charge(ctx context.Context, sessionID, method string, amount float64) (*domain.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	ref := "CHG-" + strings.ToUpper(uuid.NewString()[:8])
	return &domain.ChargeResult{Reference: ref, Success: true}, nil
}
