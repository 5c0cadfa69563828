package mock

import (
	"context"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Identity serves a fixed set of identity records by NRIC.
type Identity struct {
	records map[string]domain.IdentityRecord
}

// NewIdentity returns an identity provider seeded with the demo record.
func NewIdentity() *Identity {
	return &Identity{records: map[string]domain.IdentityRecord{
		"S1234567A": {
			FullName:      "Tan Ah Kow",
			NRIC:          "S1234567A",
			DOB:           "1985-06-15",
			Gender:        "Male",
			MaritalStatus: "Married",
			Phone:         "+6591234567",
			Email:         "tan.ahkow@email.com",
			Address:       "123 Orchard Road, #08-01, Singapore 238857",
			DrivingLicense: domain.DrivingLicense{
				Class:      "3",
				IssueDate:  "2005-03-20",
				ExpiryDate: "2030-03-19",
			},
		},
	}}
}

// RetrieveIdentity returns the record for an NRIC, case-insensitively.
func (i *Identity) RetrieveIdentity(ctx context.Context, nric string) (*domain.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToUpper(strings.TrimSpace(nric))
	rec, ok := i.records[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "identity", ID: key}
	}
	return &rec, nil
}
