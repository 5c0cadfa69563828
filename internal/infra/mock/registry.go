// Package mock provides in-process stand-ins for the external providers:
// vehicle registry, identity retrieval, payment processing and offline VIN decoding.
package mock

import (
	"context"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Registry serves a fixed set of registered vehicles by plate number.
type Registry struct {
	vehicles map[string]domain.VehicleRecord
}

// NewRegistry returns a registry seeded with the demo plates.
func NewRegistry() *Registry {
	return &Registry{vehicles: map[string]domain.VehicleRecord{
		"SGX1234A": {
			RegistrationNumber: "SGX1234A",
			Make:               "Toyota",
			Model:              "Camry",
			EngineCC:           "2000cc",
			Year:               2022,
			RoadTaxValid:       true,
			AccidentHistory:    []domain.AccidentRecord{},
		},
		"SBA5678B": {
			RegistrationNumber: "SBA5678B",
			Make:               "Honda",
			Model:              "Civic",
			EngineCC:           "1500cc",
			Year:               2021,
			RoadTaxValid:       true,
			AccidentHistory:    []domain.AccidentRecord{{Date: "2023-05-15", Severity: "minor"}},
		},
	}}
}

// LookupVehicle returns the record for a plate, case-insensitively.
func (r *Registry) LookupVehicle(ctx context.Context, plate string) (*domain.VehicleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToUpper(strings.TrimSpace(plate))
	v, ok := r.vehicles[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: key}
	}
	v.AccidentHistory = append([]domain.AccidentRecord{}, v.AccidentHistory...)
	return &v, nil
}
