package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

// maxLookupsPerTurn bounds the resolve loop. A turn needs at most one VIN
// decode and one identity retrieval.
const maxLookupsPerTurn = 3

// resolveLookups performs the external retrievals the state is waiting for.
// Failures never abort the turn: the engine records them and the
// conversation falls back to manual entry.
func (s *QuoteService) resolveLookups(ctx context.Context, state domain.State) domain.State {
	for range maxLookupsPerTurn {
		lookup := s.engine.PendingLookup(state)
		switch lookup.Kind {
		case engine.LookupVIN:
			data, err := s.decodeVIN(ctx, lookup.Key)
			state = s.engine.ResolveVIN(state, data, err)
		case engine.LookupIdentity:
			nric := lookup.Key
			if nric == "" {
				nric = s.cfg.SingpassDefaultNRIC
			}
			rec, err := s.retrieveIdentity(ctx, nric)
			state = s.engine.ResolveIdentity(state, rec, err)
		default:
			return state
		}
	}
	return state
}

// decodeVIN decodes through the cache. Concurrent turns asking for the same
// VIN share one upstream call.
func (s *QuoteService) decodeVIN(ctx context.Context, vin string) (*domain.VINData, error) {
	if s.deps.VINCache == nil {
		return s.callVINDecoder(ctx, vin)
	}
	key := "vin:" + strings.ToUpper(strings.TrimSpace(vin))
	data, hit, err := s.deps.VINCache.GetOrLoad(key, func() (*domain.VINData, error) {
		return s.callVINDecoder(ctx, vin)
	})
	if hit {
		s.metrics.IncrCacheHit("vin")
	} else {
		s.metrics.IncrCacheMiss("vin")
	}
	return data, err
}

// callVINDecoder holds a bulkhead slot for the remote call.
func (s *QuoteService) callVINDecoder(ctx context.Context, vin string) (*domain.VINData, error) {
	if s.deps.VIN == nil {
		return nil, &domain.ErrExternalService{Service: "vin-decoder", Err: errors.New("not configured")}
	}
	if err := s.lookups.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "vin decode"}
	}
	data, err := s.deps.VIN.DecodeVIN(ctx, vin)
	s.lookups.Release()
	if err != nil {
		s.recordLookupError("vin-decoder", err)
		return nil, err
	}
	return data, nil
}

func (s *QuoteService) retrieveIdentity(ctx context.Context, nric string) (*domain.IdentityRecord, error) {
	if err := s.lookups.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "identity retrieval"}
	}
	rec, err := s.deps.Identity.RetrieveIdentity(ctx, nric)
	s.lookups.Release()
	if err != nil {
		s.recordLookupError("identity", err)
		return nil, err
	}
	return rec, nil
}

// recordLookupError counts provider failures. A not-found answer is a normal outcome.
func (s *QuoteService) recordLookupError(service string, err error) {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return
	}
	s.metrics.IncrExternalError(service)
	s.logger.Warn("lookup failed", zap.String("service", service), zap.Error(err))
}

// ============================================================
// Direct lookups
// ============================================================

// LookupVehicle queries the vehicle registry by plate number.
func (s *QuoteService) LookupVehicle(ctx context.Context, plate string) (*domain.VehicleRecord, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.LookupVehicle")
	defer span.End()

	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return nil, &domain.ErrValidation{Field: "plate", Message: "is required"}
	}
	span.SetAttributes(attribute.String("vehicle.plate", plate))

	rec, err := s.deps.Registry.LookupVehicle(ctx, plate)
	if err != nil {
		s.recordLookupError("registry", err)
		return nil, err
	}
	return rec, nil
}

// RetrieveIdentity fetches driver particulars by NRIC.
func (s *QuoteService) RetrieveIdentity(ctx context.Context, nric string) (*domain.IdentityRecord, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.RetrieveIdentity")
	defer span.End()

	if !engine.ValidNRIC(nric) {
		return nil, &domain.ErrValidation{Field: "nric", Message: "must look like S1234567A"}
	}
	return s.retrieveIdentity(ctx, strings.ToUpper(strings.TrimSpace(nric)))
}

// DecodeVIN decodes a VIN and fills in the engine capacity band.
func (s *QuoteService) DecodeVIN(ctx context.Context, vin string) (*domain.VINData, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.DecodeVIN")
	defer span.End()

	if !engine.ValidVIN(vin) {
		return nil, &domain.ErrValidation{Field: "vin", Message: "must be 17 characters without I, O or Q"}
	}
	vin = strings.ToUpper(strings.TrimSpace(vin))
	span.SetAttributes(attribute.String("vin", vin))

	data, err := s.decodeVIN(ctx, vin)
	if err != nil {
		return nil, err
	}
	out := *data
	if out.Capacity == "" {
		out.Capacity = s.engine.Catalog().BandForCC(domain.VehicleCar, out.DisplacementCC)
	}
	return &out, nil
}
