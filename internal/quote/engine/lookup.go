package engine

import (
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// LookupKind names the external data a state is waiting for.
type LookupKind string

const (
	LookupNone     LookupKind = ""
	LookupVIN      LookupKind = "vin"
	LookupIdentity LookupKind = "identity"
)

// Lookup is a pending external retrieval. Key is the VIN or NRIC to fetch;
// an empty identity key means the Singpass session's own identity.
type Lookup struct {
	Kind LookupKind
	Key  string
}

// PendingLookup reports the external retrieval the state needs before its
// next prompt can be chosen.
func (e *Engine) PendingLookup(s domain.State) Lookup {
	switch {
	case s.VINNumber != "" && s.VINData == nil && s.VehicleMake == "" && !s.VINLookupFailed:
		return Lookup{Kind: LookupVIN, Key: s.VINNumber}
	case s.DriverName == "" && s.DriverInfoMethod == domain.DriverInfoSingpass && s.SingpassConsent == domain.ConsentYes:
		return Lookup{Kind: LookupIdentity}
	case s.DriverName == "" && s.DriverInfoMethod == domain.DriverInfoManual && s.DriverNRIC != "" && !s.IdentityLookupFailed:
		return Lookup{Kind: LookupIdentity, Key: s.DriverNRIC}
	}
	return Lookup{}
}

// ResolveVIN records the outcome of a VIN decode. A failed or empty decode
// drops back to manual entry.
func (e *Engine) ResolveVIN(state domain.State, data *domain.VINData, err error) domain.State {
	s := state.Clone()
	if err != nil || data == nil || data.Make == "" {
		e.logger.Info("vin decode unavailable, falling back to manual entry",
			zap.String("vin", s.VINNumber),
			zap.Error(err),
		)
		no := false
		s.HasVIN = &no
		s.VINNumber = ""
		s.VINData = nil
		s.VINLookupFailed = true
		return s
	}

	decoded := *data
	if brand, ok := e.catalog.MatchMake(domain.VehicleCar, decoded.Make); ok {
		decoded.Make = brand
	} else {
		decoded.Make = titleCase(decoded.Make)
	}
	if model, ok := e.catalog.MatchModel(decoded.Make, decoded.Model); ok {
		decoded.Model = model
	}
	if decoded.Capacity == "" {
		decoded.Capacity = e.catalog.BandForCC(domain.VehicleCar, decoded.DisplacementCC)
	}
	if decoded.VIN == "" {
		decoded.VIN = s.VINNumber
	}
	s.VINData = &decoded
	s.VINLookupFailed = false
	return s
}

// ResolveIdentity records the outcome of an identity retrieval. On failure
// the driver is asked for their NRIC manually.
func (e *Engine) ResolveIdentity(state domain.State, rec *domain.IdentityRecord, err error) domain.State {
	s := state.Clone()
	if err != nil || rec == nil {
		e.logger.Info("identity retrieval unavailable, asking for manual entry",
			zap.String("method", string(s.DriverInfoMethod)),
			zap.Error(err),
		)
		s.DriverInfoMethod = domain.DriverInfoManual
		s.DriverNRIC = ""
		s.IdentityLookupFailed = true
		return s
	}
	s.DriverName = rec.FullName
	s.DriverNRIC = rec.NRIC
	s.DriverDOB = rec.DOB
	s.DriverPhone = rec.Phone
	s.DriverEmail = rec.Email
	s.DriverAddress = rec.Address
	s.LicenseClass = rec.DrivingLicense.Class
	s.IdentityLookupFailed = false
	return s
}
