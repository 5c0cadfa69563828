package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return engine.New(cat, zap.NewNop())
}

func TestCalculate_CarComprehensivePremiumWithTelematics(t *testing.T) {
	e := newEngine(t)
	b := e.Calculate(domain.State{
		VehicleType:       domain.VehicleCar,
		EngineCapacity:    "1601cc - 2000cc",
		CoverageType:      domain.CoverageComprehensive,
		PlanName:          domain.PlanDrivePremium,
		ClaimsHistory:     domain.ClaimsNone,
		TelematicsConsent: domain.Yes,
	})

	assert.Equal(t, 1200.0, b.BasePremium)
	assert.Equal(t, 0.0, b.EngineLoading)
	assert.Equal(t, 240.0, b.PlanLoading)
	assert.Equal(t, 1440.0, b.GrossPremium)
	assert.Equal(t, 30, b.NCDPercent)
	assert.Equal(t, 432.0, b.NCDDiscount)
	assert.Equal(t, 216.0, b.TelematicsDiscount)
	assert.Equal(t, 0.0, b.GreenVehicleDiscount)
	assert.Equal(t, 792.0, b.FinalPremium)
}

func TestCalculate_MotorcycleThirdPartyNoDiscounts(t *testing.T) {
	e := newEngine(t)
	b := e.Calculate(domain.State{
		VehicleType:       domain.VehicleMotorcycle,
		EngineCapacity:    "Above 650cc",
		CoverageType:      domain.CoverageThirdParty,
		PlanName:          domain.PlanDriveClassic,
		ClaimsHistory:     domain.ClaimsMultiple,
		TelematicsConsent: domain.No,
	})

	assert.Equal(t, 500.0, b.GrossPremium)
	assert.Equal(t, 0.0, b.NCDDiscount)
	assert.Equal(t, 500.0, b.FinalPremium)

	require.Len(t, b.Items, 2, "zero lines are omitted")
	assert.Equal(t, "Base Premium (Third Party)", b.Items[0].Item)
	assert.Equal(t, domain.LineItem{Item: "Final Premium", Amount: 500}, b.Items[1])
}

func TestCalculate_GreenMotorcycle(t *testing.T) {
	e := newEngine(t)
	b := e.Calculate(domain.State{
		VehicleType:            domain.VehicleMotorcycle,
		EngineCapacity:         "200cc - 400cc",
		MotorcycleType:         domain.MotorcycleEV,
		MotorcycleRegistration: domain.RegistrationEV,
		CoverageType:           domain.CoverageComprehensive,
		PlanName:               domain.PlanDriveClassic,
		ClaimsHistory:          domain.ClaimsNone,
		TelematicsConsent:      domain.Yes,
	})

	assert.Equal(t, 750.0, b.GrossPremium)
	assert.Equal(t, 225.0, b.NCDDiscount)
	assert.Equal(t, 112.5, b.TelematicsDiscount)
	assert.Equal(t, 37.5, b.GreenVehicleDiscount)
	assert.Equal(t, 375.0, b.FinalPremium)
}

func TestCalculate_EngineSurcharge(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		band    string
		loading float64
		gross   float64
	}{
		{"1000cc - 1600cc", 0, 1200},
		{"2001cc - 3000cc", 360, 1560},
		{"Above 3000cc", 600, 1800},
	}
	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			b := e.Calculate(domain.State{
				VehicleType:    domain.VehicleCar,
				EngineCapacity: tt.band,
				CoverageType:   domain.CoverageComprehensive,
				PlanName:       domain.PlanDriveClassic,
				ClaimsHistory:  domain.ClaimsMultiple,
			})
			assert.Equal(t, tt.loading, b.EngineLoading)
			assert.Equal(t, tt.gross, b.GrossPremium)
		})
	}
}

func TestCalculate_AddonsAfterDiscounts(t *testing.T) {
	e := newEngine(t)
	s := domain.State{
		VehicleType:           domain.VehicleCar,
		EngineCapacity:        "1601cc - 2000cc",
		CoverageType:          domain.CoverageComprehensive,
		PlanName:              domain.PlanDrivePremium,
		ClaimsHistory:         domain.ClaimsNone,
		TelematicsConsent:     domain.Yes,
		AddonEngineProtection: true,
		AddonRoadside:         true,
	}
	b := e.Calculate(s)

	assert.Equal(t, 432.0, b.NCDDiscount, "discounts are computed on gross, not on add-ons")
	assert.Equal(t, 170.0, b.AddonsTotal)
	assert.Equal(t, 962.0, b.FinalPremium)

	var names []string
	for _, it := range b.Items {
		names = append(names, it.Item)
	}
	assert.Contains(t, names, "Engine Protection")
	assert.Contains(t, names, "24/7 Roadside Assistance")
	assert.NotContains(t, names, "Total Loss Protection")
}

func TestCalculate_MissingCoveragePricesAsThirdParty(t *testing.T) {
	e := newEngine(t)
	b := e.Calculate(domain.State{VehicleType: domain.VehicleCar})
	assert.Equal(t, 800.0, b.BasePremium)
	assert.Equal(t, "Base Premium (Third Party)", b.Items[0].Item)
}

func TestCalculate_Idempotent(t *testing.T) {
	e := newEngine(t)
	s := domain.State{
		VehicleType:       domain.VehicleCar,
		EngineCapacity:    "Above 3000cc",
		CoverageType:      domain.CoverageComprehensive,
		PlanName:          domain.PlanDrivePremium,
		ClaimsHistory:     domain.ClaimsOneMinor,
		TelematicsConsent: domain.Yes,
		AddonTotalLoss:    true,
	}
	assert.Equal(t, e.Calculate(s), e.Calculate(s))
}

func TestCalculate_GreenDiscountOnlyForEVMotorcycleRegisteredEV(t *testing.T) {
	e := newEngine(t)
	for _, vt := range []domain.VehicleType{domain.VehicleCar, domain.VehicleMotorcycle} {
		for _, mt := range []domain.MotorcycleType{domain.MotorcycleEV, domain.MotorcyclePetrol} {
			for _, reg := range []domain.MotorcycleRegistration{domain.RegistrationEV, domain.RegistrationPetrol} {
				b := e.Calculate(domain.State{
					VehicleType:            vt,
					MotorcycleType:         mt,
					MotorcycleRegistration: reg,
					CoverageType:           domain.CoverageComprehensive,
					PlanName:               domain.PlanDriveClassic,
					ClaimsHistory:          domain.ClaimsMultiple,
					TelematicsConsent:      domain.No,
				})
				eligible := vt == domain.VehicleMotorcycle && mt == domain.MotorcycleEV && reg == domain.RegistrationEV
				if eligible {
					assert.Greater(t, b.GreenVehicleDiscount, 0.0, "%s/%s/%s", vt, mt, reg)
				} else {
					assert.Zero(t, b.GreenVehicleDiscount, "%s/%s/%s", vt, mt, reg)
				}
			}
		}
	}
}

func TestCalculate_NeverNegative(t *testing.T) {
	e := newEngine(t)
	cat := e.Catalog()
	for _, vt := range []domain.VehicleType{domain.VehicleCar, domain.VehicleMotorcycle} {
		for _, band := range cat.Capacities(vt) {
			for _, ct := range []domain.CoverageType{domain.CoverageComprehensive, domain.CoverageThirdParty} {
				for _, plan := range []domain.PlanName{domain.PlanDrivePremium, domain.PlanDriveClassic} {
					for _, claims := range []domain.ClaimsHistory{domain.ClaimsNone, domain.ClaimsOneMinor, domain.ClaimsMultiple} {
						for _, tel := range []domain.YesNo{domain.Yes, domain.No} {
							b := e.Calculate(domain.State{
								VehicleType:            vt,
								EngineCapacity:         band,
								MotorcycleType:         domain.MotorcycleEV,
								MotorcycleRegistration: domain.RegistrationEV,
								CoverageType:           ct,
								PlanName:               plan,
								ClaimsHistory:          claims,
								TelematicsConsent:      tel,
							})
							assert.GreaterOrEqual(t, b.FinalPremium, 0.0)
							assert.Equal(t, "Final Premium", b.Items[len(b.Items)-1].Item)
						}
					}
				}
			}
		}
	}
}

func TestAssessRisk(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		claims domain.ClaimsHistory
		ncd    int
		level  domain.RiskLevel
	}{
		{domain.ClaimsNone, 30, domain.RiskLow},
		{domain.ClaimsOneMinor, 10, domain.RiskMedium},
		{domain.ClaimsMultiple, 0, domain.RiskHigh},
	}
	for _, tt := range tests {
		r := e.AssessRisk(domain.State{ClaimsHistory: tt.claims})
		assert.Equal(t, tt.ncd, r.NCDPercent, tt.claims)
		assert.Equal(t, tt.level, r.Level, tt.claims)
	}
}

func TestSettle_WritesRiskAndPricing(t *testing.T) {
	e := newEngine(t)
	s := quotedCar(t).state
	s.RiskAssessed = false
	s.NCDPercent = nil
	s.RiskLevel = ""
	s.FinalPremium = nil
	s.AddonRoadside = true

	got, b := e.Settle(s)
	assert.True(t, got.RiskAssessed)
	require.NotNil(t, got.NCDPercent)
	assert.Equal(t, 30, *got.NCDPercent)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	require.NotNil(t, got.FinalPremium)
	assert.Equal(t, 842.0, *got.FinalPremium)
	assert.Equal(t, b.FinalPremium, *got.FinalPremium)
	assert.Nil(t, s.FinalPremium, "the input state is left alone")
}
