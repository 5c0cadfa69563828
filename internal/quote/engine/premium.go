package engine

import (
	"fmt"
	"math"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Calculate prices state. It is a pure function of the pricing inputs and the
// catalog rates; calling it twice on the same state yields the same result.
//
// The base rate is loaded by the engine surcharge and the plan multiplier to
// give the gross premium. NCD, telematics and green vehicle discounts are each
// a percentage of gross; add-ons are flat and added after discounts.
func (e *Engine) Calculate(s domain.State) domain.Breakdown {
	p := e.catalog.Pricing

	base := e.catalog.BaseRate(s.CoverageType, s.VehicleType)
	engineMult := e.catalog.EngineMultiplier(s.EngineCapacity)
	planMult := e.catalog.PlanMultiplier(s.PlanName)

	b := domain.Breakdown{
		BasePremium:   round2(base),
		EngineLoading: round2(base * (engineMult - 1)),
		PlanLoading:   round2(base * engineMult * (planMult - 1)),
		GrossPremium:  round2(base * engineMult * planMult),
		NCDPercent:    e.catalog.NCDPercent(s.ClaimsHistory),
	}
	b.NCDDiscount = round2(b.GrossPremium * float64(b.NCDPercent) / 100)
	if s.TelematicsConsent == domain.Yes {
		b.TelematicsDiscount = round2(b.GrossPremium * p.TelematicsPercent / 100)
	}
	if s.GreenVehicleEligible() {
		b.GreenVehicleDiscount = round2(b.GrossPremium * p.GreenVehiclePercent / 100)
	}

	addonItems := e.SelectedAddons(s)
	for _, a := range addonItems {
		b.AddonsTotal += a.Amount
	}
	b.AddonsTotal = round2(b.AddonsTotal)

	b.FinalPremium = round2(b.GrossPremium - b.NCDDiscount - b.TelematicsDiscount - b.GreenVehicleDiscount + b.AddonsTotal)
	b.Items = e.lineItems(s, b, addonItems)
	return b
}

// lineItems lists every non-zero component, discounts as negative amounts.
// The final premium line is always present.
func (e *Engine) lineItems(s domain.State, b domain.Breakdown, addons []domain.LineItem) []domain.LineItem {
	coverage := s.CoverageType
	if coverage == "" {
		coverage = domain.CoverageThirdParty
	}
	items := []domain.LineItem{{Item: fmt.Sprintf("Base Premium (%s)", coverage.Label()), Amount: b.BasePremium}}
	add := func(label string, amount float64) {
		if amount != 0 {
			items = append(items, domain.LineItem{Item: label, Amount: amount})
		}
	}
	add(fmt.Sprintf("Engine Capacity Loading (%s)", s.EngineCapacity), b.EngineLoading)
	add(fmt.Sprintf("Plan Upgrade (%s)", s.PlanName), b.PlanLoading)
	add(fmt.Sprintf("No Claim Discount (%d%%)", b.NCDPercent), -b.NCDDiscount)
	add(fmt.Sprintf("Smart Driver Discount (%g%%)", e.catalog.Pricing.TelematicsPercent), -b.TelematicsDiscount)
	add(fmt.Sprintf("Green Vehicle Discount (%g%%)", e.catalog.Pricing.GreenVehiclePercent), -b.GreenVehicleDiscount)
	items = append(items, addons...)
	return append(items, domain.LineItem{Item: "Final Premium", Amount: b.FinalPremium})
}

// SelectedAddons lists the chosen add-ons in catalog order.
func (e *Engine) SelectedAddons(s domain.State) []domain.LineItem {
	var items []domain.LineItem
	for _, a := range e.catalog.Addons() {
		if addonSelected(s, a.ID) {
			items = append(items, domain.LineItem{Item: a.Name, Amount: round2(a.Price)})
		}
	}
	return items
}

// writePricing stores the breakdown figures on the state.
func writePricing(s *domain.State, b domain.Breakdown) {
	s.BasePremium = ptr(b.BasePremium)
	s.GrossPremium = ptr(b.GrossPremium)
	s.NCDDiscount = ptr(b.NCDDiscount)
	s.TelematicsDiscount = ptr(b.TelematicsDiscount)
	s.GreenVehicleDiscount = ptr(b.GreenVehicleDiscount)
	s.AddonsTotal = ptr(b.AddonsTotal)
	s.FinalPremium = ptr(b.FinalPremium)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr[T any](v T) *T {
	return &v
}
