package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

type premiumFlags struct {
	vehicle        string
	capacity       string
	coverage       string
	plan           string
	claims         string
	telematics     bool
	motorcycleType string
	registration   string
	addons         []string
}

func newPremiumCmd(opts *options) *cobra.Command {
	f := &premiumFlags{}

	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Price a set of answers without a conversation",
		Example: `  quotectl premium --vehicle car --capacity "2001cc - 3000cc" --claims 1_minor
  quotectl premium --vehicle motorcycle --motorcycle-type ev --registration ev --addon roadside --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := opts.engine()
			if err != nil {
				return err
			}
			state, err := f.state(eng)
			if err != nil {
				return err
			}

			b := eng.Calculate(state)
			currency := eng.Catalog().Currency()
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"breakdown": b,
					"currency":  currency,
				})
			}
			printBreakdown(cmd.OutOrStdout(), b, currency)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.vehicle, "vehicle", string(domain.VehicleCar), "vehicle type (car, motorcycle)")
	fl.StringVar(&f.capacity, "capacity", "", "engine capacity band label, e.g. \"1601cc - 2000cc\"")
	fl.StringVar(&f.coverage, "coverage", string(domain.CoverageComprehensive), "coverage (comprehensive, third_party)")
	fl.StringVar(&f.plan, "plan", string(domain.PlanDrivePremium), "plan name")
	fl.StringVar(&f.claims, "claims", string(domain.ClaimsNone), "claims history (no_claims, 1_minor, multiple)")
	fl.BoolVar(&f.telematics, "telematics", false, "opt into the smart driver programme")
	fl.StringVar(&f.motorcycleType, "motorcycle-type", "", "motorcycle powertrain (ev, hybrid, petrol)")
	fl.StringVar(&f.registration, "registration", "", "motorcycle registration (ev, petrol, pending)")
	fl.StringSliceVar(&f.addons, "addon", nil, "add-on id, repeatable")
	return cmd
}

// state turns the flags into a pricing-complete conversation state.
func (f *premiumFlags) state(eng *engine.Engine) (domain.State, error) {
	cat := eng.Catalog()

	vt := domain.VehicleType(f.vehicle)
	if vt != domain.VehicleCar && vt != domain.VehicleMotorcycle {
		return domain.State{}, fmt.Errorf("unknown vehicle type %q", f.vehicle)
	}
	ct := domain.CoverageType(f.coverage)
	if ct != domain.CoverageComprehensive && ct != domain.CoverageThirdParty {
		return domain.State{}, fmt.Errorf("unknown coverage %q", f.coverage)
	}
	switch domain.ClaimsHistory(f.claims) {
	case domain.ClaimsNone, domain.ClaimsOneMinor, domain.ClaimsMultiple:
	default:
		return domain.State{}, fmt.Errorf("unknown claims history %q", f.claims)
	}

	capacity := f.capacity
	if capacity == "" {
		capacity = cat.Capacities(vt)[0]
	} else if band, ok := cat.MatchCapacity(vt, capacity); ok {
		capacity = band
	} else {
		return domain.State{}, fmt.Errorf("unknown engine capacity %q for %s", f.capacity, vt)
	}

	telematics := domain.No
	if f.telematics {
		telematics = domain.Yes
	}

	s := domain.State{
		VehicleType:            vt,
		EngineCapacity:         capacity,
		CoverageType:           ct,
		PlanName:               domain.PlanName(f.plan),
		ClaimsHistory:          domain.ClaimsHistory(f.claims),
		TelematicsConsent:      telematics,
		MotorcycleType:         domain.MotorcycleType(f.motorcycleType),
		MotorcycleRegistration: domain.MotorcycleRegistration(f.registration),
	}

	if len(f.addons) == 0 {
		return s, nil
	}
	known := map[string]bool{}
	for _, a := range cat.Addons() {
		known[a.ID] = true
	}
	patch := map[string]bool{}
	for _, id := range f.addons {
		if !known[id] {
			return domain.State{}, fmt.Errorf("unknown add-on %q", id)
		}
		patch["addon_"+id] = true
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return domain.State{}, err
	}
	return engine.MergeState(s, raw)
}
