package engine

import (
	"fmt"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
)

// Closed vocabularies of the conversation. Each option is both the button a
// prompt offers and the matcher the normalizer uses, so labels and values
// can never drift apart.

type opt = catalog.Option

var (
	vehicleTypeOptions = []opt{
		{Label: "🚗 Car", Value: string(domain.VehicleCar)},
		{Label: "🏍️ Motorcycle", Value: string(domain.VehicleMotorcycle), Aliases: []string{"two-wheeler", "motorbike"}},
	}

	hasVINOptions = []opt{
		{Label: "Yes, I have my VIN", Value: "has_vin_yes"},
		{Label: "No, enter details manually", Value: "has_vin_no"},
	}
	vinSkipOption     = opt{Label: "Enter details manually", Value: "vin_skip", Aliases: []string{"skip"}}
	vinConfirmOptions = []opt{
		{Label: "✓ Use These Details", Value: "vin_confirm"},
		{Label: "Edit Details", Value: "vin_edit"},
	}

	motorcycleTypeOptions = []opt{
		{Label: "⚡ Electric (EV)", Value: "mc_type_ev", Aliases: []string{"ev", "electric"}},
		{Label: "🔋 Hybrid", Value: "mc_type_hybrid", Aliases: []string{"hybrid"}},
		{Label: "⛽ Petrol", Value: "mc_type_petrol", Aliases: []string{"petrol"}},
	}
	registrationOptions = []opt{
		{Label: "Registered as EV", Value: "mc_reg_ev"},
		{Label: "Registered as Petrol", Value: "mc_reg_petrol"},
		{Label: "Registration Pending", Value: "mc_reg_pending", Aliases: []string{"pending"}},
	}

	envDoneOption = opt{Label: "✓ Done Selecting", Value: "env_done", Aliases: []string{"done"}}

	confirmVehicleOptions = []opt{
		{Label: "✓ Confirm & Continue", Value: "confirm_vehicle", Aliases: []string{"confirm details"}},
		{Label: "Edit Details", Value: "edit_vehicle"},
	}

	coverageOptions = []opt{
		{Label: "Comprehensive", Value: string(domain.CoverageComprehensive)},
		{Label: "Third Party Only", Value: string(domain.CoverageThirdParty), Aliases: []string{"third party"}},
	}
	planOptions = []opt{
		{Label: "Drive Premium", Value: string(domain.PlanDrivePremium), Aliases: []string{"premium"}},
		{Label: "Drive Classic", Value: string(domain.PlanDriveClassic), Aliases: []string{"classic"}},
	}

	driverMethodOptions = []opt{
		{Label: "🔐 Use Singpass", Value: string(domain.DriverInfoSingpass)},
		{Label: "Enter Manually", Value: string(domain.DriverInfoManual)},
	}
	consentOptions = []opt{
		{Label: "✓ I Consent", Value: string(domain.ConsentYes), Aliases: []string{"yes"}},
		{Label: "No, Enter Manually", Value: string(domain.ConsentNo), Aliases: []string{"no"}},
	}
	confirmDriverOptions = []opt{
		{Label: "✓ Confirm Details", Value: "confirm_driver"},
		{Label: "Edit Details", Value: "edit_driver"},
	}

	claimsOptions = []opt{
		{Label: "No Claims (NCD eligible)", Value: string(domain.ClaimsNone), Aliases: []string{"no claims"}},
		{Label: "1 Minor Claim", Value: string(domain.ClaimsOneMinor), Aliases: []string{"1 minor"}},
		{Label: "Multiple Claims", Value: string(domain.ClaimsMultiple)},
	}
	additionalDriverOptions = []opt{
		{Label: "No, Just Me", Value: "none", Aliases: []string{"just me"}},
		{Label: "Add 1 Driver", Value: "add_one"},
		{Label: "Add 2+ Drivers", Value: "add_multiple"},
	}

	dataSharingOptions = []opt{
		{Label: "Yes, Share My Data", Value: "data_sharing_yes", Aliases: []string{"yes"}},
		{Label: "No Thanks", Value: "data_sharing_no", Aliases: []string{"no"}},
	}
	safetyAlertOptions = []opt{
		{Label: "Yes, Send Me Alerts", Value: "safety_alerts_yes", Aliases: []string{"yes"}},
		{Label: "No Alerts", Value: "safety_alerts_no", Aliases: []string{"no"}},
	}

	viewQuoteOption = opt{Label: "View My Quote", Value: "view_quote", Aliases: []string{"back to quote"}}

	proceedOption   = opt{Label: "✓ Proceed to Payment", Value: "proceed_to_payment", Aliases: []string{"accept_quote", "accept & generate policy"}}
	customizeOption = opt{Label: "🛠️ Customize Add-ons", Value: string(domain.CommandCustomize), Aliases: []string{"customize", "customise"}}
	modifyOption    = opt{Label: "Modify Quote", Value: string(domain.CommandModify), Aliases: []string{"modify_quote"}}
	applyOption     = opt{Label: "✓ Apply Add-ons", Value: string(domain.CommandApplyAddons)}

	changeCoverageOption   = opt{Label: "Change Coverage Type", Value: string(domain.CommandChangeCoverage)}
	changePlanOption       = opt{Label: "Change Plan", Value: string(domain.CommandChangePlan)}
	changeTelematicsOption = opt{Label: "Change Telematics Option", Value: string(domain.CommandChangeTelematics)}
	keepQuoteOption        = opt{Label: "Keep Current Quote", Value: string(domain.CommandKeepQuote)}
	newQuoteOption         = opt{Label: "Start New Quote", Value: string(domain.CommandNewQuote), Aliases: []string{"start", "new quote"}}
	openPaymentOption      = opt{Label: "Open Payment Gateway", Value: "open_payment_gateway"}
	downloadPDFOption      = opt{Label: "📄 Download PDF", Value: "download_pdf"}
	helpOption             = opt{Label: "Help", Value: "help"}
	passiveOptions         = []opt{viewQuoteOption, openPaymentOption, downloadPDFOption, helpOption}
)

// telematicsOptions carries the discount in its label, so it is built from the catalog.
func (e *Engine) telematicsOptions() []opt {
	return []opt{
		{Label: fmt.Sprintf("Yes, Save %g%%!", e.catalog.Pricing.TelematicsPercent), Value: string(domain.Yes), Aliases: []string{"enroll"}},
		{Label: "No Thanks", Value: string(domain.No)},
	}
}

func toggleValue(addonID string) string {
	return "toggle_" + addonID
}

func matchOption(options []opt, folded string) (opt, bool) {
	for _, o := range options {
		if o.Matches(folded) {
			return o, true
		}
	}
	return opt{}, false
}

func replies(options ...opt) []domain.QuickReply {
	out := make([]domain.QuickReply, 0, len(options))
	for _, o := range options {
		out = append(out, o.QuickReply())
	}
	return out
}
