package engine

import (
	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// rule is one entry in the chain. when sees the state as persisted plus the
// turn's command; then may set fields on its working copy, and whatever it
// sets is returned to the caller as collected data.
type rule struct {
	name string
	when func(s domain.State, cmd domain.Command) bool
	then func(s *domain.State, cmd domain.Command) domain.Prompt
}

// evaluate returns the prompt of the first rule whose condition holds.
func (e *Engine) evaluate(s *domain.State, cmd domain.Command) domain.Prompt {
	for _, r := range e.rules {
		if !r.when(*s, cmd) {
			continue
		}
		p := r.then(s, cmd)
		if p.Rule == "" {
			p.Rule = r.name
		}
		return p
	}
	return e.fallbackPrompt(s, cmd)
}

// buildRules lays out the chain. Order is significant: each rule assumes every
// rule above it did not match.
func (e *Engine) buildRules() []rule {
	return []rule{
		{"new_quote", isCommand(domain.CommandNewQuote), e.welcomePrompt},
		{"welcome", func(s domain.State, _ domain.Command) bool { return s.VehicleType == "" }, e.welcomePrompt},

		// Vehicle intake
		{"vin_question", func(s domain.State, _ domain.Command) bool {
			return s.VehicleType == domain.VehicleCar && s.VehicleMake == "" && s.HasVIN == nil && s.VINData == nil
		}, e.vinQuestionPrompt},
		{"vin_entry", func(s domain.State, _ domain.Command) bool {
			return s.HasVIN != nil && *s.HasVIN && s.VINNumber == "" && s.VINData == nil
		}, e.vinEntryPrompt},
		{"vin_confirm", func(s domain.State, _ domain.Command) bool {
			return s.VINData != nil && s.VehicleMake == ""
		}, e.vinConfirmPrompt},
		{"make", func(s domain.State, _ domain.Command) bool { return s.VehicleMake == "" }, e.makePrompt},
		{"model", func(s domain.State, _ domain.Command) bool { return s.VehicleModel == "" }, e.modelPrompt},
		{"capacity", func(s domain.State, _ domain.Command) bool { return s.EngineCapacity == "" }, e.capacityPrompt},
		{"usage", func(s domain.State, _ domain.Command) bool {
			_, _, pending := e.pendingUsageQuestion(&s)
			return s.VehicleType == domain.VehicleCar && pending
		}, e.usagePrompt},
		{"driving_environment", func(s domain.State, _ domain.Command) bool {
			return s.VehicleType == domain.VehicleCar && !s.EnvironmentFinalized()
		}, e.environmentPrompt},
		{"motorcycle_type", func(s domain.State, _ domain.Command) bool {
			return s.VehicleType == domain.VehicleMotorcycle && s.MotorcycleType == ""
		}, e.motorcycleTypePrompt},
		{"motorcycle_registration", func(s domain.State, _ domain.Command) bool {
			return s.VehicleType == domain.VehicleMotorcycle && s.MotorcycleRegistration == ""
		}, e.registrationPrompt},
		{"vehicle_summary", func(s domain.State, _ domain.Command) bool { return !s.VehicleConfirmed }, e.vehicleSummaryPrompt},

		// Coverage
		{"coverage", func(s domain.State, _ domain.Command) bool { return s.CoverageType == "" }, e.coveragePrompt},
		{"plan", func(s domain.State, _ domain.Command) bool { return s.PlanName == "" }, e.planPrompt},

		// Driver
		{"driver_method", func(s domain.State, _ domain.Command) bool { return s.DriverInfoMethod == "" }, e.driverMethodPrompt},
		{"singpass_consent", func(s domain.State, _ domain.Command) bool {
			return s.DriverInfoMethod == domain.DriverInfoSingpass && s.SingpassConsent == ""
		}, e.consentPrompt},
		{"nric_entry", func(s domain.State, _ domain.Command) bool { return s.DriverName == "" }, e.nricPrompt},
		{"driver_confirm", func(s domain.State, _ domain.Command) bool { return !s.DriverConfirmed }, e.driverConfirmPrompt},
		{"claims", func(s domain.State, _ domain.Command) bool { return s.ClaimsHistory == "" }, e.claimsPrompt},
		{"additional_drivers", func(s domain.State, _ domain.Command) bool { return s.AdditionalDrivers == "" }, e.additionalDriversPrompt},

		// Telematics
		{"telematics_data_sharing", func(s domain.State, _ domain.Command) bool {
			return s.TelematicsDataSharing == ""
		}, e.dataSharingPrompt},
		{"telematics_safety_alerts", func(s domain.State, _ domain.Command) bool {
			return s.TelematicsDataSharing == domain.Yes && s.TelematicsSafetyAlerts == ""
		}, e.safetyAlertsPrompt},
		{"telematics_enroll", func(s domain.State, _ domain.Command) bool {
			return s.TelematicsConsent == ""
		}, e.telematicsPrompt},

		// Quote
		{"modify_menu", func(s domain.State, cmd domain.Command) bool {
			return cmd == domain.CommandModify && s.HasQuote() && !s.PaymentInitiated
		}, e.modifyPrompt},
		{"customize", func(s domain.State, cmd domain.Command) bool {
			return cmd == domain.CommandCustomize && s.HasQuote() && !s.PaymentInitiated
		}, e.customizePrompt},
		{"risk_snapshot", func(s domain.State, _ domain.Command) bool { return !s.RiskAssessed }, e.riskPrompt},
		{"quote", func(s domain.State, _ domain.Command) bool {
			return s.FinalPremium == nil && s.PricingInputsComplete()
		}, e.quotePrompt},

		// Payment and documents
		{"payment_gateway", func(s domain.State, _ domain.Command) bool {
			return s.PaymentInitiated && !s.PaymentCompleted
		}, e.paymentPrompt},
		{"policy_issued", func(s domain.State, _ domain.Command) bool {
			return s.PaymentCompleted && !s.DocumentsReady
		}, e.policyPrompt},
		{"documents_ready", func(s domain.State, _ domain.Command) bool { return s.DocumentsReady }, e.documentsReadyPrompt},
		{"quote_display", func(s domain.State, _ domain.Command) bool {
			return s.HasQuote() && !s.PaymentInitiated
		}, e.quoteDisplayPrompt},

		{"fallback", func(domain.State, domain.Command) bool { return true }, e.fallbackPrompt},
	}
}

func isCommand(want domain.Command) func(domain.State, domain.Command) bool {
	return func(_ domain.State, cmd domain.Command) bool { return cmd == want }
}
