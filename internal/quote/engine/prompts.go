package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
)

const (
	maxMakeOptions  = 8
	maxModelOptions = 6
)

func (e *Engine) welcomePrompt(_ *domain.State, cmd domain.Command) domain.Prompt {
	msg := "👋 Hi! I'm your motor insurance assistant. I'll help you get a quote in just a few minutes.\n\nWhat type of vehicle would you like to insure?"
	if cmd == domain.CommandNewQuote {
		msg = "No problem, let's start a fresh quote! What type of vehicle would you like to insure?"
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(vehicleTypeOptions...),
		NextMode: domain.ModeOrchestrator,
	}
}

func (e *Engine) vinQuestionPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Do you have your car's 17-character VIN (Vehicle Identification Number) handy? I can fill in the details for you.",
		Options:  replies(hasVINOptions...),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) vinEntryPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Please type your 17-character VIN. You'll find it on your vehicle log card or at the base of the windscreen.",
		Options:  replies(vinSkipOption),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) vinConfirmPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	v := s.VINData
	data := map[string]any{
		"vin":   v.VIN,
		"make":  v.Make,
		"model": v.Model,
	}
	if v.Year > 0 {
		data["year"] = v.Year
	}
	if v.Capacity != "" {
		data["engine_capacity"] = v.Capacity
	}
	if v.FuelType != "" {
		data["fuel_type"] = v.FuelType
	}
	return domain.Prompt{
		Message:  "✅ I found your vehicle! Please check the details:",
		Options:  replies(vinConfirmOptions...),
		NextMode: domain.ModeIntake,
		Cards:    []domain.Card{{Type: "vin_decoded", Data: data}},
	}
}

func (e *Engine) makePrompt(s *domain.State, _ domain.Command) domain.Prompt {
	msg := fmt.Sprintf("Great choice! Which brand is your %s?", s.VehicleType)
	if s.VINLookupFailed {
		msg = "I couldn't decode that VIN, so let's enter the details manually. " + msg
	}
	makes := e.catalog.Makes(s.VehicleType)
	if len(makes) > maxMakeOptions {
		makes = makes[:maxMakeOptions]
	}
	return domain.Prompt{
		Message:        msg,
		Options:        stringReplies(makes),
		NextMode:       domain.ModeIntake,
		ShowBrandLogos: true,
	}
}

func (e *Engine) modelPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	models := e.catalog.Models(s.VehicleMake)
	if len(models) > maxModelOptions {
		models = models[:maxModelOptions]
	}
	msg := fmt.Sprintf("Nice! What model is your %s?", s.VehicleMake)
	if len(models) == 0 {
		msg += " Just type it in."
	}
	return domain.Prompt{
		Message:  msg,
		Options:  stringReplies(models),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) capacityPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "What's the engine capacity of your vehicle?",
		Options:  stringReplies(e.catalog.Capacities(s.VehicleType)),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) usagePrompt(s *domain.State, _ domain.Command) domain.Prompt {
	q, _, _ := e.pendingUsageQuestion(s)
	return domain.Prompt{
		Message:  q.Message,
		Options:  replies(q.Options...),
		NextMode: domain.ModeUsage,
	}
}

func (e *Engine) environmentPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	msg := "Where do you usually drive? Select all that apply, then tap Done."
	selected := make([]string, 0, len(s.EnvironmentSelections))
	for _, env := range s.EnvironmentSelections {
		selected = append(selected, string(env))
	}
	if len(selected) > 0 {
		msg = "Got it. Anything else? Select more or tap Done."
	}
	options := append(append([]opt(nil), e.catalog.Environments()...), envDoneOption)
	return domain.Prompt{
		Message:     msg,
		Options:     replies(options...),
		NextMode:    domain.ModeUsage,
		MultiSelect: true,
		Cards: []domain.Card{{Type: "environment_selection", Data: map[string]any{
			"selected": selected,
		}}},
	}
}

func (e *Engine) motorcycleTypePrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Is your motorcycle electric, hybrid or petrol?",
		Options:  replies(motorcycleTypeOptions...),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) registrationPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "How is your motorcycle registered with LTA?",
		Options:  replies(registrationOptions...),
		NextMode: domain.ModeIntake,
	}
}

func (e *Engine) vehicleSummaryPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	data := map[string]any{
		"vehicle_type":    titleCase(string(s.VehicleType)),
		"make":            s.VehicleMake,
		"model":           s.VehicleModel,
		"engine_capacity": s.EngineCapacity,
	}
	if s.VehicleYear > 0 {
		data["year"] = s.VehicleYear
	}
	if s.VINNumber != "" {
		data["vin"] = s.VINNumber
	}
	switch s.VehicleType {
	case domain.VehicleCar:
		for _, q := range e.catalog.UsageQuestions() {
			if field := usageField(s, q.Field); field != nil {
				data[q.Field] = optionLabel(q.Options, *field)
			}
		}
		envs := make([]string, 0, len(s.DrivingEnvironment))
		for _, env := range s.DrivingEnvironment {
			envs = append(envs, optionLabel(e.catalog.Environments(), "env_"+string(env)))
		}
		data["driving_environment"] = envs
	case domain.VehicleMotorcycle:
		data["motorcycle_type"] = optionLabel(motorcycleTypeOptions, "mc_type_"+string(s.MotorcycleType))
		data["registration"] = optionLabel(registrationOptions, "mc_reg_"+string(s.MotorcycleRegistration))
	}
	return domain.Prompt{
		Message:  "Perfect! Here's a summary of your vehicle details:",
		Options:  replies(confirmVehicleOptions...),
		NextMode: domain.ModeIntake,
		Cards:    []domain.Card{{Type: "vehicle_summary", Data: data}},
	}
}

func (e *Engine) coveragePrompt(s *domain.State, cmd domain.Command) domain.Prompt {
	msg := "Thanks for confirming! Now let's choose your coverage. Comprehensive covers damage to your own vehicle too, while Third Party covers only damage you cause to others."
	if cmd == domain.CommandChangeCoverage {
		msg = "Sure! Please select your preferred coverage type:"
	}
	tiers := make([]map[string]any, 0, len(coverageOptions))
	for _, o := range coverageOptions {
		ct := domain.CoverageType(o.Value)
		tiers = append(tiers, map[string]any{
			"type":       o.Value,
			"name":       ct.Label(),
			"from_price": e.catalog.BaseRate(ct, s.VehicleType),
		})
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(coverageOptions...),
		NextMode: domain.ModeCoverage,
		Cards: []domain.Card{{Type: "coverage_comparison", Data: map[string]any{
			"currency": e.catalog.Currency(),
			"options":  tiers,
		}}},
	}
}

// planPrompt selects Drive Classic automatically for motorcycles and moves on.
func (e *Engine) planPrompt(s *domain.State, cmd domain.Command) domain.Prompt {
	if s.VehicleType == domain.VehicleMotorcycle {
		s.PlanName = domain.PlanDriveClassic
		next := e.evaluate(s, domain.CommandNone)
		next.Message = "Motorcycles are covered under our Drive Classic plan, so I've selected it for you.\n\n" + next.Message
		return next
	}

	msg := fmt.Sprintf("Excellent choice! For %s coverage we have two plans. Drive Premium adds a %d%% loading for extra benefits; Drive Classic keeps to the essentials.",
		s.CoverageType.Label(), int(math.Round((e.catalog.PlanMultiplier(domain.PlanDrivePremium)-1)*100)))
	if cmd == domain.CommandChangePlan {
		msg = fmt.Sprintf("Please select your preferred plan for %s coverage:", s.CoverageType.Label())
	}
	plans := make([]map[string]any, 0, len(planOptions))
	for _, o := range planOptions {
		plans = append(plans, map[string]any{
			"name":       o.Value,
			"multiplier": e.catalog.PlanMultiplier(domain.PlanName(o.Value)),
		})
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(planOptions...),
		NextMode: domain.ModeCoverage,
		Cards:    []domain.Card{{Type: "plan_comparison", Data: map[string]any{"plans": plans}}},
	}
}

func (e *Engine) driverMethodPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Now let's get the main driver's details. I can retrieve them securely from Singpass, or you can enter them manually.",
		Options:  replies(driverMethodOptions...),
		NextMode: domain.ModeDriverIdentity,
	}
}

func (e *Engine) consentPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "🔐 Do you consent to us retrieving your name, NRIC, date of birth, contact details, address and driving licence from Singpass MyInfo?",
		Options:  replies(consentOptions...),
		NextMode: domain.ModeDriverIdentity,
	}
}

func (e *Engine) nricPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	msg := "Please enter the main driver's NRIC or FIN (e.g. S1234567A)."
	switch {
	case s.IdentityLookupFailed:
		msg = "I couldn't find a record for that NRIC. Please check it and enter it again (e.g. S1234567A)."
	case s.DriverInfoMethod == domain.DriverInfoSingpass:
		msg = "🔐 Retrieving your details from Singpass..."
	}
	return domain.Prompt{
		Message:  msg,
		NextMode: domain.ModeDriverIdentity,
	}
}

func (e *Engine) driverConfirmPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	msg := "I found your details. Please confirm they're correct:"
	if s.DriverInfoMethod == domain.DriverInfoSingpass {
		msg = "🔐 Successfully retrieved your details from Singpass! Please confirm they're correct:"
	}
	data := map[string]any{
		"name":    s.DriverName,
		"nric":    MaskNRIC(s.DriverNRIC),
		"dob":     s.DriverDOB,
		"phone":   s.DriverPhone,
		"email":   s.DriverEmail,
		"address": truncate(s.DriverAddress, 30),
		"source":  string(s.DriverInfoMethod),
	}
	if s.LicenseClass != "" {
		data["license"] = "Class " + s.LicenseClass
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(confirmDriverOptions...),
		NextMode: domain.ModeDriverIdentity,
		Cards:    []domain.Card{{Type: "driver_details", Data: data}},
	}
}

func (e *Engine) claimsPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Have you made any insurance claims in the last 3 years?",
		Options:  replies(claimsOptions...),
		NextMode: domain.ModeDriverEligibility,
	}
}

func (e *Engine) additionalDriversPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Will anyone else be driving this vehicle?",
		Options:  replies(additionalDriverOptions...),
		NextMode: domain.ModeDriverEligibility,
	}
}

func (e *Engine) dataSharingPrompt(_ *domain.State, cmd domain.Command) domain.Prompt {
	msg := fmt.Sprintf("🚗 Our Smart Driver programme can save you %g%% on your premium. To start, are you happy to share driving data such as speed, braking and mileage through our app?",
		e.catalog.Pricing.TelematicsPercent)
	if cmd == domain.CommandChangeTelematics {
		msg = "Let's revisit Smart Driver. Are you happy to share your driving data through our app?"
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(dataSharingOptions...),
		NextMode: domain.ModeTelematics,
	}
}

func (e *Engine) safetyAlertsPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "Would you also like real-time safety alerts while you drive?",
		Options:  replies(safetyAlertOptions...),
		NextMode: domain.ModeTelematics,
	}
}

func (e *Engine) telematicsPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  fmt.Sprintf("Great! Shall I enroll you in Smart Driver for %g%% off your premium?", e.catalog.Pricing.TelematicsPercent),
		Options:  replies(e.telematicsOptions()...),
		NextMode: domain.ModeTelematics,
	}
}

func (e *Engine) modifyPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	options := []opt{changeCoverageOption, changePlanOption, changeTelematicsOption, keepQuoteOption}
	if s.VehicleType == domain.VehicleMotorcycle {
		options = []opt{changeCoverageOption, changeTelematicsOption, keepQuoteOption}
	}
	return domain.Prompt{
		Message:  "What would you like to change?",
		Options:  replies(options...),
		NextMode: domain.ModePricing,
	}
}

// customizePrompt reprices with the current add-on selection so the stored
// quote never lags behind a toggle.
func (e *Engine) customizePrompt(s *domain.State, _ domain.Command) domain.Prompt {
	b := e.Calculate(*s)
	writePricing(s, b)

	addons := make([]map[string]any, 0, len(e.catalog.Addons()))
	options := make([]opt, 0, len(e.catalog.Addons())+2)
	for _, a := range e.catalog.Addons() {
		selected := addonSelected(*s, a.ID)
		addons = append(addons, map[string]any{
			"id":          a.ID,
			"name":        a.Name,
			"description": a.Description,
			"price":       a.Price,
			"selected":    selected,
		})
		label := fmt.Sprintf("%s (+%s)", a.Name, money(a.Price))
		if selected {
			label = "✓ " + label
		}
		options = append(options, opt{Label: label, Value: toggleValue(a.ID)})
	}
	options = append(options, applyOption, viewQuoteOption)

	return domain.Prompt{
		Message:  "🛠️ Customize your coverage with these optional add-ons. Tap to select or deselect, then apply.",
		Options:  replies(options...),
		NextMode: domain.ModeCustomize,
		Cards: []domain.Card{{Type: "addons", Data: map[string]any{
			"addons":          addons,
			"projected_total": b.FinalPremium,
			"currency":        e.catalog.Currency(),
		}}},
	}
}

func (e *Engine) riskPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	r := e.AssessRisk(*s)
	s.RiskAssessed = true
	s.NCDPercent = ptr(r.NCDPercent)
	s.RiskLevel = r.Level

	data := map[string]any{
		"ncd_percent":    r.NCDPercent,
		"risk_level":     string(r.Level),
		"claims_history": optionLabel(claimsOptions, string(s.ClaimsHistory)),
		"telematics":     s.TelematicsConsent == domain.Yes,
	}
	if s.GreenVehicleEligible() {
		data["green_vehicle"] = true
	}
	return domain.Prompt{
		Message:  "📊 I've assessed your risk profile. Here's a summary:",
		Options:  replies(viewQuoteOption),
		NextMode: domain.ModeRiskAssessment,
		Cards:    []domain.Card{{Type: "risk_assessment", Data: data}},
	}
}

func (e *Engine) quotePrompt(s *domain.State, cmd domain.Command) domain.Prompt {
	b := e.Calculate(*s)
	writePricing(s, b)

	msg := "🎉 Great news! Based on your profile, here's your personalized quote:"
	if cmd == domain.CommandApplyAddons {
		msg = "✅ Add-ons applied! Here's your updated quote:"
	}
	return domain.Prompt{
		Message:  msg,
		Options:  replies(proceedOption, customizeOption, modifyOption),
		NextMode: domain.ModePricing,
		Cards:    []domain.Card{e.quoteCard(*s, b)},
	}
}

func (e *Engine) quoteDisplayPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	b := e.Calculate(*s)
	writePricing(s, b)
	return domain.Prompt{
		Message:  "Here's your current quote:",
		Options:  replies(proceedOption, customizeOption, modifyOption),
		NextMode: domain.ModePricing,
		Cards:    []domain.Card{e.quoteCard(*s, b)},
	}
}

func (e *Engine) quoteCard(s domain.State, b domain.Breakdown) domain.Card {
	return domain.Card{Type: "quote", Data: map[string]any{
		"vehicle":                fmt.Sprintf("%s %s", s.VehicleMake, s.VehicleModel),
		"coverage_type":          s.CoverageType.Label(),
		"plan_name":              string(s.PlanName),
		"currency":               e.catalog.Currency(),
		"base_premium":           b.BasePremium,
		"gross_premium":          b.GrossPremium,
		"ncd_percent":            b.NCDPercent,
		"ncd_discount":           b.NCDDiscount,
		"telematics_discount":    b.TelematicsDiscount,
		"green_vehicle_discount": b.GreenVehicleDiscount,
		"addons_total":           b.AddonsTotal,
		"final_premium":          b.FinalPremium,
		"breakdown":              b.Items,
	}}
}

func (e *Engine) paymentPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	b := e.Calculate(*s)
	writePricing(s, b)
	return domain.Prompt{
		Message:  fmt.Sprintf("💳 Almost there! Your annual premium is %s. Choose how you'd like to pay:", money(b.FinalPremium)),
		Options:  replies(openPaymentOption),
		NextMode: domain.ModePayment,
		Cards: []domain.Card{{Type: "payment_gateway", Data: map[string]any{
			"amount":   b.FinalPremium,
			"currency": e.catalog.Currency(),
			"methods":  e.catalog.PaymentMethods(),
		}}},
	}
}

func (e *Engine) policyPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	s.DocumentsReady = true
	data := map[string]any{
		"policy_number":     s.PolicyNumber,
		"payment_reference": s.PaymentReference,
		"effective_date":    s.PolicyStartDate,
		"expiry_date":       s.PolicyEndDate,
		"vehicle":           fmt.Sprintf("%s %s", s.VehicleMake, s.VehicleModel),
		"coverage_type":     s.CoverageType.Label(),
		"plan_name":         string(s.PlanName),
	}
	if s.FinalPremium != nil {
		data["premium"] = *s.FinalPremium
	}
	return domain.Prompt{
		Message:  fmt.Sprintf("🎉 Payment successful! Your policy %s is now active.", s.PolicyNumber),
		Options:  replies(downloadPDFOption, newQuoteOption),
		NextMode: domain.ModeDocument,
		Cards:    []domain.Card{{Type: "policy_document", Data: data}},
	}
}

func (e *Engine) documentsReadyPrompt(s *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  fmt.Sprintf("Your policy documents for %s are ready to download. Is there anything else I can help with?", s.PolicyNumber),
		Options:  replies(downloadPDFOption, newQuoteOption),
		NextMode: domain.ModeDocument,
	}
}

func (e *Engine) fallbackPrompt(_ *domain.State, _ domain.Command) domain.Prompt {
	return domain.Prompt{
		Message:  "I'm here to help! Would you like to start a new quote?",
		Options:  replies(opt{Label: "Start New Quote", Value: "start"}, helpOption),
		NextMode: domain.ModeOrchestrator,
		Rule:     "fallback",
	}
}

// MaskNRIC keeps the first five characters of an identity number.
func MaskNRIC(nric string) string {
	if len(nric) <= 5 {
		return nric
	}
	return nric[:5] + strings.Repeat("*", len(nric)-5)
}

func stringReplies(values []string) []domain.QuickReply {
	out := make([]domain.QuickReply, 0, len(values))
	for _, v := range values {
		out = append(out, domain.QuickReply{Label: v, Value: v})
	}
	return out
}

func optionLabel(options []catalog.Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// money formats an amount as $1,234.56.
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}
