package engine

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
)

var (
	vinPattern  = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	nricPattern = regexp.MustCompile(`^[STFGM]\d{7}[A-Z]$`)
)

// ValidVIN reports whether s is a well-formed 17-character VIN.
func ValidVIN(s string) bool {
	return vinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidNRIC reports whether s is a well-formed NRIC/FIN.
func ValidNRIC(s string) bool {
	return nricPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

type input struct {
	raw    string
	folded string
}

// guard recognizes one kind of input. It reports false without touching the
// state when the input is not for it.
type guard struct {
	name  string
	apply func(s *domain.State, in input) (domain.Command, bool)
}

// Normalize maps one user input onto the state. Guards are tried in order and
// the first that recognizes the input wins. Unrecognized input leaves the
// state unchanged and reports false. The returned state never aliases state.
func (e *Engine) Normalize(state domain.State, raw string) (domain.State, domain.Command, bool) {
	in := input{raw: strings.TrimSpace(raw), folded: catalog.Fold(raw)}
	work := state.Clone()
	if in.folded == "" {
		return work, domain.CommandNone, false
	}
	for _, g := range e.guards {
		if cmd, ok := g.apply(&work, in); ok {
			e.logger.Debug("input recognized",
				zap.String("guard", g.name),
				zap.String("command", string(cmd)),
			)
			return work, cmd, true
		}
	}
	return work, domain.CommandNone, false
}

// ApplyCommand applies the state effect of a one-shot command.
func (e *Engine) ApplyCommand(state domain.State, cmd domain.Command) domain.State {
	s := state.Clone()
	switch cmd {
	case domain.CommandNewQuote:
		return domain.State{}
	case domain.CommandChangeCoverage:
		s.CoverageType = ""
		s.PlanName = ""
		s.ClearRisk()
		s.ClearPricing()
		s.ClearAddons()
	case domain.CommandChangePlan:
		s.PlanName = ""
		s.ClearRisk()
		s.ClearPricing()
		s.ClearAddons()
	case domain.CommandChangeTelematics:
		s.ClearTelematics()
		s.ClearRisk()
		s.ClearPricing()
		s.ClearAddons()
	case domain.CommandKeepQuote:
		s.RiskAssessed = true
		s.ClearPricing()
	case domain.CommandApplyAddons:
		s.ClearPricing()
	}
	return s
}

func (e *Engine) buildGuards() []guard {
	return []guard{
		{"new_quote", guardNewQuote},
		{"vehicle_type", guardVehicleType},
		{"has_vin", guardHasVIN},
		{"vin_number", guardVINNumber},
		{"vin_confirm", guardVINConfirm},
		{"make", e.guardMake},
		{"model", e.guardModel},
		{"capacity", e.guardCapacity},
		{"usage", e.guardUsage},
		{"driving_environment", e.guardEnvironment},
		{"motorcycle_type", guardMotorcycleType},
		{"motorcycle_registration", guardRegistration},
		{"vehicle_confirm", guardVehicleConfirm},
		{"coverage", guardCoverage},
		{"plan", guardPlan},
		{"driver_method", guardDriverMethod},
		{"singpass_consent", guardConsent},
		{"nric", guardNRIC},
		{"driver_confirm", guardDriverConfirm},
		{"claims", guardClaims},
		{"additional_drivers", guardAdditionalDrivers},
		{"telematics", guardTelematics},
		{"quote_actions", e.guardQuoteActions},
		{"passive", guardPassive},
	}
}

func guardNewQuote(_ *domain.State, in input) (domain.Command, bool) {
	if newQuoteOption.Matches(in.folded) || in.folded == "start new quote" {
		return domain.CommandNewQuote, true
	}
	return domain.CommandNone, false
}

func guardVehicleType(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(vehicleTypeOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.VehicleType = domain.VehicleType(o.Value)
	return domain.CommandNone, true
}

func guardHasVIN(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleCar || s.VehicleMake != "" || s.HasVIN != nil || s.VINData != nil {
		return domain.CommandNone, false
	}
	o, ok := matchOption(hasVINOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	has := o.Value == "has_vin_yes"
	s.HasVIN = &has
	return domain.CommandNone, true
}

func guardVINNumber(s *domain.State, in input) (domain.Command, bool) {
	if s.HasVIN == nil || !*s.HasVIN || s.VINNumber != "" || s.VINData != nil {
		return domain.CommandNone, false
	}
	if vinSkipOption.Matches(in.folded) {
		no := false
		s.HasVIN = &no
		return domain.CommandNone, true
	}
	vin := strings.ToUpper(strings.ReplaceAll(in.raw, " ", ""))
	if !vinPattern.MatchString(vin) {
		return domain.CommandNone, false
	}
	s.VINNumber = vin
	s.VINLookupFailed = false
	return domain.CommandNone, true
}

func guardVINConfirm(s *domain.State, in input) (domain.Command, bool) {
	if s.VINData == nil || s.VehicleMake != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(vinConfirmOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	if o.Value == "vin_confirm" {
		s.VehicleMake = s.VINData.Make
		s.VehicleModel = s.VINData.Model
		s.VehicleYear = s.VINData.Year
		s.EngineCapacity = s.VINData.Capacity
		return domain.CommandNone, true
	}
	no := false
	s.HasVIN = &no
	s.VINNumber = ""
	s.VINData = nil
	return domain.CommandNone, true
}

func (e *Engine) guardMake(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType == "" || s.VehicleMake != "" || s.VINData != nil {
		return domain.CommandNone, false
	}
	brand, ok := e.catalog.MatchMake(s.VehicleType, in.raw)
	if !ok {
		return domain.CommandNone, false
	}
	s.VehicleMake = brand
	return domain.CommandNone, true
}

func (e *Engine) guardModel(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleMake == "" || s.VehicleModel != "" {
		return domain.CommandNone, false
	}
	if model, ok := e.catalog.MatchModel(s.VehicleMake, in.raw); ok {
		s.VehicleModel = model
		return domain.CommandNone, true
	}
	// Any other free text is taken as the model, unless it names a make or
	// is one of the flow's own control words.
	if e.catalog.IsKnownMake(in.raw) {
		return domain.CommandNone, false
	}
	if _, ok := matchOption(passiveOptions, in.folded); ok {
		return domain.CommandNone, false
	}
	s.VehicleModel = in.raw
	return domain.CommandNone, true
}

func (e *Engine) guardCapacity(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleModel == "" || s.EngineCapacity != "" {
		return domain.CommandNone, false
	}
	band, ok := e.catalog.MatchCapacity(s.VehicleType, in.raw)
	if !ok {
		return domain.CommandNone, false
	}
	s.EngineCapacity = band
	return domain.CommandNone, true
}

// guardUsage answers the first unanswered usage question only.
func (e *Engine) guardUsage(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleCar || s.EngineCapacity == "" {
		return domain.CommandNone, false
	}
	q, field, ok := e.pendingUsageQuestion(s)
	if !ok {
		return domain.CommandNone, false
	}
	o, ok := matchOption(q.Options, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	*field = o.Value
	return domain.CommandNone, true
}

// guardEnvironment accumulates the multi-select set. A batch may carry
// several comma separated choices and may end with done.
func (e *Engine) guardEnvironment(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleCar || s.DrivingTime == "" || s.EnvironmentFinalized() {
		return domain.CommandNone, false
	}

	matched, done := false, false
	for _, part := range strings.Split(in.raw, ",") {
		folded := catalog.Fold(part)
		if envDoneOption.Matches(folded) || strings.Contains(folded, "done selecting") {
			matched, done = true, true
			continue
		}
		o, ok := matchOption(e.catalog.Environments(), folded)
		if !ok {
			continue
		}
		matched = true
		s.EnvironmentSelections = addEnvironment(s.EnvironmentSelections, environmentOf(o.Value))
	}
	if !matched {
		return domain.CommandNone, false
	}

	if done {
		selected := s.EnvironmentSelections
		if len(selected) == 0 {
			for _, o := range e.catalog.Environments() {
				selected = append(selected, environmentOf(o.Value))
			}
		}
		s.DrivingEnvironment = append([]domain.DrivingEnvironment(nil), selected...)
	}
	return domain.CommandNone, true
}

func guardMotorcycleType(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleMotorcycle || s.EngineCapacity == "" || s.MotorcycleType != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(motorcycleTypeOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.MotorcycleType = domain.MotorcycleType(strings.TrimPrefix(o.Value, "mc_type_"))
	return domain.CommandNone, true
}

func guardRegistration(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleMotorcycle || s.MotorcycleType == "" || s.MotorcycleRegistration != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(registrationOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.MotorcycleRegistration = domain.MotorcycleRegistration(strings.TrimPrefix(o.Value, "mc_reg_"))
	return domain.CommandNone, true
}

func guardVehicleConfirm(s *domain.State, in input) (domain.Command, bool) {
	if !s.VehicleDetailsComplete() || s.VehicleConfirmed {
		return domain.CommandNone, false
	}
	o, ok := matchOption(confirmVehicleOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	if o.Value == "confirm_vehicle" {
		s.VehicleConfirmed = true
	} else {
		s.ClearVehicle()
	}
	return domain.CommandNone, true
}

func guardCoverage(s *domain.State, in input) (domain.Command, bool) {
	if !s.VehicleConfirmed || s.CoverageType != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(coverageOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.CoverageType = domain.CoverageType(o.Value)
	return domain.CommandNone, true
}

func guardPlan(s *domain.State, in input) (domain.Command, bool) {
	if s.VehicleType != domain.VehicleCar || s.CoverageType == "" || s.PlanName != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(planOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.PlanName = domain.PlanName(o.Value)
	return domain.CommandNone, true
}

func guardDriverMethod(s *domain.State, in input) (domain.Command, bool) {
	if s.PlanName == "" || s.DriverInfoMethod != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(driverMethodOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.DriverInfoMethod = domain.DriverInfoMethod(o.Value)
	return domain.CommandNone, true
}

func guardConsent(s *domain.State, in input) (domain.Command, bool) {
	if s.DriverInfoMethod != domain.DriverInfoSingpass || s.SingpassConsent != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(consentOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.SingpassConsent = domain.SingpassConsent(o.Value)
	if s.SingpassConsent == domain.ConsentNo {
		s.DriverInfoMethod = domain.DriverInfoManual
	}
	return domain.CommandNone, true
}

func guardNRIC(s *domain.State, in input) (domain.Command, bool) {
	if s.DriverInfoMethod != domain.DriverInfoManual || s.DriverName != "" {
		return domain.CommandNone, false
	}
	nric := strings.ToUpper(in.raw)
	if !nricPattern.MatchString(nric) {
		return domain.CommandNone, false
	}
	s.DriverNRIC = nric
	s.IdentityLookupFailed = false
	return domain.CommandNone, true
}

func guardDriverConfirm(s *domain.State, in input) (domain.Command, bool) {
	if s.DriverName == "" || s.DriverConfirmed {
		return domain.CommandNone, false
	}
	o, ok := matchOption(confirmDriverOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	if o.Value == "confirm_driver" {
		s.DriverConfirmed = true
	} else {
		s.ClearDriver()
	}
	return domain.CommandNone, true
}

func guardClaims(s *domain.State, in input) (domain.Command, bool) {
	if !s.DriverConfirmed || s.ClaimsHistory != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(claimsOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	s.ClaimsHistory = domain.ClaimsHistory(o.Value)
	return domain.CommandNone, true
}

func guardAdditionalDrivers(s *domain.State, in input) (domain.Command, bool) {
	if s.ClaimsHistory == "" || s.AdditionalDrivers != "" {
		return domain.CommandNone, false
	}
	o, ok := matchOption(additionalDriverOptions, in.folded)
	if !ok {
		return domain.CommandNone, false
	}
	if o.Value == "none" {
		s.AdditionalDrivers = domain.AdditionalDriversNone
	} else {
		s.AdditionalDrivers = domain.AdditionalDriversAdd
	}
	return domain.CommandNone, true
}

// guardTelematics walks the three telematics stages. Declining data sharing
// declines the programme outright.
func guardTelematics(s *domain.State, in input) (domain.Command, bool) {
	if s.AdditionalDrivers == "" || s.TelematicsConsent != "" {
		return domain.CommandNone, false
	}
	switch {
	case s.TelematicsDataSharing == "":
		o, ok := matchOption(dataSharingOptions, in.folded)
		if !ok {
			return domain.CommandNone, false
		}
		if o.Value == "data_sharing_yes" {
			s.TelematicsDataSharing = domain.Yes
		} else {
			s.TelematicsDataSharing = domain.No
			s.TelematicsConsent = domain.No
		}
	case s.TelematicsDataSharing == domain.Yes && s.TelematicsSafetyAlerts == "":
		o, ok := matchOption(safetyAlertOptions, in.folded)
		if !ok {
			return domain.CommandNone, false
		}
		s.TelematicsSafetyAlerts = domain.No
		if o.Value == "safety_alerts_yes" {
			s.TelematicsSafetyAlerts = domain.Yes
		}
	default:
		switch {
		case in.folded == string(domain.Yes) || strings.HasPrefix(in.folded, "yes") || in.folded == "enroll":
			s.TelematicsConsent = domain.Yes
		case in.folded == string(domain.No) || in.folded == "no thanks":
			s.TelematicsConsent = domain.No
		default:
			return domain.CommandNone, false
		}
	}
	return domain.CommandNone, true
}

func (e *Engine) guardQuoteActions(s *domain.State, in input) (domain.Command, bool) {
	if !s.HasQuote() || s.PaymentInitiated {
		return domain.CommandNone, false
	}
	commands := []opt{customizeOption, modifyOption, applyOption, changeCoverageOption, changePlanOption, changeTelematicsOption, keepQuoteOption}
	if proceedOption.Matches(in.folded) {
		s.PaymentInitiated = true
		return domain.CommandNone, true
	}
	if o, ok := matchOption(commands, in.folded); ok {
		return domain.Command(o.Value), true
	}
	for _, a := range e.catalog.Addons() {
		if in.folded == toggleValue(a.ID) || in.folded == catalog.Fold(a.Name) {
			setAddon(s, a.ID, !addonSelected(*s, a.ID))
			return domain.CommandCustomize, true
		}
	}
	return domain.CommandNone, false
}

// guardPassive recognizes navigation inputs that change nothing.
func guardPassive(_ *domain.State, in input) (domain.Command, bool) {
	_, ok := matchOption(passiveOptions, in.folded)
	return domain.CommandNone, ok
}

func (e *Engine) pendingUsageQuestion(s *domain.State) (catalog.UsageQuestion, *string, bool) {
	for _, q := range e.catalog.UsageQuestions() {
		field := usageField(s, q.Field)
		if field == nil {
			continue
		}
		if *field == "" {
			return q, field, true
		}
	}
	return catalog.UsageQuestion{}, nil, false
}

func usageField(s *domain.State, name string) *string {
	switch name {
	case "vehicle_purpose":
		return &s.VehiclePurpose
	case "usage_frequency":
		return &s.UsageFrequency
	case "monthly_distance":
		return &s.MonthlyDistance
	case "driving_time":
		return &s.DrivingTime
	}
	return nil
}

func environmentOf(value string) domain.DrivingEnvironment {
	return domain.DrivingEnvironment(strings.TrimPrefix(value, "env_"))
}

func addEnvironment(set []domain.DrivingEnvironment, env domain.DrivingEnvironment) []domain.DrivingEnvironment {
	for _, e := range set {
		if e == env {
			return set
		}
	}
	return append(set, env)
}

func addonSelected(s domain.State, id string) bool {
	switch id {
	case "engine_protection":
		return s.AddonEngineProtection
	case "total_loss":
		return s.AddonTotalLoss
	case "roadside":
		return s.AddonRoadside
	}
	return false
}

func setAddon(s *domain.State, id string, on bool) {
	switch id {
	case "engine_protection":
		s.AddonEngineProtection = on
	case "total_loss":
		s.AddonTotalLoss = on
	case "roadside":
		s.AddonRoadside = on
	}
}
