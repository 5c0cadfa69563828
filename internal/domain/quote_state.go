package domain

// ============================================================
// Conversation state for the motor quote-and-bind flow
// ============================================================

// VehicleType is the insured vehicle category.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
)

// CoverageType is the policy coverage tier.
type CoverageType string

const (
	CoverageComprehensive CoverageType = "comprehensive"
	CoverageThirdParty    CoverageType = "third_party"
)

// Label returns the display name of the coverage tier.
func (c CoverageType) Label() string {
	switch c {
	case CoverageComprehensive:
		return "Comprehensive"
	case CoverageThirdParty:
		return "Third Party"
	}
	return "N/A"
}

// PlanName is the product plan inside a coverage tier.
type PlanName string

const (
	PlanDrivePremium PlanName = "Drive Premium"
	PlanDriveClassic PlanName = "Drive Classic"
)

// MotorcycleType is the powertrain of a motorcycle.
type MotorcycleType string

const (
	MotorcycleEV     MotorcycleType = "ev"
	MotorcycleHybrid MotorcycleType = "hybrid"
	MotorcyclePetrol MotorcycleType = "petrol"
)

// MotorcycleRegistration is how the motorcycle is registered with the vehicle authority.
type MotorcycleRegistration string

const (
	RegistrationEV      MotorcycleRegistration = "ev"
	RegistrationPetrol  MotorcycleRegistration = "petrol"
	RegistrationPending MotorcycleRegistration = "pending"
)

// DrivingEnvironment is one member of the multi-select environment set.
type DrivingEnvironment string

const (
	EnvironmentUrbanCity DrivingEnvironment = "urban_city"
	EnvironmentSuburban  DrivingEnvironment = "suburban"
	EnvironmentHighway   DrivingEnvironment = "highway"
	EnvironmentRural     DrivingEnvironment = "rural"
)

// DriverInfoMethod is how driver particulars are collected.
type DriverInfoMethod string

const (
	DriverInfoSingpass DriverInfoMethod = "singpass"
	DriverInfoManual   DriverInfoMethod = "manual"
)

// SingpassConsent records the answer to the data-retrieval consent prompt.
type SingpassConsent string

const (
	ConsentYes SingpassConsent = "consent_yes"
	ConsentNo  SingpassConsent = "consent_no"
)

// ClaimsHistory is the self-declared claims record for the last 3 years.
type ClaimsHistory string

const (
	ClaimsNone     ClaimsHistory = "no_claims"
	ClaimsOneMinor ClaimsHistory = "1_minor"
	ClaimsMultiple ClaimsHistory = "multiple"
)

// AdditionalDrivers records whether named drivers are added.
type AdditionalDrivers string

const (
	AdditionalDriversNone AdditionalDrivers = "none"
	AdditionalDriversAdd  AdditionalDrivers = "add"
)

// YesNo is a closed yes/no answer. The empty value means unanswered.
type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

// RiskLevel is the derived risk rating.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// VINData is the decoded payload of a vehicle identification number.
type VINData struct {
	VIN            string  `json:"vin"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Year           int     `json:"year,omitempty"`
	DisplacementCC float64 `json:"displacement_cc,omitempty"`
	Capacity       string  `json:"capacity,omitempty"`
	FuelType       string  `json:"fuel_type,omitempty"`
	BodyClass      string  `json:"body_class,omitempty"`
}

// State is the sparse conversation aggregate persisted per session.
// Every field is optional: the zero value (or a nil pointer) means unset.
// Pointer fields are never mutated through the pointer, so a shallow copy
// is enough to snapshot them.
type State struct {
	// Vehicle
	VehicleType            VehicleType            `json:"vehicle_type,omitempty"`
	HasVIN                 *bool                  `json:"has_vin,omitempty"`
	VINNumber              string                 `json:"vin_number,omitempty"`
	VINData                *VINData               `json:"vin_data,omitempty"`
	VINLookupFailed        bool                   `json:"vin_lookup_failed,omitempty"`
	VehicleMake            string                 `json:"vehicle_make,omitempty"`
	VehicleModel           string                 `json:"vehicle_model,omitempty"`
	VehicleYear            int                    `json:"vehicle_year,omitempty"`
	EngineCapacity         string                 `json:"engine_capacity,omitempty"`
	MotorcycleType         MotorcycleType         `json:"motorcycle_type,omitempty"`
	MotorcycleRegistration MotorcycleRegistration `json:"motorcycle_registration,omitempty"`
	VehicleConfirmed       bool                   `json:"vehicle_confirmed,omitempty"`

	// Usage (car only)
	VehiclePurpose        string               `json:"vehicle_purpose,omitempty"`
	UsageFrequency        string               `json:"usage_frequency,omitempty"`
	MonthlyDistance       string               `json:"monthly_distance,omitempty"`
	DrivingTime           string               `json:"driving_time,omitempty"`
	EnvironmentSelections []DrivingEnvironment `json:"environment_selections,omitempty"`
	DrivingEnvironment    []DrivingEnvironment `json:"driving_environment,omitempty"`

	// Coverage
	CoverageType CoverageType `json:"coverage_type,omitempty"`
	PlanName     PlanName     `json:"plan_name,omitempty"`

	// Driver
	DriverInfoMethod     DriverInfoMethod `json:"driver_info_method,omitempty"`
	SingpassConsent      SingpassConsent  `json:"singpass_consent,omitempty"`
	DriverConfirmed      bool             `json:"driver_confirmed,omitempty"`
	DriverName           string           `json:"driver_name,omitempty"`
	DriverNRIC           string           `json:"driver_nric,omitempty"`
	DriverDOB            string           `json:"driver_dob,omitempty"`
	DriverPhone          string           `json:"driver_phone,omitempty"`
	DriverEmail          string           `json:"driver_email,omitempty"`
	DriverAddress        string           `json:"driver_address,omitempty"`
	LicenseClass         string           `json:"license_class,omitempty"`
	IdentityLookupFailed bool             `json:"identity_lookup_failed,omitempty"`

	// Risk
	ClaimsHistory          ClaimsHistory     `json:"claims_history,omitempty"`
	AdditionalDrivers      AdditionalDrivers `json:"additional_drivers,omitempty"`
	TelematicsDataSharing  YesNo             `json:"telematics_data_sharing,omitempty"`
	TelematicsSafetyAlerts YesNo             `json:"telematics_safety_alerts,omitempty"`
	TelematicsConsent      YesNo             `json:"telematics_consent,omitempty"`
	RiskAssessed           bool              `json:"risk_assessed,omitempty"`
	NCDPercent             *int              `json:"ncd_percent,omitempty"`
	RiskLevel              RiskLevel         `json:"risk_level,omitempty"`

	// Pricing
	BasePremium           *float64 `json:"base_premium,omitempty"`
	GrossPremium          *float64 `json:"gross_premium,omitempty"`
	NCDDiscount           *float64 `json:"ncd_discount,omitempty"`
	TelematicsDiscount    *float64 `json:"telematics_discount,omitempty"`
	GreenVehicleDiscount  *float64 `json:"green_vehicle_discount,omitempty"`
	AddonsTotal           *float64 `json:"addons_total,omitempty"`
	FinalPremium          *float64 `json:"final_premium,omitempty"`
	AddonEngineProtection bool     `json:"addon_engine_protection,omitempty"`
	AddonTotalLoss        bool     `json:"addon_total_loss,omitempty"`
	AddonRoadside         bool     `json:"addon_roadside,omitempty"`

	// Completion
	PaymentInitiated bool   `json:"payment_initiated,omitempty"`
	PaymentCompleted bool   `json:"payment_completed,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	PolicyNumber     string `json:"policy_number,omitempty"`
	PolicyStartDate  string `json:"policy_start_date,omitempty"`
	PolicyEndDate    string `json:"policy_end_date,omitempty"`
	DocumentsReady   bool   `json:"documents_ready,omitempty"`
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	c := s
	if s.EnvironmentSelections != nil {
		c.EnvironmentSelections = append([]DrivingEnvironment(nil), s.EnvironmentSelections...)
	}
	if s.DrivingEnvironment != nil {
		c.DrivingEnvironment = append([]DrivingEnvironment(nil), s.DrivingEnvironment...)
	}
	return c
}

// EnvironmentFinalized reports whether the driving environment multi-select is closed.
func (s State) EnvironmentFinalized() bool {
	return len(s.DrivingEnvironment) > 0
}

// VehicleDetailsComplete reports whether every vehicle question for the
// category has been answered, so the summary can be confirmed.
func (s State) VehicleDetailsComplete() bool {
	if s.EngineCapacity == "" {
		return false
	}
	switch s.VehicleType {
	case VehicleCar:
		return s.VehiclePurpose != "" && s.UsageFrequency != "" &&
			s.MonthlyDistance != "" && s.DrivingTime != "" && s.EnvironmentFinalized()
	case VehicleMotorcycle:
		return s.MotorcycleType != "" && s.MotorcycleRegistration != ""
	}
	return false
}

// PricingInputsComplete reports whether all inputs the final premium depends on are set.
func (s State) PricingInputsComplete() bool {
	return s.CoverageType != "" && s.PlanName != "" && s.ClaimsHistory != "" && s.TelematicsConsent != ""
}

// HasQuote reports whether a final premium is present.
func (s State) HasQuote() bool {
	return s.FinalPremium != nil
}

// GreenVehicleEligible is true only for an EV motorcycle registered as EV.
func (s State) GreenVehicleEligible() bool {
	return s.VehicleType == VehicleMotorcycle &&
		s.MotorcycleType == MotorcycleEV &&
		s.MotorcycleRegistration == RegistrationEV
}

// ClearPricing nulls every computed premium figure.
func (s *State) ClearPricing() {
	s.BasePremium = nil
	s.GrossPremium = nil
	s.NCDDiscount = nil
	s.TelematicsDiscount = nil
	s.GreenVehicleDiscount = nil
	s.AddonsTotal = nil
	s.FinalPremium = nil
}

// ClearRisk nulls the derived risk snapshot.
func (s *State) ClearRisk() {
	s.RiskAssessed = false
	s.NCDPercent = nil
	s.RiskLevel = ""
}

// ClearAddons deselects every add-on.
func (s *State) ClearAddons() {
	s.AddonEngineProtection = false
	s.AddonTotalLoss = false
	s.AddonRoadside = false
}

// ClearVehicle resets every vehicle and usage answer except the category.
func (s *State) ClearVehicle() {
	s.HasVIN = nil
	s.VINNumber = ""
	s.VINData = nil
	s.VINLookupFailed = false
	s.VehicleMake = ""
	s.VehicleModel = ""
	s.VehicleYear = 0
	s.EngineCapacity = ""
	s.MotorcycleType = ""
	s.MotorcycleRegistration = ""
	s.VehicleConfirmed = false
	s.VehiclePurpose = ""
	s.UsageFrequency = ""
	s.MonthlyDistance = ""
	s.DrivingTime = ""
	s.EnvironmentSelections = nil
	s.DrivingEnvironment = nil
}

// ClearDriver resets the driver identity answers and retrieved particulars.
func (s *State) ClearDriver() {
	s.DriverInfoMethod = ""
	s.SingpassConsent = ""
	s.DriverConfirmed = false
	s.DriverName = ""
	s.DriverNRIC = ""
	s.DriverDOB = ""
	s.DriverPhone = ""
	s.DriverEmail = ""
	s.DriverAddress = ""
	s.LicenseClass = ""
	s.IdentityLookupFailed = false
}

// ClearTelematics resets both consent stages and the final opt-in.
func (s *State) ClearTelematics() {
	s.TelematicsDataSharing = ""
	s.TelematicsSafetyAlerts = ""
	s.TelematicsConsent = ""
}
