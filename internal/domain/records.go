package domain

import "time"

// ============================================================
// Premium breakdown
// ============================================================

// LineItem is one displayed row of a premium breakdown.
type LineItem struct {
	Item   string  `json:"item"`
	Amount float64 `json:"amount"`
}

// Breakdown is the itemized result of a premium calculation.
// All money figures are rounded to 2 decimal places.
type Breakdown struct {
	BasePremium          float64    `json:"base_premium"`
	EngineLoading        float64    `json:"engine_loading"`
	PlanLoading          float64    `json:"plan_loading"`
	GrossPremium         float64    `json:"gross_premium"`
	NCDPercent           int        `json:"ncd_percent"`
	NCDDiscount          float64    `json:"ncd_discount"`
	TelematicsDiscount   float64    `json:"telematics_discount"`
	GreenVehicleDiscount float64    `json:"green_vehicle_discount"`
	AddonsTotal          float64    `json:"addons_total"`
	FinalPremium         float64    `json:"final_premium"`
	Items                []LineItem `json:"items"`
}

// ============================================================
// Point-in-time records
// ============================================================

// QuoteRecord is a snapshot of a computed quote. Never mutated after creation.
type QuoteRecord struct {
	ID                   string       `json:"id"`
	SessionID            string       `json:"session_id"`
	VehicleType          VehicleType  `json:"vehicle_type"`
	VehicleMake          string       `json:"vehicle_make"`
	VehicleModel         string       `json:"vehicle_model"`
	EngineCapacity       string       `json:"engine_capacity"`
	CoverageType         CoverageType `json:"coverage_type"`
	PlanName             PlanName     `json:"plan_name"`
	BasePremium          float64      `json:"base_premium"`
	GrossPremium         float64      `json:"gross_premium"`
	NCDDiscount          float64      `json:"ncd_discount"`
	TelematicsDiscount   float64      `json:"telematics_discount"`
	GreenVehicleDiscount float64      `json:"green_vehicle_discount"`
	AddonsTotal          float64      `json:"addons_total"`
	FinalPremium         float64      `json:"final_premium"`
	HolderFingerprint    string       `json:"holder_fingerprint,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
}

// QuoteResult is returned by POST /v1/generate-quote/{id}.
type QuoteResult struct {
	Quote     QuoteRecord `json:"quote"`
	Breakdown Breakdown   `json:"breakdown"`
	Currency  string      `json:"currency"`
}

// PaymentRecord is a snapshot of a completed charge.
type PaymentRecord struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	PaymentReference  string    `json:"payment_reference"`
	PolicyNumber      string    `json:"policy_number"`
	PaymentMethod     string    `json:"payment_method"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	HolderFingerprint string    `json:"holder_fingerprint,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentRequest is the body of POST /v1/payment/process.
type PaymentRequest struct {
	SessionID     string  `json:"session_id"`
	PaymentMethod string  `json:"payment_method"`
	Amount        float64 `json:"amount"`
}

// PaymentResult is returned by the payment endpoint.
type PaymentResult struct {
	Success          bool     `json:"success"`
	PaymentReference string   `json:"payment_reference"`
	PolicyNumber     string   `json:"policy_number"`
	Message          string   `json:"message"`
	Assistant        *Message `json:"assistant_message,omitempty"`
}

// ChargeResult is what a payment processor reports for one charge.
type ChargeResult struct {
	Reference string `json:"reference"`
	Success   bool   `json:"success"`
}

// PaymentMethod is one supported way to pay.
type PaymentMethod struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

// ============================================================
// External lookups
// ============================================================

// VehicleRecord is returned by the vehicle registry lookup.
type VehicleRecord struct {
	RegistrationNumber string           `json:"registration_number"`
	Make               string           `json:"make"`
	Model              string           `json:"model"`
	EngineCC           string           `json:"engine_cc"`
	Year               int              `json:"year"`
	RoadTaxValid       bool             `json:"road_tax_valid"`
	AccidentHistory    []AccidentRecord `json:"accident_history"`
}

// AccidentRecord is one registry accident entry.
type AccidentRecord struct {
	Date     string `json:"date"`
	Severity string `json:"severity"`
}

// IdentityRecord is returned by the identity provider.
type IdentityRecord struct {
	FullName       string         `json:"full_name"`
	NRIC           string         `json:"nric"`
	DOB            string         `json:"dob"`
	Gender         string         `json:"gender"`
	MaritalStatus  string         `json:"marital_status"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email"`
	Address        string         `json:"address"`
	DrivingLicense DrivingLicense `json:"driving_license"`
}

// DrivingLicense is part of an identity record.
type DrivingLicense struct {
	Class      string `json:"class"`
	IssueDate  string `json:"issue_date"`
	ExpiryDate string `json:"expiry_date"`
}

// ============================================================
// Policy documents
// ============================================================

// PolicyDocument is the renderer-neutral view of an issued policy.
type PolicyDocument struct {
	PolicyNumber      string         `json:"policy_number"`
	EffectiveDate     string         `json:"effective_date"`
	ExpiryDate        string         `json:"expiry_date"`
	PaymentReference  string         `json:"payment_reference"`
	Policyholder      PolicyHolder   `json:"policyholder"`
	Vehicle           PolicyVehicle  `json:"vehicle"`
	Coverage          PolicyCoverage `json:"coverage"`
	Exclusions        []string       `json:"exclusions"`
	VerificationToken string         `json:"verification_token,omitempty"`
}

// PolicyHolder is the insured driver.
type PolicyHolder struct {
	Name    string `json:"name"`
	NRIC    string `json:"nric"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// PolicyVehicle is the insured vehicle.
type PolicyVehicle struct {
	Type           string `json:"type"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	EngineCapacity string `json:"engine_capacity"`
}

// PolicyCoverage is what was bought.
type PolicyCoverage struct {
	Type                 string     `json:"type"`
	Plan                 string     `json:"plan"`
	Premium              float64    `json:"premium"`
	NCDPercent           int        `json:"ncd_percent"`
	NCDDiscount          float64    `json:"ncd_discount"`
	TelematicsDiscount   float64    `json:"telematics_discount"`
	GreenVehicleDiscount float64    `json:"green_vehicle_discount"`
	Addons               []LineItem `json:"addons,omitempty"`
}

// DocumentClaims are the verified contents of a document verification token.
type DocumentClaims struct {
	SessionID    string    `json:"session_id"`
	PolicyNumber string    `json:"policy_number"`
	Premium      float64   `json:"premium"`
	IssuedAt     time.Time `json:"issued_at"`
}
