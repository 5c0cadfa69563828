// Package catalog holds the immutable reference data of the quote flow:
// vehicle makes and models, engine capacity bands, premium rates, add-ons,
// usage vocabularies and payment methods.
//
// The catalog is loaded once at startup (embedded YAML, optionally replaced
// by a file) and injected read-only into the engine and services.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Option is one selectable answer of a closed vocabulary.
type Option struct {
	Label   string   `yaml:"label"`
	Value   string   `yaml:"value"`
	Aliases []string `yaml:"aliases"`
}

// Matches reports whether a folded input selects this option.
func (o Option) Matches(folded string) bool {
	if folded == "" {
		return false
	}
	if folded == Fold(o.Value) || folded == Fold(o.Label) {
		return true
	}
	for _, a := range o.Aliases {
		if folded == Fold(a) {
			return true
		}
	}
	return false
}

// QuickReply converts the option into a prompt button.
func (o Option) QuickReply() domain.QuickReply {
	return domain.QuickReply{Label: o.Label, Value: o.Value}
}

// CapacityBand is one engine capacity band. MaxCC of zero means unbounded.
type CapacityBand struct {
	Label string `yaml:"label"`
	MaxCC int    `yaml:"max_cc"`
}

// UsageQuestion is one single-valued car usage question, asked in order.
type UsageQuestion struct {
	Field   string   `yaml:"field"`
	Message string   `yaml:"message"`
	Options []Option `yaml:"options"`
}

// Addon is a flat-priced coverage enhancement.
type Addon struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
}

// SurchargeRule multiplies the base premium when every token appears in the band label.
type SurchargeRule struct {
	Tokens     []string `yaml:"tokens"`
	Multiplier float64  `yaml:"multiplier"`
}

// Pricing holds every rate used by the premium calculator.
type Pricing struct {
	BaseRates           map[domain.CoverageType]map[domain.VehicleType]float64 `yaml:"base_rates"`
	EngineSurcharges    []SurchargeRule                                        `yaml:"engine_surcharges"`
	PlanMultipliers     map[domain.PlanName]float64                            `yaml:"plan_multipliers"`
	NCDPercent          map[domain.ClaimsHistory]int                           `yaml:"ncd_percent"`
	TelematicsPercent   float64                                                `yaml:"telematics_discount_percent"`
	GreenVehiclePercent float64                                                `yaml:"green_vehicle_discount_percent"`
	Currency            string                                                 `yaml:"currency"`
}

// Catalog is the whole reference data set. Treat it as read-only.
type Catalog struct {
	MakesByType         map[domain.VehicleType][]string       `yaml:"makes"`
	ModelsByMake        map[string][]string                   `yaml:"models"`
	CapacitiesByType    map[domain.VehicleType][]CapacityBand `yaml:"capacities"`
	Pricing             Pricing                               `yaml:"pricing"`
	AddonList           []Addon                               `yaml:"addons"`
	Usage               []UsageQuestion                       `yaml:"usage_questions"`
	DrivingEnvironments []Option                              `yaml:"driving_environments"`
	Payments            []domain.PaymentMethod                `yaml:"payment_methods"`
	PolicyExclusions    []string                              `yaml:"exclusions"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

// Load reads the catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, vt := range []domain.VehicleType{domain.VehicleCar, domain.VehicleMotorcycle} {
		if len(c.MakesByType[vt]) == 0 {
			return fmt.Errorf("catalog: no makes for %s", vt)
		}
		if len(c.CapacitiesByType[vt]) == 0 {
			return fmt.Errorf("catalog: no capacity bands for %s", vt)
		}
		for _, ct := range []domain.CoverageType{domain.CoverageComprehensive, domain.CoverageThirdParty} {
			if rate := c.Pricing.BaseRates[ct][vt]; rate <= 0 {
				return fmt.Errorf("catalog: base rate for %s/%s must be positive", ct, vt)
			}
		}
	}
	for _, rule := range c.Pricing.EngineSurcharges {
		if rule.Multiplier < 1 {
			return fmt.Errorf("catalog: engine surcharge %v must not reduce the premium", rule.Tokens)
		}
	}
	for _, p := range []float64{c.Pricing.TelematicsPercent, c.Pricing.GreenVehiclePercent} {
		if p < 0 || p > 100 {
			return fmt.Errorf("catalog: discount percent %v out of range", p)
		}
	}
	total := c.Pricing.TelematicsPercent + c.Pricing.GreenVehiclePercent
	for claims, p := range c.Pricing.NCDPercent {
		if p < 0 || float64(p)+total > 100 {
			return fmt.Errorf("catalog: ncd percent for %s makes discounts exceed the gross premium", claims)
		}
	}
	for _, a := range c.AddonList {
		if a.Price < 0 {
			return fmt.Errorf("catalog: add-on %s has a negative price", a.ID)
		}
	}
	if len(c.Usage) == 0 || len(c.DrivingEnvironments) == 0 {
		return fmt.Errorf("catalog: usage questions and driving environments are required")
	}
	return nil
}

// Makes returns the makes offered for a vehicle type.
func (c *Catalog) Makes(vt domain.VehicleType) []string {
	return c.MakesByType[vt]
}

// MatchMake finds the canonical make name for a vehicle type, exact match only.
func (c *Catalog) MatchMake(vt domain.VehicleType, input string) (string, bool) {
	return matchExact(c.MakesByType[vt], input)
}

// IsKnownMake reports whether input names a make of any vehicle type.
func (c *Catalog) IsKnownMake(input string) bool {
	for _, makes := range c.MakesByType {
		if _, ok := matchExact(makes, input); ok {
			return true
		}
	}
	return false
}

// Models returns the known models of a make.
func (c *Catalog) Models(brand string) []string {
	return c.ModelsByMake[brand]
}

// MatchModel finds the canonical model name for a make, exact match only.
func (c *Catalog) MatchModel(brand, input string) (string, bool) {
	return matchExact(c.ModelsByMake[brand], input)
}

// Capacities returns the band labels for a vehicle type.
func (c *Catalog) Capacities(vt domain.VehicleType) []string {
	bands := c.CapacitiesByType[vt]
	labels := make([]string, 0, len(bands))
	for _, b := range bands {
		labels = append(labels, b.Label)
	}
	return labels
}

// MatchCapacity matches input against the vehicle type's bands, exact or by substring.
func (c *Catalog) MatchCapacity(vt domain.VehicleType, input string) (string, bool) {
	folded := Fold(input)
	if folded == "" {
		return "", false
	}
	for _, b := range c.CapacitiesByType[vt] {
		label := Fold(b.Label)
		if label == folded || strings.Contains(folded, label) {
			return b.Label, true
		}
	}
	return "", false
}

// BandForCC returns the band containing a displacement, or "" when cc is unknown.
func (c *Catalog) BandForCC(vt domain.VehicleType, cc float64) string {
	if cc <= 0 {
		return ""
	}
	for _, b := range c.CapacitiesByType[vt] {
		if b.MaxCC == 0 || cc <= float64(b.MaxCC) {
			return b.Label
		}
	}
	return ""
}

// BaseRate returns the annual base premium. A missing coverage type prices as third party.
func (c *Catalog) BaseRate(ct domain.CoverageType, vt domain.VehicleType) float64 {
	if ct == "" {
		ct = domain.CoverageThirdParty
	}
	if vt == "" {
		vt = domain.VehicleCar
	}
	return c.Pricing.BaseRates[ct][vt]
}

// EngineMultiplier returns the surcharge multiplier of the first matching rule, or 1.
func (c *Catalog) EngineMultiplier(band string) float64 {
	label := strings.ToLower(band)
	for _, rule := range c.Pricing.EngineSurcharges {
		if containsAll(label, rule.Tokens) {
			return rule.Multiplier
		}
	}
	return 1.0
}

// PlanMultiplier returns the plan loading multiplier, 1 when unknown or unset.
func (c *Catalog) PlanMultiplier(plan domain.PlanName) float64 {
	if m, ok := c.Pricing.PlanMultipliers[plan]; ok {
		return m
	}
	return 1.0
}

// NCDPercent maps a claims history to its no-claims discount.
func (c *Catalog) NCDPercent(claims domain.ClaimsHistory) int {
	return c.Pricing.NCDPercent[claims]
}

// Addons returns every add-on in display order.
func (c *Catalog) Addons() []Addon {
	return c.AddonList
}

// UsageQuestions returns the car usage questions in the order they are asked.
func (c *Catalog) UsageQuestions() []UsageQuestion {
	return c.Usage
}

// Environments returns the driving environment options.
func (c *Catalog) Environments() []Option {
	return c.DrivingEnvironments
}

// PaymentMethods returns the supported payment methods.
func (c *Catalog) PaymentMethods() []domain.PaymentMethod {
	return c.Payments
}

// PaymentMethod looks up a payment method by id.
func (c *Catalog) PaymentMethod(id string) (domain.PaymentMethod, bool) {
	for _, m := range c.Payments {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return domain.PaymentMethod{}, false
}

// Exclusions returns the standard policy exclusions.
func (c *Catalog) Exclusions() []string {
	return c.PolicyExclusions
}

// Currency returns the premium currency code.
func (c *Catalog) Currency() string {
	if c.Pricing.Currency == "" {
		return "SGD"
	}
	return c.Pricing.Currency
}

func matchExact(candidates []string, input string) (string, bool) {
	folded := Fold(input)
	if folded == "" {
		return "", false
	}
	for _, c := range candidates {
		if Fold(c) == folded {
			return c, true
		}
	}
	return "", false
}

func containsAll(s string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(s, strings.ToLower(t)) {
			return false
		}
	}
	return true
}
