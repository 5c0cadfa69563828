package engine

import "github.com/boddenberg/motor-quote-bfa-go/internal/domain"

// Risk is the derived risk snapshot shown before the quote.
type Risk struct {
	NCDPercent int              `json:"ncd_percent"`
	Level      domain.RiskLevel `json:"risk_level"`
}

// AssessRisk derives the no-claims discount and risk level from the claims history.
func (e *Engine) AssessRisk(s domain.State) Risk {
	r := Risk{NCDPercent: e.catalog.NCDPercent(s.ClaimsHistory)}
	switch s.ClaimsHistory {
	case domain.ClaimsNone:
		r.Level = domain.RiskLow
	case domain.ClaimsOneMinor:
		r.Level = domain.RiskMedium
	default:
		r.Level = domain.RiskHigh
	}
	return r
}

// Settle returns a copy of s with the risk snapshot and the current breakdown
// written on it, so no pricing rule is left to fire.
func (e *Engine) Settle(s domain.State) (domain.State, domain.Breakdown) {
	out := s.Clone()
	r := e.AssessRisk(out)
	out.RiskAssessed = true
	out.NCDPercent = ptr(r.NCDPercent)
	out.RiskLevel = r.Level

	b := e.Calculate(out)
	writePricing(&out, b)
	return out, b
}
