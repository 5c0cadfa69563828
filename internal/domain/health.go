package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// FunnelMetrics is returned by GET /v1/metrics/funnel.
type FunnelMetrics struct {
	SessionsCreated int64            `json:"sessionsCreated"`
	TurnsTotal      int64            `json:"turnsTotal"`
	TurnsByMode     map[string]int64 `json:"turnsByMode"`
	QuotesIssued    int64            `json:"quotesIssued"`
	PoliciesBound   int64            `json:"policiesBound"`
	ConversionRate  float64          `json:"conversionRate"`
	VINCacheHitRate float64          `json:"vinCacheHitRate"`
	ExternalErrors  map[string]int64 `json:"externalErrors"`
	AvgFinalPremium float64          `json:"avgFinalPremium"`
	Period          string           `json:"period"`
}
