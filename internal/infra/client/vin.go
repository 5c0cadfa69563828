package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// VINClient decodes VINs against a vPIC-compatible API
// (GET /api/vehicles/DecodeVinValues/{vin}?format=json).
type VINClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewVINClient creates a new VINClient. A zero timeout means no per-call deadline.
func NewVINClient(httpClient *http.Client, baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *VINClient {
	return &VINClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		cb:         cb,
		cfg:        cfg,
	}
}

type vpicResponse struct {
	Count   int          `json:"Count"`
	Message string       `json:"Message"`
	Results []vpicResult `json:"Results"`
}

type vpicResult struct {
	Make            string `json:"Make"`
	Model           string `json:"Model"`
	ModelYear       string `json:"ModelYear"`
	DisplacementCC  string `json:"DisplacementCC"`
	FuelTypePrimary string `json:"FuelTypePrimary"`
	BodyClass       string `json:"BodyClass"`
	ErrorCode       string `json:"ErrorCode"`
}

// DecodeVIN decodes a VIN with retry, circuit breaker, and tracing.
// A VIN the API cannot resolve to a make is *domain.ErrNotFound.
func (c *VINClient) DecodeVIN(ctx context.Context, vin string) (*domain.VINData, error) {
	ctx, span := tracer.Start(ctx, "VINClient.DecodeVIN")
	defer span.End()
	span.SetAttributes(attribute.String("vin", vin))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := resilience.Call(ctx, c.cb, c.cfg, func(ctx context.Context) (*domain.VINData, error) {
		u := fmt.Sprintf("%s/api/vehicles/DecodeVinValues/%s?format=json", c.baseURL, url.PathEscape(vin))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, &domain.ErrNotFound{Resource: "vin", ID: vin}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("vin API returned status %d", resp.StatusCode)
		}

		var body vpicResponse
		if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode vin response: %w", err)
		}
		if len(body.Results) == 0 || strings.TrimSpace(body.Results[0].Make) == "" {
			return nil, &domain.ErrNotFound{Resource: "vin", ID: vin}
		}
		return toVINData(vin, body.Results[0]), nil
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &domain.ErrTimeout{Operation: "vin decode"}
		}
		if resilience.IsPermanent(err) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "vin-decoder", Err: err}
	}
	return data, nil
}

func toVINData(vin string, r vpicResult) *domain.VINData {
	d := &domain.VINData{
		VIN:       vin,
		Make:      strings.TrimSpace(r.Make),
		Model:     strings.TrimSpace(r.Model),
		FuelType:  strings.TrimSpace(r.FuelTypePrimary),
		BodyClass: strings.TrimSpace(r.BodyClass),
	}
	if y, err := strconv.Atoi(strings.TrimSpace(r.ModelYear)); err == nil {
		d.Year = y
	}
	if cc, err := strconv.ParseFloat(strings.TrimSpace(r.DisplacementCC), 64); err == nil {
		d.DisplacementCC = cc
	}
	return d
}
