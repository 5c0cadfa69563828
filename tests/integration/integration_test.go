package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/handler"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/client"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/document"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/fingerprint"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/mock"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/store/memory"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"
)

const accordVIN = "1HGCM82633A004352"

type harness struct {
	t        *testing.T
	server   *httptest.Server
	vinCalls *atomic.Int32
}

// newHarness wires the full stack behind a real HTTP server, with a mock
// vPIC API behind the VIN client.
func newHarness(t *testing.T) *harness {
	t.Helper()

	var vinCalls atomic.Int32
	vpic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vinCalls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/"+accordVIN) {
			w.Write([]byte(`{"Count":1,"Results":[{"Make":"","ErrorCode":"1"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Count":1,"Results":[{"Make":"HONDA","Model":"Accord","ModelYear":"2003","DisplacementCC":"2998.8","FuelTypePrimary":"Gasoline","BodyClass":"Coupe","ErrorCode":"0"}]}`))
	}))
	t.Cleanup(vpic.Close)

	cat, err := catalog.Default()
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	rc := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}

	svc := service.NewQuoteService(engine.New(cat, logger), service.QuoteDeps{
		Store:       memory.New(),
		VIN:         client.NewVINClient(vpic.Client(), vpic.URL, 2*time.Second, resilience.NewCircuitBreaker("vin-int"), rc),
		Registry:    mock.NewRegistry(),
		Identity:    mock.NewIdentity(),
		Payments:    mock.NewPayments(),
		Renderer:    document.NewRenderer("Integration Insurance"),
		Signer:      document.NewSigner("integration-secret", time.Hour),
		Fingerprint: fingerprint.New("integration-key"),
		VINCache:    cache.New[*domain.VINData](time.Minute),
	}, service.QuoteConfig{MaxConcurrency: 4}, metrics, logger)

	srv := httptest.NewServer(handler.NewRouter(svc, metrics, nil, logger))
	t.Cleanup(srv.Close)

	return &harness{t: t, server: srv, vinCalls: &vinCalls}
}

func (h *harness) do(method, path string, body any) (int, []byte) {
	h.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.server.URL+path, rd)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.server.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp.StatusCode, out
}

func (h *harness) json(method, path string, body any, want int, v any) {
	h.t.Helper()
	status, out := h.do(method, path, body)
	require.Equal(h.t, want, status, "%s %s: %s", method, path, out)
	if v != nil {
		require.NoError(h.t, json.Unmarshal(out, v), string(out))
	}
}

func (h *harness) chat(id string, inputs ...string) domain.ChatResult {
	h.t.Helper()
	var res domain.ChatResult
	for _, in := range inputs {
		h.json(http.MethodPost, "/v1/chat", domain.ChatRequest{SessionID: id, QuickReplyValue: in}, http.StatusOK, &res)
	}
	return res
}

// TestIntegration_QuoteAndBind walks a VIN-decoded car from the first
// message to a verified policy document.
func TestIntegration_QuoteAndBind(t *testing.T) {
	h := newHarness(t)

	var sess domain.Session
	h.json(http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &sess)
	h.json(http.MethodPost, "/v1/welcome/"+sess.ID, nil, http.StatusOK, nil)

	// --- Vehicle via VIN ---
	res := h.chat(sess.ID, "car", "has_vin_yes", accordVIN)
	require.NotNil(t, res.State.VINData)
	assert.Equal(t, "Honda", res.State.VINData.Make)
	assert.Equal(t, "2001cc - 3000cc", res.State.VINData.Capacity)

	res = h.chat(sess.ID, "vin_confirm")
	assert.Equal(t, "Accord", res.State.VehicleModel)

	// --- Usage, coverage, driver via Singpass, risk ---
	res = h.chat(sess.ID,
		"personal_use", "daily", "below_500km", "peak_hours", "env_urban_city", "Highway, done",
		"confirm_vehicle", "comprehensive", "Drive Premium",
		"singpass", "consent_yes", "confirm_driver",
		"no_claims", "none", "data_sharing_yes", "safety_alerts_yes", "yes", "view_quote",
	)
	require.NotNil(t, res.State.FinalPremium)
	// 1200 base, 1.3 engine loading, 1.2 plan, less 30% NCD and 15% telematics
	assert.InDelta(t, 1029.6, *res.State.FinalPremium, 0.001)
	assert.Equal(t, "Tan Ah Kow", res.State.DriverName)

	var quote domain.QuoteResult
	h.json(http.MethodPost, "/v1/generate-quote/"+sess.ID, nil, http.StatusOK, &quote)
	assert.InDelta(t, 1029.6, quote.Quote.FinalPremium, 0.001)
	assert.Equal(t, "SGD", quote.Currency)

	// --- Customize ---
	h.json(http.MethodPatch, "/v1/sessions/"+sess.ID+"/state", `{"addon_roadside":true}`, http.StatusOK, nil)
	res = h.chat(sess.ID, "view_quote")
	require.NotNil(t, res.State.FinalPremium)
	assert.InDelta(t, 1079.6, *res.State.FinalPremium, 0.001)

	// --- Pay ---
	res = h.chat(sess.ID, "proceed_to_payment")
	assert.True(t, res.State.PaymentInitiated)

	var paid domain.PaymentResult
	h.json(http.MethodPost, "/v1/payment/process",
		domain.PaymentRequest{SessionID: sess.ID, PaymentMethod: "grabpay", Amount: 1079.6},
		http.StatusOK, &paid)
	require.True(t, paid.Success)
	require.NotEmpty(t, paid.PolicyNumber)

	status, _ := h.do(http.MethodPost, "/v1/payment/process", domain.PaymentRequest{SessionID: sess.ID, PaymentMethod: "grabpay"})
	assert.Equal(t, http.StatusConflict, status)

	// --- Documents ---
	var doc domain.PolicyDocument
	h.json(http.MethodGet, "/v1/document/"+sess.ID, nil, http.StatusOK, &doc)
	assert.Equal(t, paid.PolicyNumber, doc.PolicyNumber)
	assert.Equal(t, "S1234****", doc.Policyholder.NRIC)
	require.NotEmpty(t, doc.VerificationToken)

	var verified struct {
		Valid  bool                  `json:"valid"`
		Claims domain.DocumentClaims `json:"claims"`
	}
	h.json(http.MethodGet, "/v1/document/verify?token="+url.QueryEscape(doc.VerificationToken), nil, http.StatusOK, &verified)
	assert.True(t, verified.Valid)
	assert.Equal(t, sess.ID, verified.Claims.SessionID)
	assert.Equal(t, paid.PolicyNumber, verified.Claims.PolicyNumber)

	status, pdf := h.do(http.MethodGet, "/v1/document/"+sess.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	status, html := h.do(http.MethodGet, "/v1/document/"+sess.ID+"/html", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(html), paid.PolicyNumber)

	// --- Log and funnel ---
	var tr domain.Transcript
	h.json(http.MethodGet, "/v1/sessions/"+sess.ID+"/transcript", nil, http.StatusOK, &tr)
	assert.Equal(t, domain.ModeDocument, tr.Session.CurrentMode)
	last := tr.Messages[len(tr.Messages)-1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, paid.PolicyNumber)

	var funnel domain.FunnelMetrics
	h.json(http.MethodGet, "/v1/metrics/funnel", nil, http.StatusOK, &funnel)
	assert.Equal(t, int64(1), funnel.PoliciesBound)
	assert.Equal(t, int32(1), h.vinCalls.Load())
}

// TestIntegration_VINCachedAcrossSessions decodes the same VIN in two
// sessions with a single upstream call.
func TestIntegration_VINCachedAcrossSessions(t *testing.T) {
	h := newHarness(t)

	for i := range 2 {
		var sess domain.Session
		h.json(http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &sess)
		res := h.chat(sess.ID, "car", "has_vin_yes", accordVIN)
		require.NotNil(t, res.State.VINData, "session %d", i)
	}
	assert.Equal(t, int32(1), h.vinCalls.Load())

	var data domain.VINData
	h.json(http.MethodGet, "/v1/vin-decode/"+accordVIN, nil, http.StatusOK, &data)
	assert.Equal(t, "2001cc - 3000cc", data.Capacity)
	assert.Equal(t, int32(1), h.vinCalls.Load())
}

// TestIntegration_UnknownVINFallsBack drops to manual make selection when
// the decoder cannot resolve the VIN.
func TestIntegration_UnknownVINFallsBack(t *testing.T) {
	h := newHarness(t)

	var sess domain.Session
	h.json(http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &sess)
	res := h.chat(sess.ID, "car", "has_vin_yes", "JH4KA7561PC008269")

	assert.True(t, res.State.VINLookupFailed)
	assert.Nil(t, res.State.VINData)
	require.NotNil(t, res.Message)
	assert.True(t, res.Message.ShowBrandLogos)
	assert.Equal(t, int32(1), h.vinCalls.Load())
}

// TestIntegration_ConcurrentSessions runs independent conversations in parallel.
func TestIntegration_ConcurrentSessions(t *testing.T) {
	h := newHarness(t)

	const n = 8
	errs := make(chan error, n)
	for i := range n {
		go func() {
			resp, err := http.Post(h.server.URL+"/v1/sessions", "application/json", nil)
			if err != nil {
				errs <- err
				return
			}
			var sess domain.Session
			err = json.NewDecoder(resp.Body).Decode(&sess)
			resp.Body.Close()
			if err != nil || resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("create %d: status %d, %v", i, resp.StatusCode, err)
				return
			}
			for _, in := range []string{"car", "has_vin_no", "Toyota", "Camry"} {
				raw, _ := json.Marshal(domain.ChatRequest{SessionID: sess.ID, QuickReplyValue: in})
				resp, err := http.Post(h.server.URL+"/v1/chat", "application/json", bytes.NewReader(raw))
				if err != nil {
					errs <- err
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errs <- fmt.Errorf("session %d input %q: %d", i, in, resp.StatusCode)
					return
				}
			}
			errs <- nil
		}()
	}
	for range n {
		assert.NoError(t, <-errs)
	}
}
