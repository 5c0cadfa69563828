package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/document"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/fingerprint"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/mock"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/store/memory"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// --- Mock implementations ---

type failingVIN struct{ calls int }

func (f *failingVIN) DecodeVIN(context.Context, string) (*domain.VINData, error) {
	f.calls++
	return nil, &domain.ErrExternalService{Service: "vin-decoder", Err: errors.New("upstream 502")}
}

type countingVIN struct {
	mu    sync.Mutex
	calls int
	inner *mock.VINDecoder
}

func (c *countingVIN) DecodeVIN(ctx context.Context, vin string) (*domain.VINData, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.DecodeVIN(ctx, vin)
}

type failingIdentity struct{}

func (failingIdentity) RetrieveIdentity(context.Context, string) (*domain.IdentityRecord, error) {
	return nil, &domain.ErrExternalService{Service: "identity", Err: errors.New("myinfo down")}
}

type fixture struct {
	svc     *service.QuoteService
	store   *memory.Store
	metrics *observability.Metrics
	signer  *document.Signer
}

func newFixture(t *testing.T, mutate func(*service.QuoteDeps)) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	vinCache := cache.New[*domain.VINData](time.Minute)
	t.Cleanup(vinCache.Close)

	store := memory.New()
	// Tokens are issued at fixedNow, so keep them valid long after it.
	signer := document.NewSigner("test-secret", 100*365*24*time.Hour)
	deps := service.QuoteDeps{
		Store:       store,
		VIN:         mock.NewVINDecoder(),
		Registry:    mock.NewRegistry(),
		Identity:    mock.NewIdentity(),
		Payments:    mock.NewPayments(),
		Renderer:    document.NewRenderer(""),
		Signer:      signer,
		Fingerprint: fingerprint.New("test-key"),
		VINCache:    vinCache,
	}
	if mutate != nil {
		mutate(&deps)
	}

	metrics := observability.NewMetrics()
	cfg := service.QuoteConfig{Now: func() time.Time { return fixedNow }}
	svc := service.NewQuoteService(engine.New(cat, zap.NewNop()), deps, cfg, metrics, zap.NewNop())
	return &fixture{svc: svc, store: store, metrics: metrics, signer: signer}
}

func (f *fixture) start(t *testing.T) string {
	t.Helper()
	sess, err := f.svc.CreateSession(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Welcome(context.Background(), sess.ID)
	require.NoError(t, err)
	return sess.ID
}

func (f *fixture) say(t *testing.T, id string, inputs ...string) *domain.ChatResult {
	t.Helper()
	var res *domain.ChatResult
	for _, in := range inputs {
		var err error
		res, err = f.svc.SendMessage(context.Background(), domain.ChatRequest{SessionID: id, QuickReplyValue: in})
		require.NoError(t, err, "input %q", in)
	}
	return res
}

var carToQuote = []string{
	"car", "has_vin_no", "Toyota", "Camry", "1601cc - 2000cc",
	"personal_use", "daily", "below_500km", "peak_hours", "env_urban_city", "Highway, done",
	"confirm_vehicle", "comprehensive", "Drive Premium",
	"manual", "S1234567A", "confirm_driver", "no_claims", "none",
	"data_sharing_yes", "safety_alerts_yes", "yes", "view_quote",
}

// --- Tests ---

func TestSendMessage_CarConversationToQuote(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)

	res := f.say(t, id, carToQuote...)
	require.NotNil(t, res.State.FinalPremium)
	assert.Equal(t, 792.0, *res.State.FinalPremium)
	assert.Equal(t, domain.ModePricing, res.CurrentMode)
	assert.Equal(t, "Tan Ah Kow", res.State.DriverName)

	msgs, err := f.svc.GetMessages(context.Background(), id)
	require.NoError(t, err)
	// welcome + one user/assistant pair per input
	assert.Len(t, msgs, 1+2*len(carToQuote))
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Equal(t, "car", msgs[1].Content)

	snap := f.metrics.FunnelSnapshot()
	assert.Equal(t, int64(1), snap.SessionsCreated)
	assert.Equal(t, int64(len(carToQuote)), snap.TurnsTotal)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t, nil)
	var v *domain.ErrValidation

	_, err := f.svc.SendMessage(context.Background(), domain.ChatRequest{Content: "car"})
	assert.True(t, errors.As(err, &v))

	_, err = f.svc.SendMessage(context.Background(), domain.ChatRequest{SessionID: "s1", Content: "  "})
	assert.True(t, errors.As(err, &v))

	var nf *domain.ErrNotFound
	_, err = f.svc.SendMessage(context.Background(), domain.ChatRequest{SessionID: "missing", Content: "car"})
	assert.True(t, errors.As(err, &nf))
}

func TestSendMessage_UnrecognizedInputRepeatsPrompt(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	f.say(t, id, "car")

	res := f.say(t, id, "what is the meaning of life")
	assert.Equal(t, domain.VehicleCar, res.State.VehicleType)
	assert.Nil(t, res.State.HasVIN)
	assert.Equal(t, domain.ModeIntake, res.CurrentMode)
}

func TestSendMessage_VINDecodeThroughCache(t *testing.T) {
	counting := &countingVIN{inner: mock.NewVINDecoder()}
	f := newFixture(t, func(d *service.QuoteDeps) { d.VIN = counting })

	for range 2 {
		id := f.start(t)
		res := f.say(t, id, "car", "has_vin_yes", "1HGCM82633A004352")
		require.NotNil(t, res.State.VINData)
		assert.Equal(t, "Honda", res.State.VINData.Make)

		res = f.say(t, id, "vin_confirm")
		assert.Equal(t, "Accord", res.State.VehicleModel)
		assert.Equal(t, "2001cc - 3000cc", res.State.EngineCapacity)
	}
	assert.Equal(t, 1, counting.calls)
	assert.Equal(t, 0.5, f.metrics.FunnelSnapshot().VINCacheHitRate)
}

func TestSendMessage_VINFailureFallsBackToManual(t *testing.T) {
	vin := &failingVIN{}
	f := newFixture(t, func(d *service.QuoteDeps) { d.VIN = vin })
	id := f.start(t)

	res := f.say(t, id, "car", "has_vin_yes", "1HGCM82633A004352")
	assert.True(t, res.State.VINLookupFailed)
	assert.Empty(t, res.State.VINNumber)
	assert.True(t, res.Message.ShowBrandLogos, "manual make selection shows the brand grid")
	assert.Equal(t, 1, vin.calls)
	assert.Equal(t, int64(1), f.metrics.FunnelSnapshot().ExternalErrors["vin-decoder"])
}

func TestSendMessage_SingpassUsesDefaultIdentity(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)

	res := f.say(t, id, carToQuote[:14]...)
	require.Equal(t, domain.PlanDrivePremium, res.State.PlanName)

	res = f.say(t, id, "singpass", "consent_yes")
	assert.Equal(t, "Tan Ah Kow", res.State.DriverName)
	assert.Equal(t, "S1234567A", res.State.DriverNRIC)
	assert.Equal(t, domain.ModeDriverIdentity, res.CurrentMode)
}

func TestSendMessage_SingpassFailureSwitchesToManual(t *testing.T) {
	f := newFixture(t, func(d *service.QuoteDeps) { d.Identity = failingIdentity{} })
	id := f.start(t)
	f.say(t, id, carToQuote[:14]...)

	res := f.say(t, id, "singpass", "consent_yes")
	assert.Equal(t, domain.DriverInfoManual, res.State.DriverInfoMethod)
	assert.True(t, res.State.IdentityLookupFailed)
	assert.Empty(t, res.State.DriverName)
}

func TestSendMessage_SerializesTurnsPerSession(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	f.say(t, id, "car", "has_vin_no", "Toyota", "Camry", "1601cc - 2000cc",
		"personal_use", "daily", "below_500km", "peak_hours")

	envs := []string{"env_urban_city", "env_suburban", "env_highway", "env_rural"}
	var wg sync.WaitGroup
	for _, env := range envs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SendMessage(context.Background(), domain.ChatRequest{SessionID: id, QuickReplyValue: env})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := f.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.DrivingEnvironment{
		domain.EnvironmentUrbanCity, domain.EnvironmentSuburban,
		domain.EnvironmentHighway, domain.EnvironmentRural,
	}, sess.State.EnvironmentSelections, "no selection is lost to a concurrent write")
}

func TestGenerateQuote(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)

	var conflict *domain.ErrConflict
	_, err := f.svc.GenerateQuote(context.Background(), id)
	assert.True(t, errors.As(err, &conflict))

	f.say(t, id, carToQuote...)
	res, err := f.svc.GenerateQuote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 792.0, res.Quote.FinalPremium)
	assert.Equal(t, 792.0, res.Breakdown.FinalPremium)
	assert.Equal(t, "SGD", res.Currency)
	assert.Len(t, res.Quote.HolderFingerprint, 64)
	assert.NotContains(t, res.Quote.HolderFingerprint, "S1234567A")

	quotes, err := f.store.ListQuotes(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, res.Quote.ID, quotes[0].ID)
	assert.Equal(t, int64(1), f.metrics.FunnelSnapshot().QuotesIssued)
}

func TestPatchState_AddonToggles(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	ctx := context.Background()

	var conflict *domain.ErrConflict
	_, err := f.svc.PatchState(ctx, id, json.RawMessage(`{"addon_roadside":true}`))
	assert.True(t, errors.As(err, &conflict), "no quote yet")

	f.say(t, id, carToQuote...)

	var v *domain.ErrValidation
	for _, bad := range []string{`{"final_premium":1}`, `{"addon_roadside":"yes"}`, `{}`, `[]`} {
		_, err = f.svc.PatchState(ctx, id, json.RawMessage(bad))
		assert.True(t, errors.As(err, &v), bad)
	}

	sess, err := f.svc.PatchState(ctx, id, json.RawMessage(`{"addon_roadside":true}`))
	require.NoError(t, err)
	assert.True(t, sess.State.AddonRoadside)
	assert.Nil(t, sess.State.FinalPremium)

	res := f.say(t, id, "view_quote")
	require.NotNil(t, res.State.FinalPremium)
	assert.Greater(t, *res.State.FinalPremium, 792.0)
}

func TestProcessPayment_IssuesPolicyOnce(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	ctx := context.Background()
	f.say(t, id, carToQuote...)
	f.say(t, id, "proceed_to_payment")

	var v *domain.ErrValidation
	_, err := f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "bitcoin"})
	assert.True(t, errors.As(err, &v))
	_, err = f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "card", Amount: 10})
	assert.True(t, errors.As(err, &v))

	res, err := f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "paynow", Amount: 792})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Payment processed successfully", res.Message)
	assert.Regexp(t, `^PAY-20260314-[0-9A-F-]{8}$`, res.PaymentReference)
	assert.Regexp(t, `^TRV-2026-\d{5}$`, res.PolicyNumber)
	require.NotNil(t, res.Assistant)
	assert.Contains(t, res.Assistant.Content, res.PolicyNumber)

	sess, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, sess.State.PaymentCompleted)
	assert.True(t, sess.State.DocumentsReady)
	assert.Equal(t, "2026-03-14", sess.State.PolicyStartDate)
	assert.Equal(t, "2027-03-13", sess.State.PolicyEndDate)
	assert.Equal(t, domain.ModeDocument, sess.CurrentMode)

	payments := f.store.Payments(id)
	require.Len(t, payments, 1)
	assert.Equal(t, "SGD", payments[0].Currency)
	assert.Equal(t, "completed", payments[0].Status)

	var conflict *domain.ErrConflict
	_, err = f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "paynow"})
	assert.True(t, errors.As(err, &conflict), "a bound session cannot be charged again")
	assert.Equal(t, int64(1), f.metrics.FunnelSnapshot().PoliciesBound)
}

func TestProcessPayment_AfterAddonPatchIssuesPolicy(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	ctx := context.Background()
	f.say(t, id, carToQuote...)

	_, err := f.svc.PatchState(ctx, id, json.RawMessage(`{"addon_roadside":true}`))
	require.NoError(t, err)

	res, err := f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "paynow", Amount: 842})
	require.NoError(t, err)
	require.NotNil(t, res.Assistant)
	assert.Contains(t, res.Assistant.Content, "is now active")
	assert.Equal(t, domain.ModeDocument, res.Assistant.Mode)

	sess, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, sess.State.DocumentsReady)
	assert.True(t, sess.State.RiskAssessed)
	require.NotNil(t, sess.State.FinalPremium)
	assert.Equal(t, 842.0, *sess.State.FinalPremium)
	require.NotNil(t, sess.State.AddonsTotal)
	assert.Equal(t, 50.0, *sess.State.AddonsTotal)
}

func TestPolicyDocument(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	ctx := context.Background()

	var conflict *domain.ErrConflict
	_, err := f.svc.PolicyDocument(ctx, id)
	assert.True(t, errors.As(err, &conflict))

	f.say(t, id, carToQuote...)
	pay, err := f.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: id, PaymentMethod: "card"})
	require.NoError(t, err)

	doc, err := f.svc.PolicyDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, pay.PolicyNumber, doc.PolicyNumber)
	assert.Equal(t, "14 March 2026", doc.EffectiveDate)
	assert.Equal(t, "13 March 2027", doc.ExpiryDate)
	assert.Equal(t, "S1234****", doc.Policyholder.NRIC)
	assert.Equal(t, "Car", doc.Vehicle.Type)
	assert.Equal(t, "Comprehensive", doc.Coverage.Type)
	assert.Equal(t, 792.0, doc.Coverage.Premium)
	assert.Equal(t, 30, doc.Coverage.NCDPercent)
	assert.NotEmpty(t, doc.Exclusions)

	claims, err := f.svc.VerifyDocument(ctx, doc.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SessionID)
	assert.Equal(t, pay.PolicyNumber, claims.PolicyNumber)

	pdf, _, err := f.svc.RenderPolicyPDF(ctx, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	html, _, err := f.svc.RenderPolicyHTML(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, string(html), pay.PolicyNumber)
}

func TestVerifyDocument_RejectsForeignToken(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)

	other := document.NewSigner("another-secret", 0)
	token, err := other.Sign(domain.DocumentClaims{SessionID: id, PolicyNumber: "TRV-2026-00001", IssuedAt: fixedNow})
	require.NoError(t, err)

	var unauthorized *domain.ErrUnauthorized
	_, err = f.svc.VerifyDocument(context.Background(), token)
	assert.True(t, errors.As(err, &unauthorized))

	token, err = f.signer.Sign(domain.DocumentClaims{SessionID: id, PolicyNumber: "TRV-2026-00001", IssuedAt: time.Now()})
	require.NoError(t, err)
	_, err = f.svc.VerifyDocument(context.Background(), token)
	assert.True(t, errors.As(err, &unauthorized), "session holds no such policy")
}

func TestLookups(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec, err := f.svc.LookupVehicle(ctx, " sba5678b ")
	require.NoError(t, err)
	assert.Equal(t, "Honda", rec.Make)
	assert.Len(t, rec.AccidentHistory, 1)

	var nf *domain.ErrNotFound
	_, err = f.svc.LookupVehicle(ctx, "SZZ0000Z")
	assert.True(t, errors.As(err, &nf))

	id, err := f.svc.RetrieveIdentity(ctx, "s1234567a")
	require.NoError(t, err)
	assert.Equal(t, "Tan Ah Kow", id.FullName)

	var v *domain.ErrValidation
	_, err = f.svc.RetrieveIdentity(ctx, "12345")
	assert.True(t, errors.As(err, &v))

	vin, err := f.svc.DecodeVIN(ctx, "JTDKN3DU5A0123456")
	require.NoError(t, err)
	assert.Equal(t, "TOYOTA", vin.Make)
	assert.Equal(t, "1601cc - 2000cc", vin.Capacity)

	_, err = f.svc.DecodeVIN(ctx, "NOTAVIN")
	assert.True(t, errors.As(err, &v))
}

func TestTranscriptAndHealth(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t)
	f.say(t, id, "motorcycle")

	tr, err := f.svc.Transcript(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, tr.Session.ID)
	assert.Len(t, tr.Messages, 3)

	var nf *domain.ErrNotFound
	_, err = f.svc.Transcript(context.Background(), "missing")
	assert.True(t, errors.As(err, &nf))

	h := f.svc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.Len(t, h.Services, 2)
}
