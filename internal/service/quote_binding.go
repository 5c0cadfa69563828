package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

const (
	// stateDateLayout is how policy dates are kept in the session state.
	stateDateLayout = "2006-01-02"
	// documentDateLayout is how policy dates are printed on documents.
	documentDateLayout = "02 January 2006"

	amountTolerance = 0.005
)

// ============================================================
// Quotes
// ============================================================

// GenerateQuote prices the session and stores a quote snapshot.
func (s *QuoteService) GenerateQuote(ctx context.Context, id string) (*domain.QuoteResult, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.GenerateQuote")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	st := sess.State
	if !st.PricingInputsComplete() {
		return nil, &domain.ErrConflict{Message: "quote inputs are incomplete"}
	}

	b := s.engine.Calculate(st)
	rec := domain.QuoteRecord{
		ID:                   uuid.NewString(),
		SessionID:            sess.ID,
		VehicleType:          st.VehicleType,
		VehicleMake:          st.VehicleMake,
		VehicleModel:         st.VehicleModel,
		EngineCapacity:       st.EngineCapacity,
		CoverageType:         st.CoverageType,
		PlanName:             st.PlanName,
		BasePremium:          b.BasePremium,
		GrossPremium:         b.GrossPremium,
		NCDDiscount:          b.NCDDiscount,
		TelematicsDiscount:   b.TelematicsDiscount,
		GreenVehicleDiscount: b.GreenVehicleDiscount,
		AddonsTotal:          b.AddonsTotal,
		FinalPremium:         b.FinalPremium,
		HolderFingerprint:    s.fingerprint(st.DriverNRIC),
		CreatedAt:            s.cfg.Now().UTC(),
	}
	if err := s.deps.Store.SaveQuote(ctx, &rec); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}

	s.metrics.RecordQuote(st.CoverageType, b.FinalPremium)
	s.logger.Info("quote generated",
		zap.String("session_id", sess.ID),
		zap.String("quote_id", rec.ID),
		zap.Float64("final_premium", b.FinalPremium),
	)
	return &domain.QuoteResult{Quote: rec, Breakdown: b, Currency: s.engine.Catalog().Currency()}, nil
}

// ============================================================
// Payments
// ============================================================

// PaymentMethods lists the supported ways to pay.
func (s *QuoteService) PaymentMethods() []domain.PaymentMethod {
	return s.engine.Catalog().PaymentMethods()
}

// ProcessPayment charges the premium, issues the policy and appends the
// confirmation prompt to the conversation.
func (s *QuoteService) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.ProcessPayment")
	defer span.End()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &domain.ErrValidation{Field: "session_id", Message: "is required"}
	}
	method, ok := s.engine.Catalog().PaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, &domain.ErrValidation{Field: "payment_method", Message: "unsupported payment method: " + req.PaymentMethod}
	}
	span.SetAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.String("payment.method", method.ID),
	)

	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.deps.Store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	st := sess.State
	if st.PaymentCompleted {
		return nil, &domain.ErrConflict{Message: "policy already issued: " + st.PolicyNumber}
	}
	if !st.PricingInputsComplete() {
		return nil, &domain.ErrConflict{Message: "session has no quote to pay for"}
	}

	// Patched add-ons null final_premium; price them before binding.
	st, breakdown := s.engine.Settle(st)
	premium := breakdown.FinalPremium
	amount := req.Amount
	if amount == 0 {
		amount = premium
	}
	if math.Abs(amount-premium) > amountTolerance {
		return nil, &domain.ErrValidation{
			Field:   "amount",
			Message: fmt.Sprintf("%.2f does not match the premium %.2f", amount, premium),
		}
	}

	charge, err := s.deps.Payments.Charge(ctx, sess.ID, method.ID, premium)
	if err != nil {
		s.metrics.IncrExternalError("payments")
		return nil, fmt.Errorf("charge: %w", err)
	}
	if !charge.Success {
		return &domain.PaymentResult{Success: false, Message: "Payment was declined"}, nil
	}

	now := s.cfg.Now().UTC()
	st.PaymentInitiated = true
	st.PaymentCompleted = true
	st.PaymentMethod = method.ID
	st.PaymentReference = paymentReference(now)
	st.PolicyNumber = s.policyNumber(now)
	st.PolicyStartDate = now.Format(stateDateLayout)
	st.PolicyEndDate = now.AddDate(1, 0, -1).Format(stateDateLayout)

	next, prompt, err := s.engine.Respond(st, domain.CommandNone)
	if err != nil {
		return nil, fmt.Errorf("policy prompt: %w", err)
	}

	record := domain.PaymentRecord{
		ID:                uuid.NewString(),
		SessionID:         sess.ID,
		PaymentReference:  st.PaymentReference,
		PolicyNumber:      st.PolicyNumber,
		PaymentMethod:     method.ID,
		Amount:            premium,
		Currency:          s.engine.Catalog().Currency(),
		Status:            "completed",
		HolderFingerprint: s.fingerprint(st.DriverNRIC),
		CreatedAt:         now,
	}
	if err := s.deps.Store.SavePayment(ctx, &record); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	reply, err := s.commit(ctx, sess, next, prompt, nil)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrPolicyBound()
	s.logger.Info("policy bound",
		zap.String("session_id", sess.ID),
		zap.String("policy_number", st.PolicyNumber),
		zap.String("payment_reference", st.PaymentReference),
		zap.String("charge_reference", charge.Reference),
	)

	return &domain.PaymentResult{
		Success:          true,
		PaymentReference: st.PaymentReference,
		PolicyNumber:     st.PolicyNumber,
		Message:          "Payment processed successfully",
		Assistant:        reply,
	}, nil
}

// paymentReference returns PAY-YYYYMMDD-XXXXXXXX.
func paymentReference(now time.Time) string {
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// policyNumber returns PREFIX-YYYY-NNNNN.
func (s *QuoteService) policyNumber(now time.Time) string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4]) % 100000
	return fmt.Sprintf("%s-%d-%05d", s.cfg.PolicyPrefix, now.Year(), n)
}

func (s *QuoteService) fingerprint(nric string) string {
	if s.deps.Fingerprint == nil {
		return ""
	}
	return s.deps.Fingerprint.Of(nric)
}

// ============================================================
// Policy documents
// ============================================================

// PolicyDocument builds the document view of an issued policy, including a
// signed verification token.
func (s *QuoteService) PolicyDocument(ctx context.Context, id string) (*domain.PolicyDocument, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.PolicyDocument")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	st := sess.State
	if st.PolicyNumber == "" || !st.PaymentCompleted {
		return nil, &domain.ErrConflict{Message: "no policy has been issued for this session"}
	}

	b := s.engine.Calculate(st)
	premium := b.FinalPremium
	if st.FinalPremium != nil {
		premium = *st.FinalPremium
	}

	doc := &domain.PolicyDocument{
		PolicyNumber:     st.PolicyNumber,
		EffectiveDate:    displayDate(st.PolicyStartDate),
		ExpiryDate:       displayDate(st.PolicyEndDate),
		PaymentReference: st.PaymentReference,
		Policyholder: domain.PolicyHolder{
			Name:    st.DriverName,
			NRIC:    engine.MaskNRIC(st.DriverNRIC),
			Phone:   st.DriverPhone,
			Email:   st.DriverEmail,
			Address: st.DriverAddress,
		},
		Vehicle: domain.PolicyVehicle{
			Type:           vehicleLabel(st.VehicleType),
			Make:           st.VehicleMake,
			Model:          st.VehicleModel,
			EngineCapacity: st.EngineCapacity,
		},
		Coverage: domain.PolicyCoverage{
			Type:                 st.CoverageType.Label(),
			Plan:                 string(st.PlanName),
			Premium:              premium,
			NCDPercent:           b.NCDPercent,
			NCDDiscount:          b.NCDDiscount,
			TelematicsDiscount:   b.TelematicsDiscount,
			GreenVehicleDiscount: b.GreenVehicleDiscount,
			Addons:               s.engine.SelectedAddons(st),
		},
		Exclusions: s.engine.Catalog().Exclusions(),
	}

	if s.deps.Signer != nil {
		token, err := s.deps.Signer.Sign(domain.DocumentClaims{
			SessionID:    sess.ID,
			PolicyNumber: st.PolicyNumber,
			Premium:      premium,
			IssuedAt:     s.cfg.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("sign document: %w", err)
		}
		doc.VerificationToken = token
	}
	return doc, nil
}

// RenderPolicyPDF renders the issued policy as a PDF.
func (s *QuoteService) RenderPolicyPDF(ctx context.Context, id string) ([]byte, *domain.PolicyDocument, error) {
	doc, err := s.PolicyDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	_, span := tracer.Start(ctx, "QuoteService.RenderPolicyPDF")
	defer span.End()

	out, err := s.deps.Renderer.RenderPDF(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("render pdf: %w", err)
	}
	return out, doc, nil
}

// RenderPolicyHTML renders the issued policy as an HTML page.
func (s *QuoteService) RenderPolicyHTML(ctx context.Context, id string) ([]byte, *domain.PolicyDocument, error) {
	doc, err := s.PolicyDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	_, span := tracer.Start(ctx, "QuoteService.RenderPolicyHTML")
	defer span.End()

	out, err := s.deps.Renderer.RenderHTML(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("render html: %w", err)
	}
	return out, doc, nil
}

// VerifyDocument checks a verification token against the issuing session.
func (s *QuoteService) VerifyDocument(ctx context.Context, token string) (*domain.DocumentClaims, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.VerifyDocument")
	defer span.End()

	if strings.TrimSpace(token) == "" {
		return nil, &domain.ErrValidation{Field: "token", Message: "is required"}
	}
	if s.deps.Signer == nil {
		return nil, &domain.ErrUnauthorized{Message: "document verification is not configured"}
	}
	claims, err := s.deps.Signer.Verify(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.State.PolicyNumber != claims.PolicyNumber {
		return nil, &domain.ErrUnauthorized{Message: "verification token does not match the policy"}
	}
	return claims, nil
}

// ============================================================
// Operations
// ============================================================

// FunnelMetrics returns the conversion funnel snapshot.
func (s *QuoteService) FunnelMetrics() *domain.FunnelMetrics {
	return s.metrics.FunnelSnapshot()
}

// Health pings the store and reports its latency.
func (s *QuoteService) Health(ctx context.Context) domain.HealthStatus {
	now := s.cfg.Now().UTC().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "bfa-api", Status: "healthy", LastChecked: now},
	}

	start := time.Now()
	err := s.deps.Store.Ping(ctx)
	store := domain.ServiceHealth{
		Name:        "store",
		Status:      "healthy",
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: now,
	}
	if err != nil {
		store.Status = "unhealthy"
		store.Error = err.Error()
	}
	services = append(services, store)

	overall := "healthy"
	for _, svc := range services {
		if svc.Status != "healthy" {
			overall = "degraded"
		}
	}
	return domain.HealthStatus{Status: overall, Services: services}
}

func displayDate(iso string) string {
	t, err := time.Parse(stateDateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(documentDateLayout)
}

func vehicleLabel(vt domain.VehicleType) string {
	switch vt {
	case domain.VehicleCar:
		return "Car"
	case domain.VehicleMotorcycle:
		return "Motorcycle"
	}
	return string(vt)
}
