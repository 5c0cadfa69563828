package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/motor-quote-bfa-go/internal/port"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

var tracer = otel.Tracer("service/quote")

// QuoteDeps are the collaborators of the quote service.
type QuoteDeps struct {
	Store       port.Store
	VIN         port.VINDecoder
	Registry    port.RegistryLookup
	Identity    port.IdentityLookup
	Payments    port.PaymentProcessor
	Renderer    port.DocumentRenderer
	Signer      port.DocumentSigner
	Fingerprint port.Fingerprinter
	VINCache    port.Cache[*domain.VINData]
}

// QuoteConfig holds the service settings.
type QuoteConfig struct {
	// SingpassDefaultNRIC is retrieved when the user consents to Singpass
	// retrieval without naming an NRIC.
	SingpassDefaultNRIC string
	PolicyPrefix        string
	MaxConcurrency      int
	Now                 func() time.Time
}

// QuoteService is the conversation gateway: it loads the session, runs the
// engine, performs any external lookups the state asks for and persists the turn.
type QuoteService struct {
	engine  *engine.Engine
	deps    QuoteDeps
	cfg     QuoteConfig
	locks   *sessionLocks
	lookups *resilience.Bulkhead
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewQuoteService creates the quote service with all dependencies injected.
func NewQuoteService(eng *engine.Engine, deps QuoteDeps, cfg QuoteConfig, metrics *observability.Metrics, logger *zap.Logger) *QuoteService {
	if cfg.PolicyPrefix == "" {
		cfg.PolicyPrefix = "TRV"
	}
	if cfg.SingpassDefaultNRIC == "" {
		cfg.SingpassDefaultNRIC = "S1234567A"
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &QuoteService{
		engine:  eng,
		deps:    deps,
		cfg:     cfg,
		locks:   newSessionLocks(),
		lookups: resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics: metrics,
		logger:  logger,
	}
}

// Engine exposes the rule engine, mainly for catalog reads.
func (s *QuoteService) Engine() *engine.Engine {
	return s.engine
}

// ============================================================
// Sessions
// ============================================================

// CreateSession starts an empty conversation.
func (s *QuoteService) CreateSession(ctx context.Context) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.CreateSession")
	defer span.End()

	now := s.cfg.Now().UTC()
	sess := &domain.Session{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		CurrentMode: domain.ModeOrchestrator,
	}
	if err := s.deps.Store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.metrics.IncrSession()
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// GetSession loads a session.
func (s *QuoteService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.GetSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	if strings.TrimSpace(id) == "" {
		return nil, &domain.ErrValidation{Field: "session_id", Message: "is required"}
	}
	return s.deps.Store.GetSession(ctx, id)
}

// GetMessages returns the conversation log of a session.
func (s *QuoteService) GetMessages(ctx context.Context, id string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.GetMessages",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.deps.Store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// Transcript loads a session and its messages concurrently.
func (s *QuoteService) Transcript(ctx context.Context, id string) (*domain.Transcript, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.Transcript",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var (
		sess *domain.Session
		msgs []domain.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sess, err = s.GetSession(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		msgs, err = s.deps.Store.ListMessages(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return &domain.Transcript{Session: sess, Messages: msgs}, nil
}

// ============================================================
// Conversation turns
// ============================================================

// Welcome appends the opening assistant prompt to a session.
func (s *QuoteService) Welcome(ctx context.Context, id string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.Welcome")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	next, prompt, err := s.engine.Respond(sess.State, domain.CommandNone)
	if err != nil {
		return nil, fmt.Errorf("welcome prompt: %w", err)
	}
	return s.commit(ctx, sess, next, prompt, nil)
}

// SendMessage processes one user input and returns the assistant reply.
func (s *QuoteService) SendMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.SendMessage")
	defer span.End()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &domain.ErrValidation{Field: "session_id", Message: "is required"}
	}
	input := req.QuickReplyValue
	if input == "" {
		input = req.Content
	}
	if strings.TrimSpace(input) == "" {
		return nil, &domain.ErrValidation{Field: "content", Message: "is required"}
	}
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	start := time.Now()
	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.deps.Store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	state, cmd, matched := s.engine.Normalize(sess.State, input)
	state = s.engine.ApplyCommand(state, cmd)
	state = s.resolveLookups(ctx, state)

	next, prompt, err := s.engine.Respond(state, cmd)
	if err != nil {
		return nil, fmt.Errorf("next step: %w", err)
	}

	content := req.Content
	if content == "" {
		content = req.QuickReplyValue
	}
	userMsg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Role:      domain.RoleUser,
		Content:   content,
		Mode:      sess.CurrentMode,
		CreatedAt: s.cfg.Now().UTC(),
	}

	reply, err := s.commit(ctx, sess, next, prompt, userMsg)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrTurn(prompt.NextMode)
	s.metrics.RecordRequestDuration("chat", time.Since(start))
	s.logger.Debug("turn processed",
		zap.String("session_id", sess.ID),
		zap.String("rule", prompt.Rule),
		zap.String("mode", string(prompt.NextMode)),
		zap.String("command", string(cmd)),
		zap.Bool("matched", matched),
	)

	return &domain.ChatResult{Message: reply, State: sess.State, CurrentMode: sess.CurrentMode}, nil
}

// commit persists the user message (if any), the new state and the assistant reply.
func (s *QuoteService) commit(ctx context.Context, sess *domain.Session, next domain.State, prompt domain.Prompt, userMsg *domain.Message) (*domain.Message, error) {
	if userMsg != nil {
		if err := s.deps.Store.AppendMessage(ctx, userMsg); err != nil {
			return nil, fmt.Errorf("append user message: %w", err)
		}
	}

	sess.State = next
	sess.CurrentMode = prompt.NextMode
	if err := s.deps.Store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	reply := &domain.Message{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		Role:           domain.RoleAssistant,
		Content:        prompt.Message,
		Mode:           prompt.NextMode,
		QuickReplies:   prompt.Options,
		Cards:          prompt.Cards,
		MultiSelect:    prompt.MultiSelect,
		ShowBrandLogos: prompt.ShowBrandLogos,
		CreatedAt:      s.cfg.Now().UTC(),
	}
	if err := s.deps.Store.AppendMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}
	return reply, nil
}

// ============================================================
// Add-on customisation
// ============================================================

// PatchState applies a JSON merge patch of add-on toggles onto a quoted
// session. The stored premium is cleared so the next turn reprices.
func (s *QuoteService) PatchState(ctx context.Context, id string, patch json.RawMessage) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "QuoteService.PatchState")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	if err := s.validateAddonPatch(patch); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.State.HasQuote() {
		return nil, &domain.ErrConflict{Message: "session has no quote to customise"}
	}
	if sess.State.PaymentInitiated {
		return nil, &domain.ErrConflict{Message: "policy is already being bound"}
	}

	merged, err := engine.MergeState(sess.State, patch)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "patch", Message: err.Error()}
	}
	merged.ClearPricing()
	sess.State = merged
	sess.CurrentMode = domain.ModeCustomize
	if err := s.deps.Store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	s.logger.Info("add-ons updated", zap.String("session_id", id))
	return sess, nil
}

func (s *QuoteService) validateAddonPatch(patch json.RawMessage) error {
	var fields map[string]any
	if err := json.Unmarshal(patch, &fields); err != nil {
		return &domain.ErrValidation{Field: "patch", Message: "must be a JSON object"}
	}
	if len(fields) == 0 {
		return &domain.ErrValidation{Field: "patch", Message: "is empty"}
	}

	known := make(map[string]bool)
	for _, a := range s.engine.Catalog().Addons() {
		known["addon_"+a.ID] = true
	}
	for key, v := range fields {
		if !known[key] {
			return &domain.ErrValidation{Field: key, Message: "only add-on toggles can be patched"}
		}
		if _, ok := v.(bool); !ok {
			return &domain.ErrValidation{Field: key, Message: "must be a boolean"}
		}
	}
	return nil
}
