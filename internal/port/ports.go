// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// SessionStore persists conversation sessions.
// UpdateSession bumps Version and UpdatedAt; a missing session is *domain.ErrNotFound.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
}

// MessageStore is the append-only conversation log.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// QuoteStore keeps point-in-time quote snapshots.
type QuoteStore interface {
	SaveQuote(ctx context.Context, q *domain.QuoteRecord) error
	ListQuotes(ctx context.Context, sessionID string) ([]domain.QuoteRecord, error)
}

// PaymentStore keeps completed payment snapshots.
type PaymentStore interface {
	SavePayment(ctx context.Context, p *domain.PaymentRecord) error
}

// Store bundles every persistence port. Each backend implements all of them.
type Store interface {
	SessionStore
	MessageStore
	QuoteStore
	PaymentStore
	Ping(ctx context.Context) error
}

// VINDecoder decodes a vehicle identification number.
type VINDecoder interface {
	DecodeVIN(ctx context.Context, vin string) (*domain.VINData, error)
}

// RegistryLookup queries the vehicle registry by plate number.
type RegistryLookup interface {
	LookupVehicle(ctx context.Context, plate string) (*domain.VehicleRecord, error)
}

// IdentityLookup retrieves driver particulars by NRIC.
type IdentityLookup interface {
	RetrieveIdentity(ctx context.Context, nric string) (*domain.IdentityRecord, error)
}

// PaymentProcessor charges a premium.
type PaymentProcessor interface {
	Charge(ctx context.Context, sessionID, method string, amount float64) (*domain.ChargeResult, error)
}

// DocumentRenderer renders an issued policy.
type DocumentRenderer interface {
	RenderPDF(doc *domain.PolicyDocument) ([]byte, error)
	RenderHTML(doc *domain.PolicyDocument) ([]byte, error)
}

// DocumentSigner issues and verifies policy verification tokens.
type DocumentSigner interface {
	Sign(claims domain.DocumentClaims) (string, error)
	Verify(token string) (*domain.DocumentClaims, error)
}

// Fingerprinter derives a pseudonymous identifier from an NRIC.
type Fingerprinter interface {
	Of(id string) string
}

// Cache provides generic caching with TTL.
// GetOrLoad collapses concurrent loads of the same key and caches only
// successful results.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	GetOrLoad(key string, load func() (T, error)) (value T, hit bool, err error)
}
