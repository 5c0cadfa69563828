package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

const issuer = "motor-quote-bfa"

// Signer issues and verifies the HS256 token printed on policy documents.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. Tokens expire after ttl (one policy term by default).
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 366 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// policyClaims are the custom claims of a verification token.
type policyClaims struct {
	SessionID    string  `json:"sid"`
	PolicyNumber string  `json:"pno"`
	Premium      float64 `json:"prm"`
	jwt.RegisteredClaims
}

// Sign returns a compact JWS for the claims.
func (s *Signer) Sign(c domain.DocumentClaims) (string, error) {
	if c.PolicyNumber == "" {
		return "", &domain.ErrValidation{Field: "policy_number", Message: "no policy has been issued"}
	}
	issued := c.IssuedAt
	if issued.IsZero() {
		issued = s.now()
	}
	claims := policyClaims{
		SessionID:    c.SessionID,
		PolicyNumber: c.PolicyNumber,
		Premium:      c.Premium,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.PolicyNumber,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign verification token: %w", err)
	}
	return token, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (s *Signer) Verify(tokenString string) (*domain.DocumentClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &policyClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "verification token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid verification token"}
	}

	claims, ok := token.Claims.(*policyClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid verification token"}
	}
	out := &domain.DocumentClaims{
		SessionID:    claims.SessionID,
		PolicyNumber: claims.PolicyNumber,
		Premium:      claims.Premium,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
