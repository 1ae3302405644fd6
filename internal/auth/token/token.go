// Package token issues and verifies HS256 bearer credentials.
package token

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
)

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Secret: cfg.AuthJWTSecret,
		Issuer: cfg.AuthIssuer,
		TTL:    cfg.AuthTokenTTL,
	}
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(cfg Config, clk clock.Clock) *Issuer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Issuer{
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    ttl,
		clock:  clk,
	}
}

// Issue signs a credential for userID and returns it with its expiry.
func (i *Issuer) Issue(userID snowflake.ID) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, domain.ErrSigningKeyMissing
	}
	now := i.clock.Now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry. Every failure collapses into
// domain.ErrInvalidToken so callers cannot tell expired from forged.
func (i *Issuer) Verify(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(i.secret) == 0 {
		return 0, domain.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return 0, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return 0, domain.ErrInvalidToken
	}
	return userID, nil
}

// FromHeader extracts the credential from an Authorization header value.
func FromHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", domain.ErrMissingToken
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrInvalidToken
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.ErrMissingToken
	}
	return value, nil
}
