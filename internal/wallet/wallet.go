// Package wallet mocks the browser wallet connection that gates the
// eligibility form, issuing a signed session token for the derived address.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	dErrors "shieldcare/pkg/domain-errors"
	"shieldcare/pkg/platform/latency"
	"shieldcare/pkg/platform/randhex"
)

const (
	DefaultConnectDelay = 1500 * time.Millisecond
	DefaultTokenTTL     = time.Hour
	DefaultIssuer       = "shieldcare"
)

// Claims is the session token payload.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Session is the result of a successful connection.
type Session struct {
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Connector issues and validates wallet session tokens.
type Connector struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	delay      time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Connector)

func WithConnectDelay(d time.Duration) Option {
	return func(c *Connector) { c.delay = d }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Connector) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(c *Connector) {
		if issuer != "" {
			c.issuer = issuer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(signingKey string, opts ...Option) (*Connector, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	c := &Connector{
		signingKey: []byte(signingKey),
		issuer:     DefaultIssuer,
		ttl:        DefaultTokenTTL,
		delay:      DefaultConnectDelay,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect waits out the simulated wallet prompt, derives a fresh address and
// returns a session token bound to it.
func (c *Connector) Connect(ctx context.Context) (*Session, error) {
	if err := latency.Wait(ctx, c.delay); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCanceled, "wallet connection cancelled")
	}
	address, err := newAddress()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive wallet address")
	}
	token, expiresAt, err := c.issue(address)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	c.logger.InfoContext(ctx, "wallet connected", "address", address)
	return &Session{Address: address, Token: token, ExpiresAt: expiresAt}, nil
}

func (c *Connector) issue(address string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses a session token and returns its claims.
func (c *Connector) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Address == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// newAddress derives an Ethereum-style address: the last 20 bytes of the
// Keccak-256 digest of 32 random bytes.
func newAddress() (string, error) {
	key, err := randhex.Bytes(32)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(key)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:]), nil
}
