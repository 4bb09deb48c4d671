// Package fhe provides a stand-in for a client-side FHE library. A ciphertext
// is a per-metric prefix followed by a salted MiMC commitment to the value;
// it hides the value but nothing can be computed on it.
package fhe

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"shieldcare/internal/eligibility/ports"
	"shieldcare/internal/health"
	"shieldcare/pkg/platform/latency"
	"shieldcare/pkg/platform/sentinel"
)

// Ciphertext prefixes and body lengths per metric.
const (
	PrefixAge           = "0xAGE"
	PrefixBloodPressure = "0xBP"
	PrefixBloodSugar    = "0xBS"

	ageBodyLen   = 60
	otherBodyLen = 61
)

// Mock implements ports.EncryptionService with fabricated tokens.
type Mock struct {
	encryptDelay time.Duration
	decryptDelay time.Duration
}

var _ ports.EncryptionService = (*Mock)(nil)

type Option func(*Mock)

// WithEncryptDelay sets the simulated latency of each Encrypt call.
func WithEncryptDelay(d time.Duration) Option {
	return func(m *Mock) {
		m.encryptDelay = d
	}
}

// WithDecryptDelay sets the simulated latency of Decrypt.
func WithDecryptDelay(d time.Duration) Option {
	return func(m *Mock) {
		m.decryptDelay = d
	}
}

// NewMock returns a mock with no delays unless configured.
func NewMock(opts ...Option) *Mock {
	m := &Mock{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PrefixFor returns the token prefix used for metric.
func PrefixFor(metric health.Metric) (string, bool) {
	switch metric {
	case health.MetricAge:
		return PrefixAge, true
	case health.MetricBloodPressure:
		return PrefixBloodPressure, true
	case health.MetricBloodSugar:
		return PrefixBloodSugar, true
	}
	return "", false
}

// MetricOf recognises which metric a token was produced for.
func MetricOf(ct health.Ciphertext) (health.Metric, bool) {
	s := string(ct)
	switch {
	case strings.HasPrefix(s, PrefixAge):
		return health.MetricAge, true
	case strings.HasPrefix(s, PrefixBloodPressure):
		return health.MetricBloodPressure, true
	case strings.HasPrefix(s, PrefixBloodSugar):
		return health.MetricBloodSugar, true
	}
	return "", false
}

// Encrypt seals value after the encrypt delay. Two calls with the same value
// yield different tokens.
func (m *Mock) Encrypt(ctx context.Context, value int, metric health.Metric) (health.Ciphertext, error) {
	prefix, ok := PrefixFor(metric)
	if !ok {
		return "", fmt.Errorf("%w: unsupported metric %q", sentinel.ErrMalformed, metric)
	}
	if err := latency.Wait(ctx, m.encryptDelay); err != nil {
		return "", err
	}

	bodyLen := otherBodyLen
	if metric == health.MetricAge {
		bodyLen = ageBodyLen
	}
	var salt fr.Element
	if _, err := salt.SetRandom(); err != nil {
		return "", fmt.Errorf("draw salt: %w", err)
	}
	body, err := commit(salt, value)
	if err != nil {
		return "", err
	}
	return health.Ciphertext(prefix + body[:bodyLen]), nil
}

// commit returns the hex MiMC digest of salt and value over the BN254 scalar
// field.
func commit(salt fr.Element, value int) (string, error) {
	var v fr.Element
	v.SetInt64(int64(value))

	h := mimc.NewMiMC()
	saltBytes := salt.Bytes()
	valueBytes := v.Bytes()
	if _, err := h.Write(saltBytes[:]); err != nil {
		return "", fmt.Errorf("hash salt: %w", err)
	}
	if _, err := h.Write(valueBytes[:]); err != nil {
		return "", fmt.Errorf("hash value: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decrypt echoes expected back after the decrypt delay. The mock has no key
// material, so the bit has to come from the caller.
func (m *Mock) Decrypt(ctx context.Context, ct health.Ciphertext, expected bool) (bool, error) {
	if !strings.HasPrefix(string(ct), "0x") || len(ct) <= 2 {
		return false, fmt.Errorf("%w: ciphertext %q is not a hex token", sentinel.ErrMalformed, ct)
	}
	if err := latency.Wait(ctx, m.decryptDelay); err != nil {
		return false, err
	}
	return expected, nil
}
