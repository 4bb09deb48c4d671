// Package contract simulates the health-insurance eligibility contract. It
// never touches a chain: receipts are fabricated after a fixed delay.
package contract

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/sha3"

	"shieldcare/internal/eligibility/ports"
	"shieldcare/internal/health"
	"shieldcare/pkg/platform/latency"
	"shieldcare/pkg/platform/randhex"
	"shieldcare/pkg/platform/sentinel"
)

const (
	// DefaultAddress is the address the demo contract claims to live at.
	DefaultAddress = "0x742d35Cc6634C0532925a3b8D4C9db7C4E2d7a8B"

	// ResultPrefix marks result ciphertexts.
	ResultPrefix = "0xRESULT"

	resultBodyLen = 58
	baseBlock     = 18_000_000
	blockSpread   = 1_000_000
)

// Mock implements ports.ContractService.
type Mock struct {
	address string
	delay   time.Duration
}

var _ ports.ContractService = (*Mock)(nil)

type Option func(*Mock)

// WithDelay sets the simulated contract latency.
func WithDelay(d time.Duration) Option {
	return func(m *Mock) {
		m.delay = d
	}
}

func WithAddress(address string) Option {
	return func(m *Mock) {
		m.address = address
	}
}

func NewMock(opts ...Option) *Mock {
	m := &Mock{address: DefaultAddress}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Address returns the contract address receipts are attributed to.
func (m *Mock) Address() string {
	return m.address
}

// CheckEligibility decides on the plaintext figures, since the ciphertexts
// carry no information. The ciphertexts only feed the transaction hash.
func (m *Mock) CheckEligibility(ctx context.Context, ct health.EncryptedInput, plain health.Input) (*health.Receipt, error) {
	if !ct.IsComplete() {
		return nil, fmt.Errorf("%w: all three ciphertexts are required", sentinel.ErrMalformed)
	}
	if err := latency.Wait(ctx, m.delay); err != nil {
		return nil, err
	}

	txHash, err := transactionHash(ct)
	if err != nil {
		return nil, err
	}
	body, err := randhex.String(resultBodyLen)
	if err != nil {
		return nil, err
	}

	conditions := health.Evaluate(plain)
	return &health.Receipt{
		TransactionHash:  txHash,
		ResultCiphertext: health.Ciphertext(ResultPrefix + body),
		ContractAddress:  m.address,
		BlockNumber:      baseBlock + uint64(rand.IntN(blockSpread)),
		IsEligible:       conditions.Eligible(),
		Conditions:       conditions,
	}, nil
}

// transactionHash is Keccak-256 over the ciphertexts and a random nonce, the
// same shape as an Ethereum transaction hash.
func transactionHash(ct health.EncryptedInput) (string, error) {
	nonce, err := randhex.Bytes(32)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	for _, metric := range health.Metrics {
		h.Write([]byte(ct.Get(metric)))
	}
	h.Write(nonce)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}
