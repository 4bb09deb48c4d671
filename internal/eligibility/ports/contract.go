package ports

//go:generate mockgen -source=contract.go -destination=mocks/contract_mock.go -package=mocks

import (
	"context"

	"shieldcare/internal/health"
)

// ContractService defines the interface for the on-chain eligibility check.
// This port lets the workflow submit ciphertexts without depending on an RPC
// client or a specific chain.
type ContractService interface {
	// CheckEligibility evaluates the encrypted figures and returns the
	// transaction receipt.
	//
	// plain carries the plaintext figures because the mock contract cannot
	// compute on its fake ciphertexts. A real contract must never receive it.
	CheckEligibility(ctx context.Context, ct health.EncryptedInput, plain health.Input) (*health.Receipt, error)
}
