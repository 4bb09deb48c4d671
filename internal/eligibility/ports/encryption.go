package ports

//go:generate mockgen -source=encryption.go -destination=mocks/encryption_mock.go -package=mocks

import (
	"context"

	"shieldcare/internal/health"
)

// EncryptionService defines the client-side encryption boundary used by the
// eligibility workflow. Implementations must be safe for concurrent Encrypt
// calls; the workflow encrypts the three figures in parallel.
type EncryptionService interface {
	// Encrypt turns a plaintext figure into an opaque ciphertext token.
	// Tokens for different metrics must be distinguishable for display.
	Encrypt(ctx context.Context, value int, metric health.Metric) (health.Ciphertext, error)

	// Decrypt recovers the eligibility bit from a result ciphertext.
	// expected is the plaintext bit the mock echoes back; a real
	// implementation ignores it.
	Decrypt(ctx context.Context, ct health.Ciphertext, expected bool) (bool, error)
}
