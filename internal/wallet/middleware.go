package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "shieldcare/pkg/domain-errors"
	"shieldcare/pkg/platform/httputil"
)

// TokenValidator validates a bearer session token.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

type contextKeyAddress struct{}

// ContextKeyAddress holds the connected wallet address on authenticated requests.
var ContextKeyAddress = contextKeyAddress{}

// AddressFrom returns the connected wallet address stored on ctx.
func AddressFrom(ctx context.Context) string {
	address, ok := ctx.Value(ContextKeyAddress).(string)
	if !ok {
		return ""
	}
	return address
}

// RequireWallet rejects requests without a valid wallet session token.
func RequireWallet(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing wallet token")
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "connect a wallet first"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid wallet token", "error", err)
				httputil.WriteError(w, err)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyAddress, claims.Address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
