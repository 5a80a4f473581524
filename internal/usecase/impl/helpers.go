package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"

	deliverycontext "tenantauth/internal/delivery/context"
	"tenantauth/internal/domain/service"

	"github.com/pkg/errors"
)

const stateBytes = 32

type noopMetrics struct{}

func (noopMetrics) AuthEvent(string, string)     {}
func (noopMetrics) CleanupDeleted(string, int64) {}

func authMetricsOrNoop(m service.AuthMetrics) service.AuthMetrics {
	if m == nil {
		return noopMetrics{}
	}

	return m
}

func outcome(err error) string {
	if err != nil {
		return service.OutcomeFailure
	}

	return service.OutcomeSuccess
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateState returns 32 random bytes, base64url encoded without padding.
func generateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// requestLogger returns a request-scoped logger if available, otherwise the fallback.
func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, fallback)
}
