// Package context carries request-scoped values between middleware, handlers and services.
// Echo-only values live on echo.Context; values services need also travel on context.Context.
package context

// ContextKey namespaces the keys stored by this package.
type ContextKey string

const (
	KeyRequestID ContextKey = "request_id"
	KeyLogger    ContextKey = "logger"
	KeyPrincipal ContextKey = "principal"

	// HeaderXRequestID is echoed back on every response.
	HeaderXRequestID = "X-Request-Id"
)
