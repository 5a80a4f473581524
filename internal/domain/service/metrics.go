package service

// Outcome labels shared by authentication metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics counts authentication flow outcomes.
type AuthMetrics interface {
	AuthEvent(event, outcome string)
}

// CleanupMetrics records how many expired rows a cleanup run removed.
type CleanupMetrics interface {
	CleanupDeleted(kind string, count int64)
}
