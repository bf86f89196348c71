package metrics

import "time"

// Resolution outcomes reported by the anonymous session resolver.
const (
	ResolutionAdopted   = "adopted"
	ResolutionCreated   = "created"
	ResolutionExpired   = "expired"
	ResolutionNotFound  = "not_found"
	ResolutionFailed    = "failed"
	ResolutionThrottled = "throttled"
	ResolutionSkipped   = "skipped"
)

// Reasons reported with AccessDeniedTotal.
const (
	DeniedNotAdmin        = "not_admin"
	DeniedSubjectMismatch = "subject_mismatch"
)

// RecordSessionCreated increments the created-session counter.
func RecordSessionCreated() {
	SessionsCreatedTotal.Inc()
}

// RecordSessionResolution records one resolver outcome.
func RecordSessionResolution(outcome string) {
	SessionResolutionsTotal.WithLabelValues(outcome).Inc()
}

// UpdateSessionsActive sets the active-session gauge.
func UpdateSessionsActive(count int64) {
	SessionsActive.Set(float64(count))
}

func RecordUsageIncrement(feature string) {
	UsageIncrementsTotal.WithLabelValues(feature).Inc()
}

func RecordUsageDenied(feature string) {
	UsageDenialsTotal.WithLabelValues(feature).Inc()
}

// RecordMigration records a migration outcome and, on success, the number of
// records moved per content kind.
func RecordMigration(result string, fitChecks, conversations int) {
	MigrationsTotal.WithLabelValues(result).Inc()
	if fitChecks > 0 {
		MigrationItemsMovedTotal.WithLabelValues("fit_check").Add(float64(fitChecks))
	}
	if conversations > 0 {
		MigrationItemsMovedTotal.WithLabelValues("conversation").Add(float64(conversations))
	}
}

// RecordMigrationDuration records how long the migrate transaction took.
func RecordMigrationDuration(d time.Duration) {
	MigrationDuration.Observe(d.Seconds())
}

// RecordReaperRun records a cleanup sweep.
// Status is "success", "partial" (some sessions failed) or "failure".
func RecordReaperRun(status string, sessionsDeleted int) {
	ReaperRunsTotal.WithLabelValues(status).Inc()
	if sessionsDeleted > 0 {
		ReaperSessionsDeletedTotal.Add(float64(sessionsDeleted))
	}
}

// SetCircuitBreakerState publishes a breaker's state; see CircuitBreakerState.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordCircuitBreakerRejection(name string) {
	CircuitBreakerRejectionsTotal.WithLabelValues(name).Inc()
}

func RecordTokenVerification(role string, ok bool) {
	result := "success"
	if !ok {
		result = "invalid"
	}
	TokenVerificationsTotal.WithLabelValues(role, result).Inc()
}

func RecordAccessDenied(role, reason string) {
	AccessDeniedTotal.WithLabelValues(role, reason).Inc()
}
