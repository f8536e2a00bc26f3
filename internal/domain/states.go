package domain

// Recommendation lifecycle states.
const (
	RecStateLocked     = "locked"
	RecStateActive     = "active"
	RecStateCompleted  = "completed"
	RecStateVerified   = "verified"
	RecStateSkipped    = "skipped"
	RecStateInProgress = "in_progress"
)

// Recommendation scope.
const (
	RecTypeSiteWide     = "site_wide"
	RecTypePageSpecific = "page_specific"
)

// Validation outcomes recorded per (recommendation, scan) check.
const (
	OutcomeVerifiedComplete = "verified_complete"
	OutcomePartialProgress  = "partial_progress"
	OutcomeNotImplemented   = "not_implemented"
	OutcomeRegressed        = "regressed"
)

// User strategy modes.
const (
	ModeOptimization = "optimization"
	ModeElite        = "elite"
)

// Mode transition reasons.
const (
	ReasonScoreThresholdReached     = "score_threshold_reached"
	ReasonScoreDroppedBelowThreshold = "score_dropped_below_threshold"
	ReasonInitialScan               = "initial_scan"
)

// Validation status annotations carried on a recommendation row.
const (
	ValidationStatusAutoDetected = "auto_detected"
)

// IsResolvedState reports whether a state no longer counts as open work.
// skipped and verified are terminal; locked, active, and in_progress are open.
func IsResolvedState(state string) bool {
	return state == RecStateSkipped || state == RecStateVerified
}

// IsUnlockedState reports whether the user can act on a recommendation.
func IsUnlockedState(state string) bool {
	return state == RecStateActive || state == RecStateInProgress
}
