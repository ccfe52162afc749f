package metrics

import "time"

// ChallengeIssued records a newly issued challenge.
func ChallengeIssued(verificationType string) {
	ChallengesIssued.WithLabelValues(verificationType).Inc()
}

// ChallengeChecked records the outcome of a code check. outcome is
// "success" or a lowercased error code.
func ChallengeChecked(verificationType, outcome string) {
	ChallengeChecks.WithLabelValues(verificationType, outcome).Inc()
}

// SessionEvent records a session lifecycle event.
func SessionEvent(event string) {
	SessionEvents.WithLabelValues(event).Inc()
}

// SessionsReaped records sessions removed by the reaper.
func SessionsReaped(n int) {
	if n > 0 {
		SessionEvents.WithLabelValues("reaped").Add(float64(n))
	}
}

// OwnershipDenied records a forbidden access attempt.
func OwnershipDenied(entity string) {
	OwnershipDenials.WithLabelValues(entity).Inc()
}

// CustomerResolved records the multiplicity of a contact lookup.
func CustomerResolved(result string) {
	CustomerResolutions.WithLabelValues(result).Inc()
}

// CRMRequest records one CRM API call.
func CRMRequest(operation, status string, duration time.Duration) {
	CRMRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// NotificationSent records an outbound message attempt.
func NotificationSent(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	NotificationsSent.WithLabelValues(channel, status).Inc()
}
