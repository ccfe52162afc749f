package metrics

import "time"

// JobCompleted records a successful job run.
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a failed run. Permanent failures are counted apart from
// runs that will be retried, so alerting can key on the former.
func JobFailed(jobType string, permanent bool, duration time.Duration) {
	status := "retrying"
	if permanent {
		status = "failed"
	}
	JobsTotal.WithLabelValues(jobType, status).Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// PeriodicEnqueueFailed records a scheduled job that could not be queued.
func PeriodicEnqueueFailed(name string) {
	JobsTotal.WithLabelValues(name, "enqueue_failed").Inc()
}
