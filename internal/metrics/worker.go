package metrics

import "time"

// SweepCompleted records a successful sweep that removed n sessions.
func SweepCompleted(n int64, duration time.Duration) {
	SweepsTotal.WithLabelValues("completed").Inc()
	SweepDuration.Observe(duration.Seconds())
	if n > 0 {
		SessionsSweptTotal.Add(float64(n))
	}
}

// SweepFailed records a sweep that returned an error.
func SweepFailed() {
	SweepsTotal.WithLabelValues("failed").Inc()
}
