// Package metrics provides Prometheus instrumentation for berarelay.
package metrics

import "time"

// RunFinished records the outcome of a relay run.
func RunFinished(result string) {
	if !enabled {
		return
	}
	runsTotal.WithLabelValues(result).Inc()
}

// StepDuration records how long a pipeline step took.
func StepDuration(step string, d time.Duration) {
	if !enabled {
		return
	}
	stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// NameResolved records which fallback candidate produced the contract name.
func NameResolved(strategy, source string) {
	if !enabled {
		return
	}
	nameResolutionTotal.WithLabelValues(strategy, source).Inc()
}

// VerificationSubmitted records the explorer status of a submission.
func VerificationSubmitted(status string) {
	if !enabled {
		return
	}
	verificationSubmitTotal.WithLabelValues(status).Inc()
}
