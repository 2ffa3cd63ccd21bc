// Package metrics records sitemap generation and verification outcomes.
package metrics

import "time"

// Outcome labels a generation result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Recorder is implemented by metric backends. All methods must be safe for
// concurrent use.
type Recorder interface {
	ObserveGeneration(d time.Duration, urls int, outcome Outcome)
	IncVerifyResult(ok bool)
}

// NoopRecorder drops everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveGeneration(time.Duration, int, Outcome) {}
func (NoopRecorder) IncVerifyResult(bool)                           {}

// OutcomeOf maps an error to its outcome label.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}
