package reconciler

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Outcome is what happened to a single record during a phase.
type Outcome string

const (
	OutcomeExpired   Outcome = "expired"
	OutcomeRemoved   Outcome = "removed"
	OutcomeConverged Outcome = "converged"
	// OutcomeRenameCleaned counts old hostnames deleted by the strict rename retry
	OutcomeRenameCleaned Outcome = "renameCleaned"
	// OutcomeSkipped means the record changed or vanished between the query and the write
	OutcomeSkipped Outcome = "skipped"
	// OutcomeProviderFailed leaves the record as it was; it is retried next cycle
	OutcomeProviderFailed Outcome = "providerFailed"
	// OutcomeStoreFailed aborts the record for this cycle only
	OutcomeStoreFailed Outcome = "storeFailed"
	OutcomeFailed      Outcome = "failed"
)

// Result counts record outcomes over a phase or a whole cycle.
type Result map[Outcome]int

func (r Result) Add(other Result) {
	for outcome, n := range other {
		r[outcome] += n
	}
}

// Outcomes lists the outcomes that occurred, sorted by name.
func (r Result) Outcomes() []Outcome {
	outcomes := maps.Keys(r)
	slices.Sort(outcomes)
	return outcomes
}

func (r Result) Fields() logrus.Fields {
	fields := logrus.Fields{}
	for outcome, n := range r {
		fields[string(outcome)] = n
	}
	return fields
}
