// Package trigger maps drift verdicts and fatal error classes onto process
// exit codes for the external scheduler. It is a thin deterministic mapping
// only; all analytical work happens upstream in the drift detector.
package trigger

import (
	"errors"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/drift"
)

// Exit codes 0..2 communicate the retrain decision; codes 10 and above are
// reserved for fatal input errors so schedulers can tell "retrain" apart
// from "the run itself is broken".
const (
	ExitOK      = 0
	ExitAlert   = 1
	ExitRetrain = 2

	ExitInputMissing    = 10
	ExitSchemaInvalid   = 11
	ExitDegenerateSplit = 12
	ExitFault           = 13
)

// Policy is the fixed business rule applied to a verdict. The zero value
// retrains only on high drift and alerts on moderate.
type Policy struct {
	RetrainOnModerate bool
}

// Decide maps a drift verdict to an exit code under the given policy.
func Decide(verdict string, policy Policy) int {
	switch verdict {
	case drift.VerdictHigh:
		return ExitRetrain
	case drift.VerdictModerate:
		if policy.RetrainOnModerate {
			return ExitRetrain
		}
		return ExitAlert
	default:
		return ExitOK
	}
}

// FatalCode classifies a run-aborting error into the reserved exit range.
func FatalCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInputMissing):
		return ExitInputMissing
	case errors.Is(err, domain.ErrSchemaInvalid):
		return ExitSchemaInvalid
	case errors.Is(err, domain.ErrDegenerateSplit):
		return ExitDegenerateSplit
	default:
		return ExitFault
	}
}
