package domain

// Outcome is the variant tag of a StageResult.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial_failure"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// StageResult is returned by every agent invocation.
type StageResult struct {
	Outcome  Outcome
	Payload  Payload
	Warnings []PartialDataError
	Err      error
}

// Success carries a complete payload.
func Success(p Payload) StageResult {
	return StageResult{Outcome: OutcomeSuccess, Payload: p}
}

// Partial carries a usable payload plus warnings; without warnings it is a Success.
func Partial(p Payload, warnings ...PartialDataError) StageResult {
	if len(warnings) == 0 {
		return Success(p)
	}
	return StageResult{Outcome: OutcomePartial, Payload: p, Warnings: warnings}
}

// Failure carries the error that stopped the stage.
func Failure(err error) StageResult {
	return StageResult{Outcome: OutcomeFailure, Err: err}
}
