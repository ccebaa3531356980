package ranking

import "errors"

var (
	// ErrScorePanic is wrapped into a ScoreError when scoring a record panics.
	ErrScorePanic = errors.New("scoring panicked")

	// ErrInvalidScore indicates a scorer produced a value outside [0,100].
	ErrInvalidScore = errors.New("score out of range")

	// ErrSubmitFailed indicates a task could not be handed to the worker pool.
	ErrSubmitFailed = errors.New("failed to submit scoring task")

	// ErrScoreFuncRequired is returned when a nil score function is configured.
	ErrScoreFuncRequired = errors.New("score function required")
)
