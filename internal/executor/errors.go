package executor

import "errors"

// Ошибки выполнения шага.
var (
	// ErrExecutionTimeout — шаг превысил таймаут.
	ErrExecutionTimeout = errors.New("step execution timeout")

	// ErrExecutionCancelled — run отменён во время выполнения шага.
	ErrExecutionCancelled = errors.New("step execution cancelled")

	// ErrStepPanicked — action запаниковал.
	ErrStepPanicked = errors.New("step panicked")
)
