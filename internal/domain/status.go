package domain

// StepState — состояние шага во время run.
//
// Жизненный цикл:
//
//	PENDING → READY → RUNNING → SUCCEEDED
//	                          ↘ FAILED
//	PENDING/READY → SKIPPED (упала зависимость, fail-fast или отмена)
type StepState string

const (
	// StepStatePending — шаг ждёт завершения зависимостей.
	StepStatePending StepState = "PENDING"

	// StepStateReady — все зависимости успешны, шаг ждёт свободного воркера.
	StepStateReady StepState = "READY"

	// StepStateRunning — шаг выполняется.
	StepStateRunning StepState = "RUNNING"

	// StepStateSucceeded — шаг успешно завершён.
	StepStateSucceeded StepState = "SUCCEEDED"

	// StepStateFailed — action шага вернул ошибку, превысил таймаут или запаниковал.
	StepStateFailed StepState = "FAILED"

	// StepStateSkipped — шаг не запускался.
	StepStateSkipped StepState = "SKIPPED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s StepState) IsTerminal() bool {
	switch s {
	case StepStateSucceeded, StepStateFailed, StepStateSkipped:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление StepState.
func (s StepState) String() string {
	return string(s)
}

// RunStatus — итоговый статус run.
type RunStatus string

const (
	// RunStatusSuccess — все шаги завершились успешно.
	RunStatusSuccess RunStatus = "SUCCESS"

	// RunStatusPartialFailure — часть шагов запускалась, но не все завершились успешно.
	RunStatusPartialFailure RunStatus = "PARTIAL_FAILURE"

	// RunStatusFailure — ни один шаг не запускался (ошибка построения графа или отмена до старта).
	RunStatusFailure RunStatus = "FAILURE"
)

// String возвращает строковое представление RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// ErrorKind — категория ошибки шага.
type ErrorKind string

const (
	// ErrorKindAction — action вернул ошибку.
	ErrorKindAction ErrorKind = "ACTION_ERROR"

	// ErrorKindTimeout — истёк таймаут шага.
	ErrorKindTimeout ErrorKind = "TIMEOUT"

	// ErrorKindPanic — action запаниковал.
	ErrorKindPanic ErrorKind = "PANIC"

	// ErrorKindCancelled — run был отменён (SIGINT/SIGTERM).
	ErrorKindCancelled ErrorKind = "CANCELLED"

	// ErrorKindUpstreamFailed — шаг пропущен, т.к. упала или пропущена зависимость.
	ErrorKindUpstreamFailed ErrorKind = "UPSTREAM_FAILED"

	// ErrorKindFailFast — шаг пропущен из-за fail-fast.
	ErrorKindFailFast ErrorKind = "FAIL_FAST"
)
