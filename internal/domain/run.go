package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunResult — итог выполнения цепочки.
//
// Создаётся Run Controller'ом в конце run и больше не изменяется.
type RunResult struct {
	// RunID — уникальный идентификатор run.
	RunID uuid.UUID `json:"run_id"`

	// Chain — имя цепочки.
	Chain string `json:"chain,omitempty"`

	// Status — итоговый статус.
	Status RunStatus `json:"status"`

	// Outcomes — результаты шагов в порядке завершения.
	Outcomes []Outcome `json:"outcomes"`

	// StepIDs — ID шагов в порядке регистрации.
	StepIDs []string `json:"step_ids"`

	// BuildError — ошибка построения графа. Если задана, ни один шаг не запускался.
	BuildError error `json:"-"`

	// BuildErrorMessage — текст BuildError для JSON вывода и архива.
	BuildErrorMessage string `json:"build_error,omitempty"`

	// StartedAt — время начала run.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения run.
	FinishedAt time.Time `json:"finished_at"`
}

// Duration возвращает продолжительность run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome возвращает результат шага по ID.
func (r *RunResult) Outcome(stepID string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.StepID == stepID {
			return o, true
		}
	}
	return Outcome{}, false
}

// State возвращает финальное состояние шага.
// Для шагов без результата (например, при ошибке сборки) возвращает PENDING.
func (r *RunResult) State(stepID string) StepState {
	if o, ok := r.Outcome(stepID); ok {
		return o.State
	}
	return StepStatePending
}

// Summary — сводка по результатам run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Summary считает шаги по финальным состояниям.
func (r *RunResult) Summary() Summary {
	s := Summary{Total: len(r.StepIDs)}
	for _, o := range r.Outcomes {
		switch o.State {
		case StepStateSucceeded:
			s.Succeeded++
		case StepStateFailed:
			s.Failed++
		case StepStateSkipped:
			s.Skipped++
		}
	}
	return s
}

// ErrRunFailed — run завершился не со статусом SUCCESS.
var ErrRunFailed = errors.New("chain run failed")

// StepFailure — ошибка run, описывающая первый неуспешный шаг.
type StepFailure struct {
	Status  RunStatus
	Outcome Outcome
}

// Error реализует интерфейс error.
func (e *StepFailure) Error() string {
	if e.Outcome.Error == nil {
		return fmt.Sprintf("%s: step %q %s", e.Status, e.Outcome.StepID, e.Outcome.State)
	}
	return fmt.Sprintf("%s: step %q %s: %s",
		e.Status, e.Outcome.StepID, e.Outcome.State, e.Outcome.Error)
}

// Unwrap возвращает ErrRunFailed.
func (e *StepFailure) Unwrap() error {
	return ErrRunFailed
}

// Err возвращает ошибку для CLI: nil при SUCCESS, ошибку сборки графа,
// либо StepFailure для первого упавшего шага в порядке регистрации.
// Если ни один шаг не упал (например, все пропущены из-за отмены),
// описывается первый пропущенный шаг.
func (r *RunResult) Err() error {
	if r.Status == RunStatusSuccess {
		return nil
	}
	if r.BuildError != nil {
		return fmt.Errorf("%w: %w", ErrRunFailed, r.BuildError)
	}

	for _, want := range []StepState{StepStateFailed, StepStateSkipped} {
		for _, id := range r.StepIDs {
			if o, ok := r.Outcome(id); ok && o.State == want {
				return &StepFailure{Status: r.Status, Outcome: o}
			}
		}
	}

	return fmt.Errorf("%w: %s", ErrRunFailed, r.Status)
}
