package domain

import (
	"fmt"
	"time"
)

// StepError — ошибка шага с категорией.
type StepError struct {
	// Kind — категория ошибки.
	Kind ErrorKind `json:"kind"`

	// Message — текст ошибки.
	Message string `json:"message"`
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Outcome — результат одного шага в run.
//
// Outcome создаётся Execution Engine (для запущенных шагов) или планировщиком
// (для пропущенных) и больше не меняется.
type Outcome struct {
	// StepID — ID шага.
	StepID string `json:"step_id"`

	// State — финальное состояние: SUCCEEDED, FAILED или SKIPPED.
	State StepState `json:"state"`

	// Outputs — выходные данные шага.
	// Доступны зависимым шагам через {{ .Steps.<id>.Outputs.<key> }}.
	// У FAILED шага могут содержать частичный результат (stdout, status_code).
	Outputs map[string]any `json:"outputs,omitempty"`

	// Error — ошибка (для FAILED) или причина пропуска (для SKIPPED).
	Error *StepError `json:"error,omitempty"`

	// Attempts — число попыток, сделанных action (1, если retry не настроен).
	Attempts int `json:"attempts,omitempty"`

	// StartedAt — время начала выполнения. Nil для пропущенных шагов.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
func (o *Outcome) Duration() time.Duration {
	if o.StartedAt == nil || o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(*o.StartedAt)
}

// Attempted возвращает true, если шаг реально запускался.
func (o *Outcome) Attempted() bool {
	return o.StartedAt != nil
}

// NewSkippedOutcome создаёт Outcome для пропущенного шага.
func NewSkippedOutcome(stepID string, kind ErrorKind, message string) Outcome {
	now := time.Now()
	return Outcome{
		StepID:     stepID,
		State:      StepStateSkipped,
		Error:      &StepError{Kind: kind, Message: message},
		FinishedAt: &now,
	}
}
