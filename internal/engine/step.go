package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Action — исполняемая единица шага.
//
// Action получает Input с контекстом шаблонов (inputs цепочки и outputs
// зависимостей) и возвращает outputs шага. Ошибка означает провал шага.
// Action должен проверять ctx.Done(): по нему приходят таймаут и отмена run.
type Action interface {
	Execute(ctx context.Context, in *Input) (map[string]any, error)
}

// ActionFunc — адаптер обычной функции к интерфейсу Action.
type ActionFunc func(ctx context.Context, in *Input) (map[string]any, error)

// Execute вызывает f(ctx, in).
func (f ActionFunc) Execute(ctx context.Context, in *Input) (map[string]any, error) {
	return f(ctx, in)
}

// Input — входные данные action.
type Input struct {
	// StepID — идентификатор шага.
	StepID string

	// Context — контекст для шаблонов: inputs цепочки и outputs зависимостей.
	Context *Context

	// Attempt — номер попытки (начиная с 1). Меняется через BeginAttempt.
	Attempt int

	// attempts дублирует Attempt для чтения из другой горутины:
	// executor читает его, когда таймаут прервал action.
	attempts atomic.Int32
}

// BeginAttempt отмечает начало попытки n.
func (in *Input) BeginAttempt(n int) {
	in.Attempt = n
	in.attempts.Store(int32(n))
}

// Attempts возвращает номер последней начатой попытки.
// Безопасен для вызова из любой горутины.
func (in *Input) Attempts() int {
	return int(in.attempts.Load())
}

// Step — шаг цепочки.
//
// ID и DependsOn не меняются после регистрации. Состояние шага хранится
// не здесь, а в таблице состояний планировщика.
type Step struct {
	// ID — уникальный идентификатор шага.
	ID string

	// Name — человекочитаемое имя (опционально).
	Name string

	// DependsOn — ID шагов, которые должны успешно завершиться до старта.
	DependsOn []string

	// Action — что выполнять.
	Action Action

	// Timeout — таймаут шага. 0 — используется таймаут по умолчанию из конфигурации.
	Timeout time.Duration
}

// NewStep создаёт шаг с action-функцией.
func NewStep(id string, fn ActionFunc, dependsOn ...string) *Step {
	return &Step{
		ID:        id,
		DependsOn: dependsOn,
		Action:    fn,
	}
}

// DisplayName возвращает Name, а если он пуст — ID.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
