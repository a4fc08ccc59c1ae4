package steps

import (
	"context"
	"fmt"
	"maps"
)

// StepTypeNoop — тип пустого шага.
const StepTypeNoop = "noop"

// NoopStep — шаг без действия.
//
// Возвращает config.outputs как есть. Удобен как точка сборки
// зависимостей или для подстановки констант в шаблоны.
type NoopStep struct{}

// NewNoopStep создаёт новый NoopStep.
func NewNoopStep() *NoopStep {
	return &NoopStep{}
}

// Type возвращает тип шага.
func (s *NoopStep) Type() string {
	return StepTypeNoop
}

// Execute возвращает копию config.outputs.
func (s *NoopStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, err)
	}
	return NewResponse(maps.Clone(GetConfigMap(req.Config, "outputs"))), nil
}
