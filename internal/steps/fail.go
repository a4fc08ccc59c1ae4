package steps

import (
	"context"
	"fmt"
)

// StepTypeFail — тип шага, который всегда завершается ошибкой.
const StepTypeFail = "fail"

// FailStep — шаг, который всегда падает с сообщением из config.message.
// Нужен для проверки веток отказа в цепочках.
type FailStep struct{}

// NewFailStep создаёт новый FailStep.
func NewFailStep() *FailStep {
	return &FailStep{}
}

// Type возвращает тип шага.
func (s *FailStep) Type() string {
	return StepTypeFail
}

// Execute возвращает ошибку ErrForcedFailure.
func (s *FailStep) Execute(_ context.Context, req *Request) (*Response, error) {
	msg := GetConfigString(req.Config, "message")
	if msg == "" {
		return nil, ErrForcedFailure
	}
	return nil, fmt.Errorf("%w: %s", ErrForcedFailure, msg)
}
