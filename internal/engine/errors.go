package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки реестра и графа шагов.
var (
	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — шаг с таким ID уже зарегистрирован.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrUnknownStep — шаг с таким ID не зарегистрирован.
	ErrUnknownStep = errors.New("unknown step")

	// ErrUnknownDependency — шаг зависит от незарегистрированного шага.
	ErrUnknownDependency = errors.New("step depends on unknown step")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrNilAction — у шага нет action.
	ErrNilAction = errors.New("step has no action")
)

// Ошибки chain-файла.
var (
	// ErrEmptySteps — цепочка не содержит шагов.
	ErrEmptySteps = errors.New("chain spec has no steps")

	// ErrUnknownStepType — неизвестный тип шага.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrInvalidConfig — некорректная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrUnsupportedFormat — неизвестный формат chain-файла.
	ErrUnsupportedFormat = errors.New("unsupported chain file format")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// DependencyError — шаг StepID объявил зависимость MissingID, которой нет в реестре.
type DependencyError struct {
	StepID    string
	MissingID string
}

// Error реализует интерфейс error.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s depends on unknown step %s", e.StepID, e.MissingID)
}

// Unwrap возвращает ErrUnknownDependency.
func (e *DependencyError) Unwrap() error {
	return ErrUnknownDependency
}

// CycleError — цикл в зависимостях.
//
// Path начинается и заканчивается одним и тем же шагом: [A B C A] означает,
// что A зависит от B, B от C, а C от A.
type CycleError struct {
	Path []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

// Unwrap возвращает ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
