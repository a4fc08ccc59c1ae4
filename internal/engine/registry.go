package engine

import (
	"fmt"
	"iter"
)

// Registry — реестр шагов цепочки.
//
// Хранит шаги в порядке регистрации. Порядок регистрации используется
// как tie-break при поиске циклов и при выборе готовых шагов.
// Не потокобезопасен: заполняется до старта run.
type Registry struct {
	steps []*Step
	index map[string]int
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// NewRegistryFrom создаёт реестр и регистрирует в нём шаги по порядку.
func NewRegistryFrom(steps ...*Step) (*Registry, error) {
	r := NewRegistry()
	for _, step := range steps {
		if err := r.Add(step); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add регистрирует шаг.
// Возвращает ErrDuplicateStepID, если шаг с таким ID уже есть.
func (r *Registry) Add(step *Step) error {
	if step == nil || step.ID == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}
	if step.Action == nil {
		return NewValidationError(step.ID, "action", "step has no action", ErrNilAction)
	}
	if _, exists := r.index[step.ID]; exists {
		return NewValidationError(step.ID, "id",
			fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateStepID)
	}

	r.index[step.ID] = len(r.steps)
	r.steps = append(r.steps, step)
	return nil
}

// Get возвращает шаг по ID.
// Возвращает ErrUnknownStep, если шаг не зарегистрирован.
func (r *Registry) Get(id string) (*Step, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return r.steps[i], nil
}

// Has проверяет, зарегистрирован ли шаг.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// All возвращает последовательность шагов в порядке регистрации.
// Последовательность ленивая и может обходиться повторно.
func (r *Registry) All() iter.Seq[*Step] {
	return func(yield func(*Step) bool) {
		for _, step := range r.steps {
			if !yield(step) {
				return
			}
		}
	}
}

// IDs возвращает ID шагов в порядке регистрации.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.steps))
	for i, step := range r.steps {
		ids[i] = step.ID
	}
	return ids
}

// Len возвращает количество шагов.
func (r *Registry) Len() int {
	return len(r.steps)
}
