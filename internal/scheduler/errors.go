package scheduler

import "errors"

// ErrInvariantViolation — внутренняя ошибка планировщика: готовых шагов нет,
// ничего не выполняется, но остались незавершённые шаги.
// Для проверенного графа недостижима. Не повторяется.
var ErrInvariantViolation = errors.New("scheduler invariant violation")
