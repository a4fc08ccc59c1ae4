package scheduler

import (
	"time"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Observer получает события жизненного цикла шагов.
//
// Методы вызываются из цикла принятия решений планировщика, по одному
// за раз. Реализация не должна блокироваться надолго: пока Observer
// работает, новые шаги не запускаются.
type Observer interface {
	// StepStarted вызывается перед передачей шага воркеру.
	StepStarted(step *engine.Step, at time.Time)

	// StepFinished вызывается для каждого терминального состояния шага:
	// SUCCEEDED, FAILED или SKIPPED.
	StepFinished(outcome domain.Outcome)
}

// NopObserver — Observer, который ничего не делает.
type NopObserver struct{}

// StepStarted ничего не делает.
func (NopObserver) StepStarted(*engine.Step, time.Time) {}

// StepFinished ничего не делает.
func (NopObserver) StepFinished(domain.Outcome) {}

// Observers объединяет несколько Observer в один.
// События рассылаются в порядке перечисления. nil элементы пропускаются.
type Observers []Observer

// StepStarted рассылает событие всем Observer.
func (o Observers) StepStarted(step *engine.Step, at time.Time) {
	for _, obs := range o {
		if obs != nil {
			obs.StepStarted(step, at)
		}
	}
}

// StepFinished рассылает событие всем Observer.
func (o Observers) StepFinished(outcome domain.Outcome) {
	for _, obs := range o {
		if obs != nil {
			obs.StepFinished(outcome)
		}
	}
}
