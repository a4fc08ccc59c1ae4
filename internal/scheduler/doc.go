// Package scheduler обходит граф зависимостей и запускает шаги.
//
// Состояния шага:
//
//	PENDING → READY → RUNNING → SUCCEEDED | FAILED
//	PENDING | READY → SKIPPED
//
// Шаг становится READY, когда все его зависимости SUCCEEDED.
// Если зависимость FAILED или SKIPPED, шаг и все его потомки получают
// SKIPPED (UPSTREAM_FAILED). Среди готовых шагов первым запускается
// шаг, раньше зарегистрированный.
//
// Структура:
//   - scheduler.go — цикл принятия решений и пул воркеров
//   - state.go     — таблица состояний одного run
//   - observer.go  — события шагов для логов, метрик и публикации
//
// Использование:
//
//	sched := scheduler.New(executor.New(executor.Config{}), scheduler.Config{
//	    Concurrency: 4,
//	    FailFast:    true,
//	    Inputs:      inputs,
//	})
//	outcomes, err := sched.Run(ctx, graph)
package scheduler
