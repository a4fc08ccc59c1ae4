package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

// Runner выполняет один шаг. Реализуется executor.Executor.
type Runner interface {
	Execute(ctx context.Context, step *engine.Step, in *engine.Input) domain.Outcome
}

// Config — конфигурация Scheduler.
type Config struct {
	// Concurrency — максимальное число одновременно выполняемых шагов.
	// Значения < 1 приводятся к 1.
	Concurrency int

	// FailFast — после первого FAILED шага не запускать новые шаги.
	FailFast bool

	// Inputs — входные параметры цепочки, доступные каждому шагу.
	Inputs map[string]any

	// Env — переменные окружения для шаблонов.
	Env map[string]string

	// Observer получает события шагов (опционально).
	Observer Observer

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// Scheduler обходит граф зависимостей и запускает шаги на пуле воркеров.
//
// Все решения (что готово, что пропустить, когда остановиться) принимает
// один цикл, он же единственный владелец таблицы состояний. Воркеры
// только выполняют шаги через Runner и возвращают Outcome по каналу.
type Scheduler struct {
	runner      Runner
	concurrency int
	failFast    bool
	base        *engine.Context
	observer    Observer
	logger      *slog.Logger
}

// New создаёт новый Scheduler.
func New(runner Runner, cfg Config) *Scheduler {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := engine.NewContext(cfg.Inputs)
	for k, v := range cfg.Env {
		base.SetEnv(k, v)
	}

	return &Scheduler{
		runner:      runner,
		concurrency: concurrency,
		failFast:    cfg.FailFast,
		base:        base,
		observer:    observer,
		logger:      logger,
	}
}

// Concurrency возвращает размер пула воркеров.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// task — шаг, переданный воркеру.
type task struct {
	node  *engine.Node
	input *engine.Input
}

// completion — итог шага от воркера.
type completion struct {
	node    *engine.Node
	outcome domain.Outcome
}

// Run выполняет все шаги графа и возвращает их итоги в порядке завершения.
//
// Run завершается, когда у каждого шага терминальное состояние.
// Отмена ctx работает как fail-fast: новые шаги не запускаются,
// ещё не запущенные получают SKIPPED/CANCELLED, выполняющиеся получают
// отмену через свой контекст и дожидаются.
// Ошибка возвращается только при ErrInvariantViolation.
func (s *Scheduler) Run(ctx context.Context, g *engine.Graph) ([]domain.Outcome, error) {
	table := newStateTable(g)

	dispatch := make(chan task)
	results := make(chan completion, s.concurrency)

	// Воркеров не больше, чем шагов. running < concurrency и непустой ready
	// означают running < g.Len(), поэтому свободный воркер всегда есть.
	var wg sync.WaitGroup
	for range min(s.concurrency, g.Len()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(ctx, dispatch, results)
		}()
	}
	defer func() {
		close(dispatch)
		wg.Wait()
	}()

	stopping := false
	done := ctx.Done()

	cancelRun := func() {
		done = nil
		if stopping {
			return
		}
		stopping = true
		s.logger.Debug("run cancelled", "error", context.Cause(ctx))
		s.emitSkipped(table.skipAll(domain.ErrorKindCancelled, "run cancelled before step started"))
	}

	for {
		if ctx.Err() != nil {
			cancelRun()
		}

		// Запускаем готовые шаги, пока есть свободные воркеры
		for !stopping && table.running < s.concurrency && len(table.ready) > 0 {
			node := table.popReady()
			in := table.input(node, s.base)

			telemetry.WithStepID(s.logger, node.ID()).Debug("step dispatched", "running", table.running)
			s.observer.StepStarted(node.Step, time.Now())

			dispatch <- task{node: node, input: in}
		}

		if table.running == 0 {
			break
		}

		select {
		case c := <-results:
			s.handle(table, c)

			if s.failFast && !stopping && c.outcome.State == domain.StepStateFailed {
				stopping = true
				telemetry.WithStepID(s.logger, c.node.ID()).Debug("fail-fast triggered")
				s.emitSkipped(table.skipAll(domain.ErrorKindFailFast,
					fmt.Sprintf("run stopped after step %s failed", c.node.ID())))
			}

		case <-done:
			cancelRun()
		}
	}

	if table.open > 0 {
		return table.outcomes, fmt.Errorf("%w: no ready or running steps, but %v are not finished",
			ErrInvariantViolation, table.pending())
	}

	return table.outcomes, nil
}

// work — цикл воркера: выполняет шаги, пока dispatch не закрыт.
func (s *Scheduler) work(ctx context.Context, dispatch <-chan task, results chan<- completion) {
	for t := range dispatch {
		outcome := s.runner.Execute(ctx, t.node.Step, t.input)
		results <- completion{node: t.node, outcome: outcome}
	}
}

// handle обрабатывает завершение шага: обновляет таблицу,
// пропускает потомков упавшего шага.
func (s *Scheduler) handle(table *stateTable, c completion) {
	outcome := c.outcome
	outcome.StepID = c.node.ID()

	unblocked := table.complete(c.node, outcome)
	s.observer.StepFinished(outcome)

	s.logger.Debug("step finished",
		"step_id", outcome.StepID,
		"state", outcome.State,
		"duration", outcome.Duration(),
	)

	if outcome.State != domain.StepStateSucceeded {
		s.emitSkipped(table.skipDependents(c.node))
		return
	}

	for _, n := range unblocked {
		telemetry.WithStepID(s.logger, n.ID()).Debug("step ready")
	}
}

func (s *Scheduler) emitSkipped(outcomes []domain.Outcome) {
	for _, o := range outcomes {
		s.logger.Debug("step skipped", "step_id", o.StepID, "reason", o.Error.Kind)
		s.observer.StepFinished(o)
	}
}
