package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
	"github.com/shaiso/SmartChainFlow/internal/executor"
	"github.com/shaiso/SmartChainFlow/internal/scheduler"
	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

// RunRecorder получает итог каждого run: архив истории, публикация
// событий, метрики. Ошибка записи логируется и не меняет статус run.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *domain.RunResult) error
}

// RunObserver — Observer, которому нужен контекст run (run ID, имя цепочки).
// RunStarted вызывается после успешной сборки графа, до запуска первого шага.
type RunObserver interface {
	RunStarted(result *domain.RunResult)
}

// RunConfig — параметры одного run.
type RunConfig struct {
	// Chain — имя цепочки (для логов и отчёта).
	Chain string

	// Concurrency — максимум одновременно выполняемых шагов (< 1 → 1).
	Concurrency int

	// FailFast — не запускать новые шаги после первого FAILED.
	FailFast bool

	// StepTimeout — таймаут для шагов без собственного (0 — без ограничения).
	StepTimeout time.Duration

	// Inputs — входные параметры цепочки.
	Inputs map[string]any

	// Env — переменные окружения для шаблонов.
	Env map[string]string
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Observers получают события шагов (метрики, публикация событий).
	Observers []scheduler.Observer

	// Recorders получают итог run.
	Recorders []RunRecorder

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// Orchestrator — Run Controller: собирает граф, запускает планировщик,
// агрегирует итог.
//
// Orchestrator не хранит состояния между вызовами Run: всё состояние
// run живёт в планировщике и исчезает вместе с ним.
type Orchestrator struct {
	observers []scheduler.Observer
	recorders []RunRecorder
	logger    *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		observers: cfg.Observers,
		recorders: cfg.Recorders,
		logger:    logger,
	}
}

// RunChain регистрирует шаги по порядку и выполняет цепочку.
func RunChain(ctx context.Context, steps []*engine.Step, rc RunConfig) (*domain.RunResult, error) {
	return New(Config{}).RunChain(ctx, steps, rc)
}

// RunChain регистрирует шаги по порядку и выполняет цепочку.
// Ошибка регистрации (пустой или повторяющийся ID) даёт FAILURE с BuildError.
func (o *Orchestrator) RunChain(ctx context.Context, steps []*engine.Step, rc RunConfig) (*domain.RunResult, error) {
	reg := engine.NewRegistry()
	for _, step := range steps {
		if err := reg.Add(step); err != nil {
			result := o.newResult(rc, reg)
			return o.finish(ctx, result, nil, err), nil
		}
	}
	return o.Run(ctx, reg, rc)
}

// Run выполняет цепочку из реестра.
//
//  1. Строит граф. Ошибка сборки даёт FAILURE, ни один шаг не запускается.
//  2. Запускает планировщик до завершения всех шагов.
//  3. Агрегирует статус (см. Aggregate).
//
// Ошибка возвращается только при нарушении инварианта планировщика.
func (o *Orchestrator) Run(ctx context.Context, reg *engine.Registry, rc RunConfig) (*domain.RunResult, error) {
	result := o.newResult(rc, reg)
	logger := telemetry.WithChain(telemetry.WithRunID(o.logger, result.RunID.String()), result.Chain)

	graph, err := engine.BuildGraph(reg)
	if err != nil {
		return o.finish(ctx, result, nil, err), nil
	}

	for _, obs := range o.observers {
		if ro, ok := obs.(RunObserver); ok {
			ro.RunStarted(result)
		}
	}

	logger.Info("starting run",
		"steps", graph.Len(),
		"concurrency", max(rc.Concurrency, 1),
		"fail_fast", rc.FailFast,
	)

	exec := executor.New(executor.Config{
		DefaultTimeout: rc.StepTimeout,
		Logger:         logger,
	})

	sched := scheduler.New(exec, scheduler.Config{
		Concurrency: rc.Concurrency,
		FailFast:    rc.FailFast,
		Inputs:      rc.Inputs,
		Env:         rc.Env,
		Observer:    scheduler.Observers(o.observers),
		Logger:      logger,
	})

	outcomes, err := sched.Run(ctx, graph)
	if err != nil {
		logger.Error("scheduler failed", "error", err)
		return nil, fmt.Errorf("run %s: %w", result.RunID, err)
	}

	return o.finish(ctx, result, outcomes, nil), nil
}

// newResult создаёт RunResult с новым run ID.
func (o *Orchestrator) newResult(rc RunConfig, reg *engine.Registry) *domain.RunResult {
	return &domain.RunResult{
		RunID:     uuid.New(),
		Chain:     rc.Chain,
		StepIDs:   reg.IDs(),
		StartedAt: time.Now(),
	}
}

// finish агрегирует статус, логирует итог и передаёт его RunRecorder.
func (o *Orchestrator) finish(ctx context.Context, result *domain.RunResult, outcomes []domain.Outcome, buildErr error) *domain.RunResult {
	logger := telemetry.WithChain(telemetry.WithRunID(o.logger, result.RunID.String()), result.Chain)

	result.FinishedAt = time.Now()
	result.Outcomes = outcomes
	if result.Outcomes == nil {
		result.Outcomes = []domain.Outcome{}
	}

	if buildErr != nil {
		result.Status = domain.RunStatusFailure
		result.BuildError = fmt.Errorf("%w: %w", ErrBuildFailed, buildErr)
		result.BuildErrorMessage = buildErr.Error()
		logger.Error("chain build failed", "error", buildErr)
	} else {
		result.Status = Aggregate(outcomes, len(result.StepIDs))
		summary := result.Summary()
		logger.Info("run finished",
			"status", result.Status,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"duration", result.Duration(),
		)
	}

	// Запись итога не должна зависеть от отмены run
	recordCtx := context.WithoutCancel(ctx)
	for _, rec := range o.recorders {
		if err := rec.RecordRun(recordCtx, result); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("failed to record run", "error", err)
		}
	}

	return result
}
