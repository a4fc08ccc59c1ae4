package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Config — конфигурация Executor.
type Config struct {
	// DefaultTimeout — таймаут для шагов без собственного (0 — без ограничения).
	DefaultTimeout time.Duration

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Now — источник времени (для тестов; если nil — time.Now).
	Now func() time.Time
}

// Executor выполняет action одного шага.
//
// Executor не хранит состояния между вызовами и безопасен
// для одновременного использования из нескольких воркеров.
type Executor struct {
	defaultTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Executor{
		defaultTimeout: cfg.DefaultTimeout,
		logger:         logger,
		now:            now,
	}
}

// result — то, что вернул action.
type result struct {
	outputs  map[string]any
	err      error
	panicked any
	stack    []byte
}

// Execute выполняет шаг и возвращает его Outcome.
//
// Action запускается в отдельной горутине. Если истёк таймаут или отменён ctx,
// Execute возвращается сразу, не дожидаясь action: его контекст отменён,
// а результат будет отброшен. Паника action превращается в FAILED/PANIC.
// Execute никогда не паникует.
func (e *Executor) Execute(ctx context.Context, step *engine.Step, in *engine.Input) domain.Outcome {
	if in == nil {
		in = &engine.Input{StepID: step.ID}
	}
	in.BeginAttempt(max(in.Attempt, 1))

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	var (
		actionCtx context.Context
		cancel    context.CancelFunc
	)
	if timeout > 0 {
		actionCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		actionCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	startedAt := e.now()
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{panicked: r, stack: debug.Stack()}
			}
		}()

		outputs, err := step.Action.Execute(actionCtx, in)
		done <- result{outputs: outputs, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-actionCtx.Done():
		// Action мог завершиться одновременно с таймаутом
		select {
		case res = <-done:
		default:
			res = result{err: actionCtx.Err()}
		}
	}

	finishedAt := e.now()
	outcome := domain.Outcome{
		StepID:     step.ID,
		Attempts:   max(in.Attempts(), 1),
		StartedAt:  &startedAt,
		FinishedAt: &finishedAt,
	}

	switch {
	case res.panicked != nil:
		e.logger.Debug("step panicked",
			"step_id", step.ID,
			"panic", res.panicked,
			"stack", string(res.stack),
		)
		outcome.State = domain.StepStateFailed
		outcome.Error = &domain.StepError{
			Kind:    domain.ErrorKindPanic,
			Message: fmt.Sprintf("%v: %v", ErrStepPanicked, res.panicked),
		}

	case res.err == nil:
		outcome.State = domain.StepStateSucceeded
		outcome.Outputs = res.outputs
		if outcome.Outputs == nil {
			outcome.Outputs = make(map[string]any)
		}

	default:
		outcome.State = domain.StepStateFailed
		outcome.Outputs = res.outputs
		outcome.Error = classify(ctx, actionCtx, res.err, timeout)
	}

	return outcome
}

// classify определяет категорию ошибки action.
// Ошибка после отмены родительского ctx — CANCELLED, после дедлайна шага — TIMEOUT.
func classify(parent, actionCtx context.Context, err error, timeout time.Duration) *domain.StepError {
	switch {
	case parent.Err() != nil:
		return &domain.StepError{
			Kind:    domain.ErrorKindCancelled,
			Message: fmt.Sprintf("%v: %v", ErrExecutionCancelled, context.Cause(parent)),
		}
	case errors.Is(actionCtx.Err(), context.DeadlineExceeded):
		return &domain.StepError{
			Kind:    domain.ErrorKindTimeout,
			Message: fmt.Sprintf("%v after %s", ErrExecutionTimeout, timeout),
		}
	default:
		return &domain.StepError{
			Kind:    domain.ErrorKindAction,
			Message: err.Error(),
		}
	}
}
