package steps

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Значения backoff по умолчанию.
const (
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 30 * time.Second
)

// WithRetry оборачивает action повторными попытками по политике.
//
// Таймаут шага покрывает все попытки вместе с паузами между ними.
// Отмена контекста прерывает ожидание и возвращает последнюю ошибку.
// Ошибки конфигурации (ErrInvalidConfig) не повторяются.
func WithRetry(action engine.Action, policy *domain.RetryPolicy, logger *slog.Logger) engine.Action {
	if policy == nil || policy.MaxAttempts <= 1 {
		return action
	}
	if logger == nil {
		logger = slog.Default()
	}

	return engine.ActionFunc(func(ctx context.Context, in *engine.Input) (map[string]any, error) {
		var (
			outputs map[string]any
			err     error
		)

		for attempt := 1; ; attempt++ {
			in.BeginAttempt(attempt)
			outputs, err = action.Execute(ctx, in)
			if err == nil {
				return outputs, nil
			}

			if attempt >= policy.MaxAttempts || errors.Is(err, ErrInvalidConfig) || ctx.Err() != nil {
				return outputs, err
			}

			delay := calculateBackoff(attempt, policy)
			logger.Debug("retrying step",
				"step_id", in.StepID,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return outputs, err
			}
		}
	})
}

// calculateBackoff вычисляет задержку перед следующей попыткой.
// attempt — номер завершившейся попытки (начиная с 1).
func calculateBackoff(attempt int, policy *domain.RetryPolicy) time.Duration {
	if policy == nil {
		return defaultInitialDelay
	}

	initialDelay := time.Duration(policy.InitialDelayMs) * time.Millisecond
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}

	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	delay := initialDelay
	if policy.Backoff == "exponential" {
		// delay = initialDelay * 2^(attempt-1)
		for i := 1; i < attempt && delay < maxDelay; i++ {
			delay *= 2
		}
	}

	return min(delay, maxDelay)
}
