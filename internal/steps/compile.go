package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Compile превращает chain spec в реестр шагов.
//
// Для каждого StepDef находит реализацию по type, привязывает к ней
// конфиг (рендерится перед каждой попыткой) и оборачивает retry политикой.
// Шаги регистрируются в порядке chain-файла. Ошибки структуры
// (пустые шаги, неизвестный тип, дубликаты ID) возвращаются сразу;
// ссылки depends_on и циклы проверяет engine.BuildGraph.
func Compile(spec *domain.ChainSpec, types *Registry, logger *slog.Logger) (*engine.Registry, error) {
	if err := engine.Validate(spec, types.Known()); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := engine.NewRegistry()
	for i := range spec.Steps {
		def := &spec.Steps[i]

		impl, err := types.Get(def.Type)
		if err != nil {
			return nil, engine.NewValidationError(def.ID, "type", err.Error(), engine.ErrUnknownStepType)
		}

		action := WithRetry(Bind(impl, def.Config), spec.EffectiveRetry(def), logger)

		step := &engine.Step{
			ID:        def.ID,
			Name:      def.Name,
			DependsOn: def.DependsOn,
			Action:    action,
			Timeout:   seconds(spec.EffectiveTimeoutSec(def)),
		}
		if err := reg.Add(step); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Bind привязывает конфиг к реализации шага и возвращает engine.Action.
// Строковые значения конфига рендерятся с контекстом шага при каждом вызове.
func Bind(impl Step, config map[string]any) engine.Action {
	return engine.ActionFunc(func(ctx context.Context, in *engine.Input) (map[string]any, error) {
		tmplCtx := in.Context
		if tmplCtx == nil {
			tmplCtx = engine.NewContext(nil)
		}

		rendered, err := engine.RenderConfig(config, tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		req := NewRequest(in.StepID, rendered, tmplCtx)
		if in.Attempt > 0 {
			req.Attempt = in.Attempt
		}

		resp, err := impl.Execute(ctx, req)
		if resp == nil {
			return nil, err
		}
		return resp.Outputs, err
	})
}

func seconds(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}
