package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/shaiso/SmartChainFlow/internal/engine"
)

const (
	// StepTypeTransform — тип шага трансформации.
	StepTypeTransform = "transform"

	configMappings = "mappings"
)

// TransformStep — шаг трансформации данных.
//
// Собирает outputs из результатов зависимостей через Go templates.
//
// Конфигурация:
//
//	config:
//	  mappings:
//	    total: "{{ len .Steps.fetch.Outputs.items }}"
//	    first: "{{ index .Steps.fetch.Outputs.items 0 }}"
//	    version: "{{ .Steps.build.Outputs.stdout | trim }}"
//
// Outputs: результаты рендеринга. Значения, похожие на JSON (числа, bool,
// объекты, массивы), декодируются.
type TransformStep struct{}

// NewTransformStep создаёт новый TransformStep.
func NewTransformStep() *TransformStep {
	return &TransformStep{}
}

// Type возвращает тип шага.
func (s *TransformStep) Type() string {
	return StepTypeTransform
}

// Execute выполняет трансформацию данных.
func (s *TransformStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, err)
	}

	mappings := GetConfigMapString(req.Config, configMappings)
	if len(mappings) == 0 {
		return EmptyResponse(), nil
	}

	tmplCtx := req.TemplateContext
	if tmplCtx == nil {
		tmplCtx = engine.NewContext(nil)
	}

	// Сортируем ключи, чтобы ошибка была детерминированной
	outputs := make(map[string]any, len(mappings))
	for _, key := range slices.Sorted(maps.Keys(mappings)) {
		rendered, err := engine.Render(mappings[key], tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", key, err)
		}
		outputs[key] = parseValue(rendered)
	}

	return NewResponse(outputs), nil
}

// parseValue пытается распарсить строку как JSON.
// Если не получается — возвращает строку как есть.
func parseValue(value string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err == nil {
		return obj
	}

	var arr []any
	if err := json.Unmarshal([]byte(value), &arr); err == nil {
		return arr
	}

	var num json.Number
	if err := json.Unmarshal([]byte(value), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	return value
}
