package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
	"text/template"
)

// Context — данные, доступные шагу во время выполнения.
//
// Action получает его через Input, а конфиги шагов из chain-файла
// рендерятся через Go templates:
//   - {{ .Inputs.param_name }}
//   - {{ .Steps.step_id.Outputs.field }}
//   - {{ .Env.VAR_NAME }}
//
// Steps содержит только прямые зависимости шага: шаг видит outputs тех,
// от кого зависит, и ничего больше.
type Context struct {
	// Inputs — входные параметры цепочки.
	Inputs map[string]any `json:"inputs"`

	// Steps — результаты зависимостей шага.
	Steps map[string]*StepContext `json:"steps"`

	// Env — переменные окружения.
	Env map[string]string `json:"env"`
}

// StepContext — результат зависимости для использования в шаблонах.
type StepContext struct {
	// Outputs — выходные данные шага.
	Outputs map[string]any `json:"outputs"`

	// Status — состояние шага (всегда "SUCCEEDED" для зависимостей).
	Status string `json:"status"`
}

// NewContext создаёт новый контекст с входными параметрами.
func NewContext(inputs map[string]any) *Context {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	return &Context{
		Inputs: inputs,
		Steps:  make(map[string]*StepContext),
		Env:    make(map[string]string),
	}
}

// AddStepResult добавляет результат шага в контекст.
func (c *Context) AddStepResult(stepID string, outputs map[string]any, status string) {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	c.Steps[stepID] = &StepContext{
		Outputs: outputs,
		Status:  status,
	}
}

// Output возвращает значение output зависимости.
func (c *Context) Output(stepID, key string) (any, bool) {
	sc, ok := c.Steps[stepID]
	if !ok {
		return nil, false
	}
	v, ok := sc.Outputs[key]
	return v, ok
}

// Input возвращает входной параметр цепочки.
func (c *Context) Input(key string) (any, bool) {
	v, ok := c.Inputs[key]
	return v, ok
}

// SetEnv устанавливает переменную окружения.
func (c *Context) SetEnv(key, value string) {
	c.Env[key] = value
}

// LoadEnv копирует переменные окружения процесса с указанным префиксом.
// Пустой префикс копирует всё окружение.
func (c *Context) LoadEnv(prefix string) {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		c.Env[key] = value
	}
}

// WithInputs возвращает копию контекста с объединёнными inputs.
// Значения из extra перекрывают существующие.
func (c *Context) WithInputs(extra map[string]any) *Context {
	merged := make(map[string]any, len(c.Inputs)+len(extra))
	maps.Copy(merged, c.Inputs)
	maps.Copy(merged, extra)
	return &Context{
		Inputs: merged,
		Steps:  maps.Clone(c.Steps),
		Env:    maps.Clone(c.Env),
	}
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// fromJSON — парсит JSON строку
	"fromJSON": func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	},

	// default — значение по умолчанию, если val пустой
	"default": func(def, val any) any {
		if isEmpty(val) {
			return def
		}
		return val
	},

	// coalesce — первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if !isEmpty(v) {
				return v
			}
		}
		return nil
	},

	"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	"split":     func(sep, s string) []string { return strings.Split(s, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Render рендерит строковый шаблон с контекстом.
//
// Строки без "{{" возвращаются как есть.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice, остальные типы возвращает как есть.
func RenderValue(value any, ctx *Context) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil

	case string:
		return Render(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Render(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			rendered, err := Render(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// RenderConfig рендерит конфигурацию шага.
func RenderConfig(config map[string]any, ctx *Context) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(config, ctx)
	if err != nil {
		return nil, err
	}

	result, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrTemplateRender, rendered)
	}

	return result, nil
}
