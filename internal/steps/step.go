package steps

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = engine.ErrInvalidConfig

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrCommandFailed — команда завершилась с ненулевым кодом.
	ErrCommandFailed = errors.New("command failed")

	// ErrHTTPStatus — HTTP ответ с кодом >= 400.
	ErrHTTPStatus = errors.New("http error status")

	// ErrForcedFailure — шаг типа fail.
	ErrForcedFailure = errors.New("step failed")
)

// Step — интерфейс для типов шагов.
//
// Каждый тип шага (shell, http, delay, transform, fail, noop) реализует этот интерфейс.
// Compile превращает Step вместе с конфигом из chain-файла в engine.Action.
type Step interface {
	// Type возвращает тип шага.
	Type() string

	// Execute выполняет шаг и возвращает результат.
	// Шаг должен проверять ctx.Done(): по нему приходят таймаут и отмена run.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request — входные данные для выполнения шага.
type Request struct {
	// StepID — идентификатор шага.
	StepID string

	// Config — конфигурация шага (уже отрендеренная через engine.RenderConfig).
	Config map[string]any

	// TemplateContext — inputs цепочки и outputs зависимостей.
	TemplateContext *engine.Context

	// Attempt — номер попытки, начиная с 1.
	Attempt int
}

// Response — результат выполнения шага.
type Response struct {
	// Outputs — выходные данные шага.
	// Доступны в зависимых шагах через {{ .Steps.stepID.Outputs.field }}
	Outputs map[string]any
}

// NewRequest создаёт новый Request.
func NewRequest(stepID string, config map[string]any, tmplCtx *engine.Context) *Request {
	if config == nil {
		config = make(map[string]any)
	}
	if tmplCtx == nil {
		tmplCtx = engine.NewContext(nil)
	}
	return &Request{
		StepID:          stepID,
		Config:          config,
		TemplateContext: tmplCtx,
		Attempt:         1,
	}
}

// NewResponse создаёт новый Response с outputs.
func NewResponse(outputs map[string]any) *Response {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	return &Response{
		Outputs: outputs,
	}
}

// EmptyResponse возвращает пустой Response.
func EmptyResponse() *Response {
	return NewResponse(nil)
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetConfigDuration извлекает длительность из ключей "<prefix>_ms" и "<prefix>_sec".
// Секунды могут быть дробными.
func GetConfigDuration(config map[string]any, prefix string) time.Duration {
	if v, ok := config[prefix+"_sec"]; ok {
		switch n := v.(type) {
		case int:
			return time.Duration(n) * time.Second
		case int64:
			return time.Duration(n) * time.Second
		case float64:
			return time.Duration(n * float64(time.Second))
		}
	}
	if ms := GetConfigInt(config, prefix+"_ms"); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMap извлекает map из конфига.
func GetConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetConfigMapString извлекает map[string]string из конфига.
// Нестроковые значения пропускаются.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// GetConfigStringSlice извлекает []string из конфига.
func GetConfigStringSlice(config map[string]any, key string) []string {
	if v, ok := config[key]; ok {
		switch s := v.(type) {
		case []string:
			return s
		case []any:
			result := make([]string, 0, len(s))
			for _, item := range s {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	return nil
}
