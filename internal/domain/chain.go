package domain

// ChainSpec — описание цепочки шагов (содержимое chain-файла).
//
// Это "программа" для SmartChainFlow: набор шагов и зависимостей между ними.
// Из ChainSpec строится реестр шагов (engine.Registry), а из реестра — граф.
type ChainSpec struct {
	// Version — версия формата файла (для обратной совместимости).
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Name — имя цепочки (например, "build-and-ship").
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description — описание назначения цепочки.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Inputs — входные параметры со значениями по умолчанию.
	// Доступны в шаблонах как {{ .Inputs.name }}, переопределяются через --input.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Defaults — настройки по умолчанию для всех шагов.
	Defaults *StepDefaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Steps — шаги в порядке регистрации.
	// Порядок важен: он определяет tie-break при планировании.
	Steps []StepDef `json:"steps" yaml:"steps"`
}

// StepDefaults — настройки по умолчанию для шагов.
type StepDefaults struct {
	// Retry — политика повторных попыток.
	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`

	// TimeoutSec — таймаут выполнения в секундах (0 — без ограничения).
	TimeoutSec float64 `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// StepDef — определение шага в chain-файле.
type StepDef struct {
	// ID — уникальный идентификатор шага в рамках цепочки.
	ID string `json:"id" yaml:"id"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Type — тип шага: "shell", "http", "delay", "transform", "fail", "noop".
	Type string `json:"type" yaml:"type"`

	// DependsOn — шаги, которые должны успешно завершиться до старта этого шага.
	// Порядок объявления сохраняется (используется при поиске циклов).
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Config — конфигурация шага (зависит от типа).
	// Строковые значения рендерятся как Go templates перед запуском.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	// Retry — политика повторных попыток, переопределяет defaults.retry.
	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`

	// TimeoutSec — таймаут шага, переопределяет defaults.timeout_sec.
	TimeoutSec float64 `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// RetryPolicy — политика повторных попыток.
//
// Ядро само ничего не повторяет: политика превращается в обёртку над action
// (см. steps.WithRetry).
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
}

// EffectiveRetry возвращает политику retry для шага с учётом defaults.
func (s *ChainSpec) EffectiveRetry(step *StepDef) *RetryPolicy {
	if step.Retry != nil {
		return step.Retry
	}
	if s.Defaults != nil {
		return s.Defaults.Retry
	}
	return nil
}

// EffectiveTimeoutSec возвращает таймаут шага с учётом defaults.
func (s *ChainSpec) EffectiveTimeoutSec(step *StepDef) float64 {
	if step.TimeoutSec > 0 {
		return step.TimeoutSec
	}
	if s.Defaults != nil {
		return s.Defaults.TimeoutSec
	}
	return 0
}
