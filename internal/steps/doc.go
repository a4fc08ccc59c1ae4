// Package steps содержит встроенные типы шагов chain-файла.
//
// # Обзор
//
// Каждый тип шага реализует интерфейс Step:
//
//	type Step interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) (*Response, error)
//	}
//
// Request содержит уже отрендеренный конфиг и контекст шаблонов
// (inputs цепочки и outputs зависимостей). Response содержит outputs,
// доступные зависимым шагам как {{ .Steps.<id>.Outputs.<key> }}.
//
// # Типы шагов
//
//   - shell     — команда через sh -c (shell.go)
//   - http      — HTTP запрос, код >= 400 считается ошибкой (http.go)
//   - delay     — пауза с поддержкой отмены (delay.go)
//   - transform — сборка outputs через шаблоны (transform.go)
//   - fail      — всегда ошибка, для проверки веток отказа (fail.go)
//   - noop      — возвращает config.outputs (noop.go)
//
// # Компиляция
//
// Compile (compile.go) превращает domain.ChainSpec в engine.Registry:
// каждый StepDef связывается с реализацией через Bind и, при наличии
// retry политики, оборачивается в WithRetry (retry.go).
//
//	spec, _ := engine.LoadSpecFile("chain.yaml")
//	reg, err := steps.Compile(spec, steps.DefaultRegistry(), logger)
package steps
