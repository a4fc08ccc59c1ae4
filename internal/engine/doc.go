// Package engine содержит модель цепочки шагов.
//
// Включает:
//   - step.go     — шаг и интерфейс Action
//   - registry.go — реестр шагов в порядке регистрации
//   - graph.go    — построение графа зависимостей, поиск циклов, уровни
//   - template.go — контекст шага и рендеринг Go templates ({{ .Inputs.x }})
//   - parser.go   — чтение chain-файлов (YAML/JSON) и их валидация
//
// Engine отвечает за структуру цепочки. Выполнение шагов находится
// в пакетах scheduler и executor.
package engine
