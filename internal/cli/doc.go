// Package cli реализует команды SmartChainFlow.
//
// # Команды
//
//   - run CHAIN_FILE      — выполнить цепочку шагов
//   - validate CHAIN_FILE — проверить chain-файл и граф без выполнения
//   - plan CHAIN_FILE     — показать уровни графа без выполнения
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.), которая
// принимает *Globals — значения persistent-флагов -v/--verbose и --config,
// заполняемые cobra после парсинга.
//
// # Конфигурация
//
// Флаги run (--concurrency, --fail-fast, --step-timeout, --metrics-file)
// связаны с ключами config.Loader: явно заданный флаг переопределяет
// файл и переменные окружения.
//
// # Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter, статусы раскрашены lipgloss) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, логи и сообщения — в stderr.
// Это позволяет использовать pipe: smartchainflow run chain.yaml --json | jq .status
package cli
