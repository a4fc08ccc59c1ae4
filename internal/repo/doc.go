// Package repo пишет архив истории run в PostgreSQL (pgx/v5).
//
// Таблицы:
//   - chain_runs          — итог run (статус, ошибка сборки, время)
//   - chain_step_outcomes — результат каждого шага в порядке завершения
//
// Архив включается настройкой history.database_url. Ошибки записи
// не влияют на статус run.
package repo
