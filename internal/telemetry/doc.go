// Package telemetry обеспечивает наблюдаемость run.
//
// Включает:
//   - logging.go — structured logging через slog (stderr, text или json)
//   - metrics.go — Prometheus метрики шагов и run
//
// Метрики подключаются к планировщику как Observer и к Run Controller
// как RunRecorder, и выгружаются в textfile или по /metrics.
package telemetry
