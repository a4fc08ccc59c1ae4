// Package executor выполняет action отдельного шага.
//
// Executor оборачивает вызов action таймаутом, перехватом паники и
// отменой, и превращает результат в domain.Outcome:
//
//	ошибка action        → FAILED / ACTION_ERROR
//	истёк таймаут шага   → FAILED / TIMEOUT
//	паника               → FAILED / PANIC
//	отмена run (ctx)     → FAILED / CANCELLED
//
// Таймаут шага: собственный Step.Timeout, иначе Config.DefaultTimeout,
// иначе без ограничения. Action, который не реагирует на отмену ctx,
// оставляется работать в фоне: воркер освобождается сразу.
package executor
