// Package orchestrator реализует Run Controller.
//
// Orchestrator выполняет одну цепочку за вызов:
//
//	reg → engine.BuildGraph → scheduler.Run → Aggregate → RunResult
//
// Итоговый статус:
//   - SUCCESS — все шаги SUCCEEDED;
//   - PARTIAL_FAILURE — хотя бы один шаг запускался, но не все успешны;
//   - FAILURE — ни один шаг не запускался (ошибка сборки, отмена до старта).
//
// Использование как библиотеки:
//
//	result, err := orchestrator.RunChain(ctx, []*engine.Step{
//	    engine.NewStep("fetch", fetch),
//	    engine.NewStep("build", build, "fetch"),
//	}, orchestrator.RunConfig{Concurrency: 2})
//	if err != nil {
//	    // внутренняя ошибка планировщика
//	}
//	if err := result.Err(); err != nil {
//	    // run неуспешен
//	}
//
// Observers и Recorders подключают метрики (telemetry), публикацию
// событий (mq) и архив истории (repo). Observer, реализующий RunObserver,
// дополнительно получает run ID до запуска первого шага.
package orchestrator
