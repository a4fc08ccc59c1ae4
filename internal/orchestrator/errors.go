package orchestrator

import "errors"

// Ошибки Run Controller.
var (
	// ErrBuildFailed — цепочку не удалось собрать: реестр или граф невалидны.
	ErrBuildFailed = errors.New("chain build failed")
)
