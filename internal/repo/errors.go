package repo

import "errors"

// Ошибки архива.
var (
	// ErrAlreadyExists — run с таким ID уже записан.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNilResult — передан nil RunResult.
	ErrNilResult = errors.New("nil run result")
)
