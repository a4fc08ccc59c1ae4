package orchestrator

import "github.com/shaiso/SmartChainFlow/internal/domain"

// Aggregate вычисляет итоговый статус run по итогам шагов.
//
//   - SUCCESS — все total шагов SUCCEEDED (пустая цепочка тоже SUCCESS);
//   - FAILURE — ни один шаг не запускался;
//   - PARTIAL_FAILURE — что-то запускалось, но не всё успешно.
func Aggregate(outcomes []domain.Outcome, total int) domain.RunStatus {
	succeeded := 0
	attempted := false

	for _, o := range outcomes {
		if o.State == domain.StepStateSucceeded {
			succeeded++
		}
		if o.Attempted() {
			attempted = true
		}
	}

	switch {
	case succeeded == total:
		return domain.RunStatusSuccess
	case !attempted:
		return domain.RunStatusFailure
	default:
		return domain.RunStatusPartialFailure
	}
}
