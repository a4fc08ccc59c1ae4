package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/SmartChainFlow/internal/domain"
)

// uniqueViolation — SQLSTATE нарушения уникальности.
const uniqueViolation = "23505"

// TxBeginner открывает транзакцию. Реализуется *pgxpool.Pool и pgx.Tx.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RunRepo — архив истории run. Только запись: чтение истории
// выполняется SQL-запросами к таблицам напрямую.
//
// Реализует orchestrator.RunRecorder.
type RunRepo struct {
	db TxBeginner
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db TxBeginner) *RunRepo {
	return &RunRepo{db: db}
}

// RecordRun записывает итог run и результаты шагов в одной транзакции.
func (r *RunRepo) RecordRun(ctx context.Context, result *domain.RunResult) error {
	if result == nil {
		return ErrNilResult
	}

	stepIDs, err := json.Marshal(result.StepIDs)
	if err != nil {
		return fmt.Errorf("marshal step ids: %w", err)
	}

	rows, err := outcomeRows(result.Outcomes)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chain_runs (id, chain, status, step_ids, build_error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		result.RunID,
		result.Chain,
		string(result.Status),
		stepIDs,
		nullString(result.BuildErrorMessage),
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("run %s: %w", result.RunID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert run: %w", err)
	}

	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(`
				INSERT INTO chain_step_outcomes
					(run_id, step_id, position, state, outputs, error_kind, error_message, attempts, started_at, finished_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`,
				result.RunID,
				row.StepID,
				row.Position,
				row.State,
				row.Outputs,
				row.ErrorKind,
				row.ErrorMessage,
				row.Attempts,
				row.StartedAt,
				row.FinishedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert step outcomes: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Helpers ---

// outcomeRow — строка chain_step_outcomes.
type outcomeRow struct {
	StepID       string
	Position     int
	State        string
	Outputs      []byte
	ErrorKind    *string
	ErrorMessage *string
	Attempts     int
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// outcomeRows переводит Outcome в строки таблицы. Position — порядок завершения.
func outcomeRows(outcomes []domain.Outcome) ([]outcomeRow, error) {
	rows := make([]outcomeRow, 0, len(outcomes))
	for i, o := range outcomes {
		row := outcomeRow{
			StepID:     o.StepID,
			Position:   i,
			State:      string(o.State),
			Attempts:   o.Attempts,
			StartedAt:  o.StartedAt,
			FinishedAt: o.FinishedAt,
		}

		if o.Outputs != nil {
			data, err := json.Marshal(o.Outputs)
			if err != nil {
				return nil, fmt.Errorf("marshal outputs of %s: %w", o.StepID, err)
			}
			row.Outputs = data
		}

		if o.Error != nil {
			row.ErrorKind = nullString(string(o.Error.Kind))
			row.ErrorMessage = nullString(o.Error.Message)
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
