package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/symptom-checker/internal/model"
)

// PostgresLog appends entries to the query_history table. Answers and the
// analysis are stored as jsonb.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Record(ctx context.Context, entry model.QueryLogEntry) error {
	entry = prepare(entry, time.Now().UTC())

	answers, err := json.Marshal(entry.ClarificationAnswers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var analysis []byte
	if entry.AnalysisResult != nil {
		if analysis, err = json.Marshal(entry.AnalysisResult); err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO query_history
			(id, symptom, clarification_answers, analysis_result, is_emergency, ip_address, user_agent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Symptom, answers, analysis, entry.IsEmergency,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]model.QueryLogEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, symptom, clarification_answers, analysis_result, is_emergency, ip_address, user_agent, created_at, updated_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent query log: %w", err)
	}
	defer rows.Close()

	out := []model.QueryLogEntry{}
	for rows.Next() {
		var (
			e        model.QueryLogEntry
			answers  []byte
			analysis []byte
		)
		if err := rows.Scan(&e.ID, &e.Symptom, &answers, &analysis, &e.IsEmergency,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &e.ClarificationAnswers); err != nil {
				return nil, fmt.Errorf("unmarshal answers: %w", err)
			}
		}
		if len(analysis) > 0 {
			var r model.AnalysisResult
			if err := json.Unmarshal(analysis, &r); err != nil {
				return nil, fmt.Errorf("unmarshal analysis: %w", err)
			}
			e.AnalysisResult = &r
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent rows: %w", err)
	}
	return out, nil
}

func (l *PostgresLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, `SELECT count(*) FROM query_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query log: %w", err)
	}
	return n, nil
}

func (l *PostgresLog) CountEmergencies(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, `SELECT count(*) FROM query_history WHERE is_emergency`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count emergencies: %w", err)
	}
	return n, nil
}
