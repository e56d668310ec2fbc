package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads the catalog from the medical_conditions table. Relevance
// search runs on the generated tsvector column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const conditionColumns = `name, symptoms, description, recommendations, source, severity`

func (s *PostgresStore) FindByRelevance(ctx context.Context, query string, limit int) ([]MatchCandidate, error) {
	tsquery := buildTSQuery(query)
	if tsquery == "" || limit <= 0 {
		return []MatchCandidate{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+conditionColumns+`, ts_rank(search_vector, q) AS score
		FROM medical_conditions, to_tsquery('english', $1) q
		WHERE search_vector @@ q
		ORDER BY score DESC, id
		LIMIT $2`, tsquery, limit)
	if err != nil {
		return nil, fmt.Errorf("relevance query: %w", err)
	}
	defer rows.Close()

	out := []MatchCandidate{}
	for rows.Next() {
		var (
			c        Condition
			severity string
			score    float32
		)
		if err := rows.Scan(&c.Name, &c.Symptoms, &c.Description, &c.Recommendations, &c.Source, &severity, &score); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Severity = Severity(severity)
		out = append(out, MatchCandidate{Condition: c, Score: float64(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relevance rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]Condition, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conditionColumns+` FROM medical_conditions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	out := []Condition{}
	for rows.Next() {
		var (
			c        Condition
			severity string
		)
		if err := rows.Scan(&c.Name, &c.Symptoms, &c.Description, &c.Recommendations, &c.Source, &severity); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		c.Severity = Severity(severity)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM medical_conditions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count conditions: %w", err)
	}
	return n, nil
}

// InsertMany writes conditions in one transaction. Names already present are skipped.
func (s *PostgresStore) InsertMany(ctx context.Context, conditions []Condition) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for _, c := range conditions {
		n, err := c.Normalize()
		if err != nil {
			return 0, err
		}
		// recommendations is NOT NULL; a nil slice would encode as NULL
		if n.Recommendations == nil {
			n.Recommendations = []string{}
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO medical_conditions (name, symptoms, description, recommendations, source, severity, search_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (name) DO NOTHING`,
			n.Name, n.Symptoms, n.Description, n.Recommendations, n.Source, string(n.Severity), n.searchText())
		if err != nil {
			return 0, fmt.Errorf("insert %q: %w", n.Name, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// buildTSQuery turns free text into an OR query of plain words, so the
// lowercased context never reaches to_tsquery with operators in it.
func buildTSQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range uniqueTerms(words) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return strings.Join(terms, " | ")
}
