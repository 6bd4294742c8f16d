package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/sketchiq/internal/db"
)

// Store provides persistence for attempts.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new attempt. If a.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, a Attempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (
			id, timestamp, kind, depth, instruction, candidate, outcome,
			error, model, input_tokens, output_tokens, cost_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Timestamp.UTC().Format(time.DateTime),
		string(a.Kind),
		a.Depth,
		a.Instruction,
		a.Candidate,
		string(a.Outcome),
		a.Error,
		a.Model,
		a.InputTokens,
		a.OutputTokens,
		a.CostUSD,
	)
	if err != nil {
		return "", fmt.Errorf("inserting attempt: %w", err)
	}
	return a.ID, nil
}

// MarkReverted records that the user discarded the candidate of attempt id.
func (s *Store) MarkReverted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET outcome = ? WHERE id = ?`, string(OutcomeReverted), id)
	if err != nil {
		return fmt.Errorf("updating attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("attempt %s not found", id)
	}
	return nil
}

// QueryFilter controls which attempts are returned by Query.
type QueryFilter struct {
	Kind    Kind
	Outcome Outcome
	Since   *time.Time
	Limit   int
	Offset  int
}

// Query returns attempts matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Attempt, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := "SELECT id, timestamp, kind, depth, instruction, candidate, outcome, error, model, input_tokens, output_tokens, cost_usd FROM attempts"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Summarize counts attempts per outcome and totals their cost.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*), COALESCE(SUM(cost_usd), 0) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("summarizing attempts: %w", err)
	}
	defer rows.Close()

	sum := &Summary{ByOutcome: make(map[Outcome]int)}
	for rows.Next() {
		var (
			outcome string
			count   int
			cost    float64
		)
		if err := rows.Scan(&outcome, &count, &cost); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.ByOutcome[Outcome(outcome)] = count
		sum.Total += count
		sum.CostUSD += cost
	}
	return sum, rows.Err()
}

func scanAttempt(rows *sql.Rows) (*Attempt, error) {
	var (
		a    Attempt
		ts   string
		kind string
		out  string
	)
	if err := rows.Scan(&a.ID, &ts, &kind, &a.Depth, &a.Instruction, &a.Candidate, &out,
		&a.Error, &a.Model, &a.InputTokens, &a.OutputTokens, &a.CostUSD); err != nil {
		return nil, fmt.Errorf("scanning attempt: %w", err)
	}
	// The driver hands DATETIME back either verbatim or as RFC 3339.
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		a.Timestamp = t
	} else if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		a.Timestamp = t
	}
	a.Kind = Kind(kind)
	a.Outcome = Outcome(out)
	return &a, nil
}
