package sqlledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// Ledger implements store.Ledger over a database/sql handle. It is driver
// agnostic: both the MySQL and SQLite constructors return a *Ledger wrapping
// the same query set, since both drivers accept '?' placeholders.
type Ledger struct {
	db *sql.DB
}

func (l *Ledger) Append(ctx context.Context, rec domain.UsageRecord) error {
	totalTokens := rec.InputTokens + rec.OutputTokens
	var qs any
	if rec.QualityScore != nil {
		qs = *rec.QualityScore
	}
	_, err := l.db.ExecContext(ctx, insertRow,
		rec.ID, nullable(rec.UserID), string(rec.Operation), string(rec.Model),
		rec.InputTokens, rec.OutputTokens, totalTokens, rec.Cost, qs,
		rec.Attempts, rec.Success, nullable(rec.DocumentID), nullable(rec.GraphID),
		rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("sqlledger: append: %w", err)
	}
	return nil
}

func (l *Ledger) SumCostSince(ctx context.Context, userID string, since time.Time) (float64, error) {
	var total float64
	if err := l.db.QueryRowContext(ctx, sumCostSince, userID, since.UTC()).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlledger: sum cost: %w", err)
	}
	return total, nil
}

func (l *Ledger) RecordsSince(ctx context.Context, userID string, since time.Time) ([]domain.UsageRecord, error) {
	rows, err := l.db.QueryContext(ctx, selectRecordsSince, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlledger: records since: %w", err)
	}
	defer rows.Close()

	var out []domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		var userID, docID, graphID sql.NullString
		var qs sql.NullFloat64
		var success bool
		var op, model string
		if err := rows.Scan(&rec.ID, &userID, &op, &model, &rec.InputTokens,
			&rec.OutputTokens, &rec.Cost, &qs, &rec.Attempts, &success,
			&docID, &graphID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlledger: scan: %w", err)
		}
		rec.UserID = userID.String
		rec.DocumentID = docID.String
		rec.GraphID = graphID.String
		rec.Operation = domain.PromptType(op)
		rec.Model = domain.Model(model)
		rec.Success = success
		if qs.Valid {
			v := qs.Float64
			rec.QualityScore = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
