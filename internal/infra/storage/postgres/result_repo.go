package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

type resultRow struct {
	ID           string         `db:"id"`
	NodeID       string         `db:"node_id"`
	Action       string         `db:"action"`
	ActionType   string         `db:"action_type"`
	Success      bool           `db:"success"`
	DurationNs   int64          `db:"duration_ns"`
	ErrorMessage sql.NullString `db:"error_message"`
	Details      []byte         `db:"details"`
	Attempts     int            `db:"attempts"`
	CompletedAt  time.Time      `db:"completed_at"`
}

func (row *resultRow) toDomain() (*domain.RecoveryResult, error) {
	r := &domain.RecoveryResult{
		ID:           row.ID,
		NodeID:       row.NodeID,
		Action:       row.Action,
		ActionType:   domain.ActionType(row.ActionType),
		Success:      row.Success,
		Duration:     time.Duration(row.DurationNs),
		ErrorMessage: row.ErrorMessage.String,
		Attempts:     row.Attempts,
		Timestamp:    row.CompletedAt,
	}
	if len(row.Details) > 0 {
		if err := json.Unmarshal(row.Details, &r.Details); err != nil {
			return nil, fmt.Errorf("failed to decode details for %s: %w", row.ID, err)
		}
	}
	return r, nil
}

// ResultRepo implements storage.ResultRepository using PostgreSQL.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new PostgreSQL result repository.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save inserts a result. Saving the same ID twice is a no-op.
func (r *ResultRepo) Save(ctx context.Context, res *domain.RecoveryResult) error {
	details := []byte("{}")
	if len(res.Details) > 0 {
		var err error
		if details, err = json.Marshal(res.Details); err != nil {
			return fmt.Errorf("failed to encode details: %w", err)
		}
	}

	query := `
		INSERT INTO recovery_results
			(id, node_id, action, action_type, success, duration_ns, error_message, details, attempts, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		res.ID,
		res.NodeID,
		res.Action,
		string(res.ActionType),
		res.Success,
		int64(res.Duration),
		sql.NullString{String: res.ErrorMessage, Valid: res.ErrorMessage != ""},
		string(details),
		res.Attempts,
		res.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save recovery result: %w", err)
	}
	return nil
}

// Recent returns the newest results for a node, oldest first.
func (r *ResultRepo) Recent(ctx context.Context, nodeID string, limit int) ([]*domain.RecoveryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT * FROM (
			SELECT id, node_id, action, action_type, success, duration_ns,
			       error_message, details, attempts, completed_at
			FROM recovery_results
			WHERE node_id = $1
			ORDER BY completed_at DESC
			LIMIT $2
		) recent
		ORDER BY completed_at ASC
	`
	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, query, nodeID, limit); err != nil {
		return nil, fmt.Errorf("failed to query recovery results: %w", err)
	}

	out := make([]*domain.RecoveryResult, 0, len(rows))
	for i := range rows {
		res, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Count returns the number of stored results for a node.
func (r *ResultRepo) Count(ctx context.Context, nodeID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM recovery_results WHERE node_id = $1`, nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to count recovery results: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes results completed before the cutoff.
func (r *ResultRepo) DeleteOlderThan(ctx context.Context, nodeID string, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM recovery_results WHERE node_id = $1 AND completed_at < $2`,
		nodeID,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune recovery results: %w", err)
	}
	return res.RowsAffected()
}
