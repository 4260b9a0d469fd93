package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/models"
)

// InsertMaterialization claims a billing period for a template or loan.
// A second claim for the same period fails with ErrDuplicate.
func (c conn) InsertMaterialization(ctx context.Context, m *models.Materialization) error {
	ts := now()
	query := `
		INSERT INTO materializations (user_id, source_kind, source_id, period, expense_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := c.queryRow(ctx, query, m.UserID, m.SourceKind, m.SourceID, m.Period, m.ExpenseID, ts).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %d already materialized for %s: %w", m.SourceKind, m.SourceID, m.Period, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert materialization: %w", err)
	}
	m.CreatedAt = ts
	return nil
}

// MaterializationExists reports whether the period is already claimed
func (c conn) MaterializationExists(ctx context.Context, userID int64, kind string, sourceID int64, period string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM materializations
		WHERE user_id = ? AND source_kind = ? AND source_id = ? AND period = ?`
	var n int
	if err := c.queryRow(ctx, query, userID, kind, sourceID, period).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check materialization: %w", err)
	}
	return n > 0, nil
}

// ListMaterializations returns the claims made for one template or loan
func (c conn) ListMaterializations(ctx context.Context, userID int64, kind string, sourceID int64) ([]models.Materialization, error) {
	query := `
		SELECT id, user_id, source_kind, source_id, period, expense_id, created_at
		FROM materializations
		WHERE user_id = ? AND source_kind = ? AND source_id = ?
		ORDER BY period`
	rows, err := c.query(ctx, query, userID, kind, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materializations: %w", err)
	}
	defer rows.Close()

	var out []models.Materialization
	for rows.Next() {
		var m models.Materialization
		if err := rows.Scan(&m.ID, &m.UserID, &m.SourceKind, &m.SourceID, &m.Period, &m.ExpenseID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan materialization: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
