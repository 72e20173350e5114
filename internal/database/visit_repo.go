package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/tempinbox/pkg/models"
)

// Append records a visit
func (db *DB) Append(ctx context.Context, v models.Visit) error {
	query := `
		INSERT INTO visits (visited_at, mailbox, ip, user_agent)
		VALUES (?, ?, ?, ?)
	`
	visitedAt := v.Time
	if visitedAt.IsZero() {
		visitedAt = time.Now()
	}

	_, err := db.ExecContext(ctx, query,
		visitedAt.UTC(),
		v.Mailbox,
		v.IP,
		v.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// Recent returns at most n visits, newest first
func (db *DB) Recent(ctx context.Context, n int) ([]models.Visit, error) {
	if n <= 0 {
		return nil, nil
	}

	var visits []models.Visit
	query := `SELECT id, visited_at, mailbox, ip, user_agent FROM visits ORDER BY id DESC LIMIT ?`
	if err := db.SelectContext(ctx, &visits, query, n); err != nil {
		return nil, fmt.Errorf("failed to get visits: %w", err)
	}
	return visits, nil
}
