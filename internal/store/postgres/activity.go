package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spigell/broker-genie/internal/activity"
)

// ActivityRepo persists broker activity in the user_activity table.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Record(ctx context.Context, e activity.Entry) error {
	var details []byte
	if len(e.Details) > 0 {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_activity (id, user_id, activity_type, details, created_at) VALUES ($1, $2, $3, $4, $5)",
		e.ID, e.UserID, string(e.Type), details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepo) List(ctx context.Context, userID string) ([]activity.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, activity_type, details, created_at FROM user_activity WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var (
			e       activity.Entry
			kind    string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Type = activity.Type(kind)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode activity details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}
