package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/spigell/broker-genie/internal/clients"
)

const clientColumns = `id, COALESCE(user_id, ''), full_name, COALESCE(gender, ''), COALESCE(date_of_birth::text, ''),
	COALESCE(zip_code, ''), COALESCE(state, ''), height, weight, health_conditions, medications, created_at`

const dependentColumns = `id, client_id, relationship, full_name, COALESCE(gender, ''), COALESCE(date_of_birth::text, ''),
	height, weight, health_conditions, medications`

// ClientRepo implements clients.Repository.
type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// Create stores the client and its dependents atomically.
func (r *ClientRepo) Create(ctx context.Context, c *clients.Client) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin client insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (id, user_id, full_name, gender, date_of_birth, zip_code, state, height, weight,
			health_conditions, medications, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, nullString(c.UserID), c.FullName, nullString(c.Gender), nullString(c.DateOfBirth),
		nullString(c.ZipCode), nullString(c.State), nullFloat(c.Height), nullFloat(c.Weight),
		fromSet(c.HealthConditions), fromSet(c.Medications), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	for i, d := range c.Dependents {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dependents (id, client_id, position, relationship, full_name, gender, date_of_birth,
				height, weight, health_conditions, medications)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			d.ID, c.ID, i, string(d.Relationship), d.FullName, nullString(d.Gender), nullString(d.DateOfBirth),
			nullFloat(d.Height), nullFloat(d.Weight), fromSet(d.HealthConditions), fromSet(d.Medications),
		)
		if err != nil {
			return fmt.Errorf("insert dependent %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit client insert: %w", err)
	}
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, id string) (*clients.Client, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clients.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+dependentColumns+" FROM dependents WHERE client_id = $1 ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		c.Dependents = append(c.Dependents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependents: %w", err)
	}

	return c, nil
}

// List returns clients newest first without their dependents. An empty userID lists every client.
func (r *ClientRepo) List(ctx context.Context, userID string) ([]*clients.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients"
	args := []any{}
	if userID != "" {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	result := []*clients.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (*clients.Client, error) {
	var (
		c                clients.Client
		height, weight   sql.NullFloat64
		conditions, meds pq.StringArray
	)
	err := s.Scan(&c.ID, &c.UserID, &c.FullName, &c.Gender, &c.DateOfBirth, &c.ZipCode, &c.State,
		&height, &weight, &conditions, &meds, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Height = floatPtr(height)
	c.Weight = floatPtr(weight)
	c.HealthConditions = toSet(conditions)
	c.Medications = toSet(meds)
	return &c, nil
}

func scanDependent(s scanner) (*clients.Dependent, error) {
	var (
		d                clients.Dependent
		relationship     string
		height, weight   sql.NullFloat64
		conditions, meds pq.StringArray
	)
	err := s.Scan(&d.ID, &d.ClientID, &relationship, &d.FullName, &d.Gender, &d.DateOfBirth,
		&height, &weight, &conditions, &meds)
	if err != nil {
		return nil, err
	}

	d.Relationship = clients.Relationship(relationship)
	d.Height = floatPtr(height)
	d.Weight = floatPtr(weight)
	d.HealthConditions = toSet(conditions)
	d.Medications = toSet(meds)
	return &d, nil
}
