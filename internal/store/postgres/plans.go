package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/plans"
)

const planColumns = `id, company_name, product_name, product_category, product_price, product_benefits,
	available_states, disqualifying_health_conditions, disqualifying_medications`

// PlanRepo serves the plan catalog and reference lists from PostgreSQL.
type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) *PlanRepo {
	return &PlanRepo{db: db}
}

func (r *PlanRepo) Plans(ctx context.Context) (*plans.Plans, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+planColumns+" FROM insurance_plans ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	result := &plans.Plans{Items: []*plans.Plan{}}
	for rows.Next() {
		var (
			p                       plans.Plan
			benefits                sql.NullString
			states, conditions, med pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.CompanyName, &p.ProductName, &p.ProductCategory, &p.MonthlyPrice, &benefits,
			&states, &conditions, &med); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.Benefits = benefits.String
		p.AvailableStates = toSet(states)
		p.DisqualifyingHealthConditions = toSet(conditions)
		p.DisqualifyingMedications = toSet(med)

		if err := p.Validate(); err != nil {
			return nil, err
		}
		result.Items = append(result.Items, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return result, nil
}

func (r *PlanRepo) HealthConditions(ctx context.Context) ([]string, error) {
	return r.names(ctx, "SELECT name FROM health_conditions ORDER BY name")
}

func (r *PlanRepo) Medications(ctx context.Context) ([]string, error) {
	return r.names(ctx, "SELECT name FROM medications ORDER BY name")
}

func (r *PlanRepo) names(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reference list: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan reference list: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Seed upserts a catalog document in a single transaction.
func (r *PlanRepo) Seed(ctx context.Context, doc *catalog.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, p := range doc.Plans {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO insurance_plans (`+planColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				product_name = EXCLUDED.product_name,
				product_category = EXCLUDED.product_category,
				product_price = EXCLUDED.product_price,
				product_benefits = EXCLUDED.product_benefits,
				available_states = EXCLUDED.available_states,
				disqualifying_health_conditions = EXCLUDED.disqualifying_health_conditions,
				disqualifying_medications = EXCLUDED.disqualifying_medications`,
			p.ID, p.CompanyName, p.ProductName, p.ProductCategory, p.MonthlyPrice, nullString(p.Benefits),
			fromSet(p.AvailableStates), fromSet(p.DisqualifyingHealthConditions), fromSet(p.DisqualifyingMedications),
		)
		if err != nil {
			return fmt.Errorf("upsert plan %s: %w", p.ID, err)
		}
	}

	for _, name := range doc.HealthConditions {
		if _, err := tx.ExecContext(ctx, "INSERT INTO health_conditions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name); err != nil {
			return fmt.Errorf("insert health condition %q: %w", name, err)
		}
	}
	for _, name := range doc.Medications {
		if _, err := tx.ExecContext(ctx, "INSERT INTO medications (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name); err != nil {
			return fmt.Errorf("insert medication %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
