package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the document and payroll collections for aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEntries returns every document in the window as a rollup entry. Sales
// and purchases come from credit_documents; payroll periods contribute their
// payment date and total.
func (r *Repository) ListEntries(ctx context.Context, from, to time.Time) ([]DocumentEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT kind, issued_at, total FROM credit_documents
		WHERE issued_at >= $1 AND issued_at < $2
		UNION ALL
		SELECT 'NOMINA', paid_at, total FROM payroll_periods
		WHERE paid_at >= $1 AND paid_at < $2
		ORDER BY 2`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []DocumentEntry
	for rows.Next() {
		var entry DocumentEntry
		if err := rows.Scan(&entry.Kind, &entry.EffectiveAt, &entry.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
