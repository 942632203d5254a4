package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for counterparties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(rfc,''), COALESCE(email,''), COALESCE(phone,''), created_at FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.RFC, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(rfc,''), COALESCE(email,''), COALESCE(phone,''), created_at FROM suppliers WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.RFC, &s.Email, &s.Phone, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(rfc,''), COALESCE(email,''), COALESCE(phone,''), created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.RFC, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(rfc,''), COALESCE(email,''), COALESCE(phone,''), created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.RFC, &s.Email, &s.Phone, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *Repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (name, rfc, email, phone, created_at) VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NOW()) RETURNING id`,
		c.Name, c.RFC, c.Email, c.Phone).Scan(&id)
	return id, err
}

func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name, rfc, email, phone, created_at) VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NOW()) RETURNING id`,
		s.Name, s.RFC, s.Email, s.Phone).Scan(&id)
	return id, err
}
