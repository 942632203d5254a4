package directory

import (
	"context"
	"fmt"
	"strings"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	GetClient(ctx context.Context, id int64) (Client, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListClients(ctx context.Context) ([]Client, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateClient(ctx context.Context, c Client) (int64, error)
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
}

// Service manages the counterparty registry.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the directory service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetClient(ctx context.Context, id int64) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateClient(ctx context.Context, c Client) (Client, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Client{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	id, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return Client{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Service) CreateSupplier(ctx context.Context, sup Supplier) (Supplier, error) {
	if strings.TrimSpace(sup.Name) == "" {
		return Supplier{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	id, err := s.repo.CreateSupplier(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = id
	return sup, nil
}
