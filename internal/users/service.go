package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (User, error)
	ListMicroEntrepreneurIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service handles user lookups for invoicing and fiscal scans.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// FiscalIdentity returns a user whose fiscal identity passed validation.
func (s *Service) FiscalIdentity(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := u.Validate(); err != nil {
		return User{}, fmt.Errorf("users: user %s: %w", id, err)
	}
	return u, nil
}

// MicroEntrepreneurs lists users the periodic fiscal scan covers.
func (s *Service) MicroEntrepreneurs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListMicroEntrepreneurIDs(ctx)
}
