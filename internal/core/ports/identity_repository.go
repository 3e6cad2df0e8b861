package ports

import (
	"context"

	"github.com/brewline/console/internal/core/domain"
)

// IdentityRepository persists tenants and their accounts for the local
// identity backend.
type IdentityRepository interface {
	// CreateTenant stores tenant and its first account, assigning both IDs.
	// Returns domain.ErrAccountExists when the email is taken.
	CreateTenant(ctx context.Context, tenant *domain.Tenant, owner *domain.Account) error
	// FindAccountByEmail returns domain.ErrAccountNotFound when absent.
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// IdentityService issues credentials for the local identity backend.
type IdentityService interface {
	Register(ctx context.Context, companyName, email, password string) (*domain.Tenant, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
}
