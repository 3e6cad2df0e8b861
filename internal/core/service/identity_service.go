package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

const minPasswordLen = 8

// IdentityService implements tenant registration and login for the local
// identity backend. Tokens are HS256 JWTs carrying the console claims.
type IdentityService struct {
	repo      ports.IdentityRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewIdentityService(repo ports.IdentityRepository, jwtSecret string, tokenTTL time.Duration) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = domain.CredentialTTL
	}
	return &IdentityService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now}
}

// Register creates a tenant and its OWNER account.
func (s *IdentityService) Register(ctx context.Context, companyName, email, password string) (*domain.Tenant, error) {
	companyName = strings.TrimSpace(companyName)
	email = normalizeEmail(email)
	if companyName == "" || !validEmail(email) || len(password) < minPasswordLen {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tenant := &domain.Tenant{
		CompanyName: companyName,
		Currency:    domain.DefaultCurrency,
		CreatedAt:   now,
	}
	owner := &domain.Account{
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleOwner,
		Currency:     domain.DefaultCurrency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateTenant(ctx, tenant, owner); err != nil {
		return nil, err
	}
	return tenant, nil
}

// Login checks the password and issues a signed credential. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidInput
	}

	account, err := s.repo.FindAccountByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}

	return token, account, nil
}

func (s *IdentityService) generateToken(account *domain.Account) (string, error) {
	now := s.now()
	claims := domain.Claims{
		Role:     string(account.Role),
		TenantID: account.TenantID,
		Currency: account.Currency,
		Email:    account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
