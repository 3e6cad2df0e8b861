package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brewline/console/internal/core/domain"
)

const (
	tenantCollection  = "tenants"
	accountCollection = "accounts"
)

// IdentityRepository implements ports.IdentityRepository using MongoDB.
type IdentityRepository struct {
	tenants  *mongo.Collection
	accounts *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		tenants:  db.Collection(tenantCollection),
		accounts: db.Collection(accountCollection),
	}
}

type mongoTenant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CompanyName string             `bson:"company_name"`
	Currency    string             `bson:"currency"`
	CreatedAt   int64              `bson:"created_at"`
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	TenantID     string             `bson:"tenant_id"`
	Currency     string             `bson:"currency"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// EnsureIndexes makes account emails unique.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// CreateTenant inserts the tenant and then its owner account. The tenant is
// removed again when the account cannot be stored.
func (r *IdentityRepository) CreateTenant(ctx context.Context, tenant *domain.Tenant, owner *domain.Account) error {
	tenantID := primitive.NewObjectID()
	_, err := r.tenants.InsertOne(ctx, mongoTenant{
		ID:          tenantID,
		CompanyName: tenant.CompanyName,
		Currency:    tenant.Currency,
		CreatedAt:   tenant.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	accountID := primitive.NewObjectID()
	_, err = r.accounts.InsertOne(ctx, mongoAccount{
		ID:           accountID,
		Email:        normalizeEmail(owner.Email),
		PasswordHash: owner.PasswordHash,
		Role:         string(owner.Role),
		TenantID:     tenantID.Hex(),
		Currency:     owner.Currency,
		CreatedAt:    owner.CreatedAt.Unix(),
		UpdatedAt:    owner.UpdatedAt.Unix(),
	})
	if err != nil {
		if _, delErr := r.tenants.DeleteOne(ctx, bson.M{"_id": tenantID}); delErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback tenant: %w", delErr))
		}
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}

	tenant.ID = tenantID.Hex()
	owner.ID = accountID.Hex()
	owner.TenantID = tenant.ID
	return nil
}

func (r *IdentityRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var ma mongoAccount
	if err := r.accounts.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	return &domain.Account{
		ID:           ma.ID.Hex(),
		Email:        ma.Email,
		PasswordHash: ma.PasswordHash,
		Role:         domain.Role(ma.Role),
		TenantID:     ma.TenantID,
		Currency:     ma.Currency,
		CreatedAt:    unixToTime(ma.CreatedAt),
		UpdatedAt:    unixToTime(ma.UpdatedAt),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
