package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mido200912/Ai-Thor/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CompanyRepository answers whether a company id is known to the platform.
// Companies are owned by another service; this is a read-only lookup.
type CompanyRepository struct{ db *sql.DB }

func NewCompanyRepository(db *sql.DB) *CompanyRepository { return &CompanyRepository{db: db} }

func (r *CompanyRepository) Exists(ctx context.Context, companyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM companies WHERE id::text = $1)`, companyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup company %s: %w", companyID, err)
	}
	return exists, nil
}

type CompanyRepositoryMongo struct {
	collection *mongo.Collection
}

func NewCompanyRepositoryMongo(db *mongo.Database) *CompanyRepositoryMongo {
	return &CompanyRepositoryMongo{collection: db.Collection("companies")}
}

// Exists treats an id that is not an ObjectID as unknown.
func (r *CompanyRepositoryMongo) Exists(ctx context.Context, companyID string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(companyID)
	if err != nil {
		return false, nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("lookup company %s: %w", companyID, err)
	}
	return n > 0, nil
}

var (
	_ repository.ICompany = (*CompanyRepository)(nil)
	_ repository.ICompany = (*CompanyRepositoryMongo)(nil)
)
