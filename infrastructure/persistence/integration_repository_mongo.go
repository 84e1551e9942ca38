package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const integrationCollection = "integrations"

type integrationDocument struct {
	ID          bson.ObjectID     `bson:"_id,omitempty"`
	CompanyID   string            `bson:"company"`
	Platform    string            `bson:"platform"`
	Credentials model.Credentials `bson:"credentials"`
	IsActive    bool              `bson:"isActive"`
	Settings    model.Settings    `bson:"settings"`
	CreatedAt   time.Time         `bson:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt"`
}

func (d *integrationDocument) record() *model.IntegrationRecord {
	return &model.IntegrationRecord{
		ID:          d.ID.Hex(),
		CompanyID:   d.CompanyID,
		Platform:    model.Platform(d.Platform),
		Credentials: d.Credentials,
		IsActive:    d.IsActive,
		Settings:    d.Settings,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// IntegrationRepositoryMongo stores one document per (company, platform).
type IntegrationRepositoryMongo struct {
	collection *mongo.Collection
}

func NewIntegrationRepositoryMongo(db *mongo.Database) *IntegrationRepositoryMongo {
	return &IntegrationRepositoryMongo{collection: db.Collection(integrationCollection)}
}

// EnsureIndexes creates the unique compound index the upsert relies on.
func (r *IntegrationRepositoryMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "company", Value: 1}, {Key: "platform", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("company_platform_unique"),
	})
	if err != nil {
		return fmt.Errorf("create integrations index: %w", err)
	}
	return nil
}

func integrationFilter(companyID string, platform model.Platform) bson.D {
	return bson.D{{Key: "company", Value: companyID}, {Key: "platform", Value: platform.String()}}
}

// integrationUpdate replaces the credentials sub-document wholesale and only
// seeds settings on insert.
func integrationUpdate(rec *model.IntegrationRecord) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "credentials", Value: rec.Credentials},
			{Key: "isActive", Value: true},
			{Key: "updatedAt", Value: rec.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "settings", Value: rec.Settings},
			{Key: "createdAt", Value: rec.UpdatedAt},
		}},
	}
}

func (r *IntegrationRepositoryMongo) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc integrationDocument
	err := r.collection.FindOneAndUpdate(ctx, integrationFilter(rec.CompanyID, rec.Platform), integrationUpdate(rec), opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-time upserts raced on the unique index; the loser retries as an update.
		logger.GetLogger().WithField("company_id", rec.CompanyID).Info("retrying integration upsert after duplicate key")
		err = r.collection.FindOneAndUpdate(ctx, integrationFilter(rec.CompanyID, rec.Platform), integrationUpdate(rec), opts).Decode(&doc)
	}
	if err != nil {
		return fmt.Errorf("upsert integration %s/%s: %w", rec.CompanyID, rec.Platform, err)
	}
	stored := doc.record()
	rec.ID = stored.ID
	rec.IsActive = stored.IsActive
	rec.Settings = stored.Settings
	rec.CreatedAt = stored.CreatedAt
	return nil
}

func (r *IntegrationRepositoryMongo) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	var doc integrationDocument
	err := r.collection.FindOne(ctx, integrationFilter(companyID, platform)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("integration %s/%s: %w", companyID, platform, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.record(), nil
}

func (r *IntegrationRepositoryMongo) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "company", Value: companyID}},
		options.Find().SetSort(bson.D{{Key: "platform", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var out []*model.IntegrationRecord
	for cursor.Next(ctx) {
		var doc integrationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cursor.Err()
}

var _ repository.IIntegration = (*IntegrationRepositoryMongo)(nil)
