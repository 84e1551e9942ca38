package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/cache"
	"github.com/mido200912/Ai-Thor/infrastructure/clients/meta"
	"github.com/mido200912/Ai-Thor/infrastructure/clients/shopify"
	"github.com/mido200912/Ai-Thor/infrastructure/configuration"
	"github.com/mido200912/Ai-Thor/infrastructure/events"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"
	"github.com/mido200912/Ai-Thor/infrastructure/persistence"
	"github.com/mido200912/Ai-Thor/infrastructure/pubsub"
	"github.com/mido200912/Ai-Thor/infrastructure/servicebus"
	httpHandler "github.com/mido200912/Ai-Thor/interfaces/http"

	gpubsub "cloud.google.com/go/pubsub"
)

type stores struct {
	integrations repository.IIntegration
	companies    repository.ICompany
	checks       map[string]httpHandler.HealthCheck
	close        []func() error
}

// InitiateStores opens the credential store selected by database.driver and
// makes sure its table or index exists.
func InitiateStores(ctx context.Context, cfg configuration.Database) (*stores, error) {
	s := &stores{checks: map[string]httpHandler.HealthCheck{}}
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "psql", "":
		db, err := persistence.NewPostgreSQLDB(cfg.Psql)
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, db.Close)
		if err := persistence.EnsureIntegrationSchema(ctx, db); err != nil {
			return nil, err
		}
		s.integrations = persistence.NewIntegrationRepository(db)
		s.companies = persistence.NewCompanyRepository(db)
		s.checks["database"] = db.PingContext
	case "mssql":
		db, err := persistence.NewMSSQLDB(cfg.Mssql)
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, db.Close)
		if err := persistence.EnsureIntegrationSchemaMSSQL(ctx, db); err != nil {
			return nil, err
		}
		s.integrations = persistence.NewIntegrationRepositoryMSSQL(db)
		s.checks["database"] = db.PingContext
	case "mysql":
		gdb, err := persistence.NewGormMySQL(cfg.MySql)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, sqlDB.Close)
		if err := persistence.EnsureIntegrationSchemaGorm(gdb.WithContext(ctx)); err != nil {
			return nil, err
		}
		s.integrations = persistence.NewIntegrationRepositoryGorm(gdb)
		s.checks["database"] = sqlDB.PingContext
	case "mongo", "mongodb":
		client, err := persistence.NewMongoDb(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, func() error { return client.Disconnect(context.Background()) })
		db := client.Database(cfg.Mongo.Name)
		repo := persistence.NewIntegrationRepositoryMongo(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		s.integrations = repo
		s.companies = persistence.NewCompanyRepositoryMongo(db)
		s.checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	case "memory":
		logger.GetLogger().Warn("Using the in-memory credential store; links are lost on restart")
		s.integrations = persistence.NewIntegrationRepositoryMemory()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if s.companies == nil {
		logger.GetLogger().WithField("driver", cfg.Driver).Info("No company directory for this driver; company ids are not checked")
	}
	return s, nil
}

// InitiateNonceStore uses Redis when a host is configured and falls back to
// process memory, which only works for a single instance.
func InitiateNonceStore(ctx context.Context, cfg configuration.RedisClient) (repository.INonceStore, httpHandler.HealthCheck, func() error) {
	if cfg.Host == "" {
		logger.GetLogger().Info("Redis not configured - OAuth state nonces kept in memory")
		return cache.NewMemoryNonceStore(), nil, nil
	}
	client, err := cache.NewCache(ctx, cfg.Addr(), cfg.Username, cfg.Password, cfg.DB)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - OAuth state nonces kept in memory")
		return cache.NewMemoryNonceStore(), nil, nil
	}
	store := cache.NewRedisNonceStore(client, "")
	return store, func(ctx context.Context) error { return client.Ping(ctx).Err() }, store.Close
}

// InitiateProviders returns nil for a platform whose credentials are missing.
func InitiateProviders(cfg configuration.OAuth) (repository.IMetaProvider, repository.IShopifyProvider) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	var metaProvider repository.IMetaProvider
	metaClient, err := meta.NewMetaClient(meta.Config{
		AppID:           cfg.Meta.AppID,
		AppSecret:       cfg.Meta.AppSecret,
		RedirectURI:     cfg.Meta.RedirectURI,
		GraphVersion:    cfg.Meta.GraphVersion,
		GraphBaseURL:    cfg.Meta.GraphBaseURL,
		DialogBaseURL:   cfg.Meta.DialogBaseURL,
		Scopes:          cfg.Meta.Scopes,
		LongLivedTokens: cfg.Meta.LongLivedTokens,
		HTTPClient:      httpClient,
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Meta integration disabled")
	} else {
		metaProvider = metaClient
	}

	var shopifyProvider repository.IShopifyProvider
	shopifyClient, err := shopify.NewShopifyClient(shopify.Config{
		APIKey:      cfg.Shopify.APIKey,
		APISecret:   cfg.Shopify.APISecret,
		RedirectURI: cfg.Shopify.RedirectURI,
		Scopes:      cfg.Shopify.Scopes,
		ShopSuffix:  cfg.Shopify.ShopSuffix,
		HTTPClient:  httpClient,
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Shopify integration disabled")
	} else {
		shopifyProvider = shopifyClient
	}
	return metaProvider, shopifyProvider
}

// InitiateEventSink selects where accepted webhooks go: log, pubsub or servicebus.
func InitiateEventSink(ctx context.Context, cfg configuration.Events) (repository.IEventPublisher, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", "log":
		return events.NewLogPublisher(), nil
	case "pubsub":
		if cfg.Pubsub.ProjectID == "" {
			return nil, errors.New("events.pubsub.projectID is required")
		}
		client, err := gpubsub.NewClient(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		publisher, err := pubsub.NewEventPublisher(ctx, client, cfg.Pubsub.Topic)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return publisher, nil
	case "servicebus":
		client, err := servicebus.NewClient(cfg.ServiceBus.Namespace, cfg.ServiceBus.ConnectionString)
		if err != nil {
			return nil, err
		}
		publisher, err := servicebus.NewEventPublisher(client, cfg.ServiceBus.Queue)
		if err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events sink %q", cfg.Sink)
	}
}

// refusingIssuer stands in when no state secret is configured.
type refusingIssuer struct{ err error }

func (r refusingIssuer) Issue(ctx context.Context, companyID string, platform model.Platform, shop string) (string, error) {
	return "", fmt.Errorf("%v: %w", r.err, model.ErrNotConfigured)
}

func (r refusingIssuer) Verify(ctx context.Context, token string, platform model.Platform, shop string) (*model.StateClaims, error) {
	return nil, model.NewValidationError("state", "state signing is not configured")
}
