package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/configuration"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"
	"github.com/mido200912/Ai-Thor/infrastructure/oauthstate"
	"github.com/mido200912/Ai-Thor/infrastructure/realtime"
	httpHandler "github.com/mido200912/Ai-Thor/interfaces/http"
	"github.com/mido200912/Ai-Thor/server"
	"github.com/mido200912/Ai-Thor/usecase"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	if err := run(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := configuration.Load()
	if err != nil {
		return err
	}
	logger.Configure(cfg.Logger.Format, cfg.Logger.Level)
	app := cfg.App

	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logger.GetLogger().WithField("error", closeErr).Warn("Errors while releasing resources")
		}
	}()

	backends, err := InitiateStores(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initiate stores: %w", err)
	}
	closers = append(closers, backends.close...)
	checks := backends.checks

	nonces, nonceCheck, nonceClose := InitiateNonceStore(ctx, cfg.RedisClient)
	if nonceClose != nil {
		closers = append(closers, nonceClose)
	}
	if nonceCheck != nil {
		checks["redis"] = nonceCheck
	}
	var states repository.IStateIssuer
	if issuer, err := oauthstate.NewIssuer(app.StateSecret, app.StateTTL(), nonces); err != nil {
		logger.GetLogger().WithField("error", err).Warn("OAuth state signing disabled - logins will be refused")
		states = refusingIssuer{err: err}
	} else {
		states = issuer
	}

	metaProvider, shopifyProvider := InitiateProviders(cfg.OAuth)

	publisher, err := InitiateEventSink(ctx, cfg.Events)
	if err != nil {
		return fmt.Errorf("initiate event sink: %w", err)
	}
	closers = append(closers, publisher.Close)

	hub := realtime.NewHub()
	linkOpts := []usecase.LinkOption{usecase.WithBroadcaster(hub)}
	if backends.companies != nil {
		linkOpts = append(linkOpts, usecase.WithCompanyDirectory(backends.companies))
	}
	linkUsecase := usecase.NewLinkUsecase(
		usecase.LinkConfig{
			DashboardURL:        app.DashboardURL,
			MetaScopes:          cfg.OAuth.Meta.Scopes,
			RequireCallbackHMAC: cfg.Webhook.RequireSignature,
		},
		metaProvider,
		shopifyProvider,
		backends.integrations,
		states,
		linkOpts...,
	)
	webhookUsecase := usecase.NewWebhookUsecase(
		usecase.WebhookConfig{VerifyToken: cfg.OAuth.Meta.VerifyToken, RequireSignature: cfg.Webhook.RequireSignature},
		metaProvider,
		shopifyProvider,
		publisher,
	)

	router := server.InitiateRouter(
		server.RouterConfig{AllowOrigins: cfg.Cors.AllowOrigins, SecretKey: app.SecretKey},
		server.Handlers{
			Integration: httpHandler.NewIntegrationHandler(linkUsecase, usecase.NewDeletionUsecase(app.BaseURL)),
			Webhook:     httpHandler.NewWebhookHandler(webhookUsecase),
			Widget:      httpHandler.NewWidgetHandler(usecase.NewWidgetUsecase(cfg.Widget.ChatURL)),
			Health:      httpHandler.NewHealthHandler(checks),
			Stream:      hub.Serve,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	logger.GetLogger().WithFields(map[string]interface{}{"port": app.Port, "tls": app.TLSEnabled, "store": cfg.Database.Driver, "sink": cfg.Events.Sink}).Info("Starting application")
	g.Go(func() error {
		var err error
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			logger.GetLogger().WithFields(map[string]interface{}{"cert": app.TLSCertFile, "key": app.TLSKeyFile}).Info("Serving HTTPS")
			err = httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile)
		} else {
			if app.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
