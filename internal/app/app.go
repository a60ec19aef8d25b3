// Package app is the composition root: it turns a Config into a running
// HTTP server and owns the shutdown order.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/api"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/core/service"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/identity"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/identity/firebase"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/identity/hmac"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/queue"
	"github.com/fitnessapp/identity-sync/internal/pkg/config"
	"github.com/fitnessapp/identity-sync/pkg/logger"
)

type App struct {
	httpServer *http.Server
	dispatcher *queue.Dispatcher
	infra      *Infra
	log        zerolog.Logger
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	verifier, err := newVerifier(ctx, cfg.Identity)
	if err != nil {
		_ = infra.Close(context.Background())
		return nil, err
	}

	var (
		publisher  ports.SyncEventPublisher
		dispatcher *queue.Dispatcher
	)
	if cfg.Audit.Enabled {
		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, cfg.Audit.Buffer, infra.Events,
			logger.Component(log, "audit"))
		dispatcher.Start()
		publisher = dispatcher
	}

	syncService := service.NewSyncService(verifier, infra.Users, publisher, cfg.Identity.VerifyTimeout,
		logger.Component(log, "sync"))
	userService := service.NewUserService(infra.Users, logger.Component(log, "users"))

	router := api.NewRouter(api.Deps{
		Log:           log,
		SyncService:   syncService,
		UserService:   userService,
		Verifier:      verifier,
		VerifyTimeout: cfg.Identity.VerifyTimeout,
		HealthChecks:  infra.Checks,
	})

	return &App{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		dispatcher: dispatcher,
		infra:      infra,
		log:        log,
	}, nil
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains the audit queue, then releases
// storage connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("audit drain: %w", err))
		}
	}
	if err := a.infra.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close infra: %w", err))
	}
	return errors.Join(errs...)
}

func newVerifier(ctx context.Context, cfg config.IdentityConfig) (ports.TokenVerifier, error) {
	switch cfg.Provider {
	case config.IdentityProviderFirebase:
		// the key set refreshes in the background for the life of the process
		v, err := firebase.New(context.WithoutCancel(ctx), firebase.Config{
			ProjectID: cfg.FirebaseProjectID,
			JWKSURL:   cfg.FirebaseJWKSURL,
		})
		if err != nil {
			return nil, err
		}
		return identity.Instrument(config.IdentityProviderFirebase, v), nil
	case config.IdentityProviderHMAC:
		v, err := hmac.New(hmac.Config{Secret: cfg.HMACSecret, Issuer: cfg.HMACIssuer})
		if err != nil {
			return nil, err
		}
		return identity.Instrument(config.IdentityProviderHMAC, v), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}
