// Package bootstrap wires configuration, logging, storage and AWS services
// into an api.Handler during a lambda cold start.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/thermabackend/internal/api"
	"github.com/thermabackend/internal/auth"
	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/config"
	"github.com/thermabackend/internal/db"
	"github.com/thermabackend/internal/encryption"
	"github.com/thermabackend/internal/idempotency"
	"github.com/thermabackend/internal/logging"
	"github.com/thermabackend/internal/quota"
)

// coldStartTimeout bounds connecting to PostgreSQL and AWS at init.
const coldStartTimeout = 10 * time.Second

type options struct {
	cipher      bool
	idempotency bool
	quota       bool
}

// Option enables an optional service.
type Option func(*options)

// WithCipher connects to KMS for PHI encryption.
func WithCipher() Option { return func(o *options) { o.cipher = true } }

// WithIdempotency connects to the DynamoDB idempotency table.
func WithIdempotency() Option { return func(o *options) { o.idempotency = true } }

// WithQuota connects to the DynamoDB insight usage table.
func WithQuota() Option { return func(o *options) { o.quota = true } }

// New loads configuration from the environment and builds a handler with
// the store, tokens and any services enabled by opts.
func New(ctx context.Context, opts ...Option) (*api.Handler, *logging.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, logger, err
	}

	clk := clock.NewReal()
	tokens, err := auth.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, clk)
	if err != nil {
		return nil, logger, err
	}

	deps := api.Deps{
		Store:             db.NewStore(conn),
		Tokens:            tokens,
		Clock:             clk,
		Logger:            logger,
		Analytics:         cfg.Analytics,
		DefaultActivities: cfg.Garden.Activities,
	}

	if o.cipher {
		kmsClient, err := encryption.NewKMSClient(ctx, cfg.KMS.KeyID)
		if err != nil {
			return nil, logger, fmt.Errorf("failed to initialize encryption service: %w", err)
		}
		if err := kmsClient.ValidateKMSKey(ctx); err != nil {
			return nil, logger, err
		}
		deps.Cipher = kmsClient
	}

	if o.idempotency {
		svc, err := idempotency.NewIdempotencyService(ctx, cfg.Idempotency.TableName, cfg.Idempotency.TTL, logger.Named("idempotency"))
		if err != nil {
			return nil, logger, fmt.Errorf("failed to initialize idempotency service: %w", err)
		}
		deps.Idempotency = svc
	}

	if o.quota {
		limits := quota.Limits{Free: cfg.Quota.FreeDaily, Premium: cfg.Quota.PremiumDaily}
		svc, err := quota.NewInsightQuotaService(ctx, cfg.Quota.TableName, limits)
		if err != nil {
			return nil, logger, fmt.Errorf("failed to initialize quota service: %w", err)
		}
		deps.Quota = svc
	}

	return api.New(deps), logger, nil
}

// MustHandler is New for lambda init functions: it exits the process when
// the handler cannot be built.
func MustHandler(opts ...Option) *api.Handler {
	ctx, cancel := context.WithTimeout(context.Background(), coldStartTimeout)
	defer cancel()

	h, logger, err := New(ctx, opts...)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "failed to initialize handler", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintf(os.Stderr, "failed to initialize handler: %v\n", err)
		}
		os.Exit(1)
	}
	return h
}
