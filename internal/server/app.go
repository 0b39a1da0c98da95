// Package server wires the tokenkeeper server together: configuration,
// signing keys, the user database, the refresh token store, the gRPC
// endpoint and the expired token sweeper.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/keys"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/password"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/tokenkeeper/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	rdb     *redis.Client
	server  *gs.GRPCServer
	sweeper *services.ExpiredTokenSweeper
}

var openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

// NewApp builds every component. It fails fast on bad key material and
// runs database migrations before returning.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	tokens, err := newTokenManager(ctx, c)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, rdb, err := newTokenStore(c, db, repos)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.rdb = rdb

	opts := []services.Option{services.WithLogger(logger)}

	us, err := services.NewUserService(db, repos, store, tokens, password.NewHasher(c.BcryptCost), c.RefreshTokenValidityDuration, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.server = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, tokens)
	app.sweeper = services.NewExpiredTokenSweeper(store, c.SweepInterval, opts...)

	return app, nil
}

func newTokenManager(ctx context.Context, c *config.Config) (*auth.Manager, error) {
	loader := keys.NewLoader(keys.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	privateKey, err := loader.Load(ctx, c.PrivateKeySource)
	if err != nil {
		return nil, fmt.Errorf("%w: load private key: %w", common.ErrSigningKeyMisconfigured, err)
	}
	publicKey, err := loader.Load(ctx, c.PublicKeySource)
	if err != nil {
		return nil, fmt.Errorf("%w: load public key: %w", common.ErrSigningKeyMisconfigured, err)
	}

	return auth.NewManager(auth.Config{
		SigningMethod: auth.SigningMethod(c.SigningMethod),
		SecretKey:     []byte(c.SecretKey),
		PrivateKey:    privateKey,
		PublicKey:     publicKey,
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		AccessTTL:     c.AccessTokenValidityDuration,
	})
}

func newTokenStore(c *config.Config, db *sql.DB, repos repomanager.RepositoryManager) (tokenstore.Store, *redis.Client, error) {
	switch c.TokenStore {
	case tokenstore.BackendPostgres:
		return tokenstore.NewSQLStore(db, repos), nil, nil
	case tokenstore.BackendMemory:
		return tokenstore.NewMemoryStore(), nil, nil
	case tokenstore.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return tokenstore.NewRedisStore(rdb, tokenstore.DefaultRedisPrefix, c.RedisExpiryGrace), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", c.TokenStore)
	}
}

// Run serves until ctx is cancelled or a component fails.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	app.logger.Info(ctx, "Starting app...",
		"addr", app.config.EndpointAddrGRPC,
		"token_store", app.config.TokenStore,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.server.Run(ctx) })
	g.Go(func() error { return app.sweeper.Run(ctx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "app stopped", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) Close() {
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
