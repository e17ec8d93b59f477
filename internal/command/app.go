package command

import (
	"context"
	"errors"
	"log/slog"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/repository"
)

// service holds the wired collaborators shared by the commands
type service struct {
	cfg    *auth.Settings
	logger auth.Logger
	client *persistence.Client
	db     *bun.DB
	repo   auth.RepositoryManager
	tokens auth.TokenService
	auther *auth.Auther
}

func newService(ctx context.Context, cfg *auth.Settings) (*service, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	logger := auth.NewSlogLogger(slog.Default().With("component", "auth"))

	client, err := repository.Open(ctx, repository.Config{
		DSN:   cfg.DatabaseURL,
		Debug: cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	db := client.DB()

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	passwords := auth.NewPasswordHasher(cfg.GetBcryptCost(), logger)

	auther := auth.NewAuthenticator(repo.Users(), tokens, passwords).
		WithLogger(logger).
		WithActivitySink(auth.NewLoggerActivitySink(logger))

	return &service{
		cfg:    cfg,
		logger: logger,
		client: client,
		db:     db,
		repo:   repo,
		tokens: tokens,
		auther: auther,
	}, nil
}

// migrate applies the pending migrations of the users schema
func (s *service) migrate(ctx context.Context) error {
	return repository.Migrate(ctx, s.client)
}

func (s *service) Close() error {
	return repository.Close(s.db)
}
