package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	statusadapter "github.com/bnema/volumebot/internal/adapters/render/status"
	"github.com/bnema/volumebot/internal/adapters/repo/sealed"
	filestore "github.com/bnema/volumebot/internal/adapters/secrets/file"
	passstore "github.com/bnema/volumebot/internal/adapters/secrets/pass"
	"github.com/bnema/volumebot/internal/adapters/secrets/ref"
	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/config"
	"github.com/bnema/volumebot/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var errMissingStoreKey = errors.New("store key is not configured (set VBOT_DB_KEY or DB_KEY)")

type app struct {
	cfg            config.Config
	logger         *logrus.Logger
	secrets        *ref.Resolver
	statusRenderer func([]application.SessionOverview, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	secrets, err := ref.NewResolver(passstore.NewStore(cfg.PassStoreDir), filestore.NewStore(cfg.SecretsDir))
	if err != nil {
		return nil, fmt.Errorf("wire secret resolver: %w", err)
	}

	return &app{
		cfg:            cfg,
		logger:         logger,
		secrets:        secrets,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// openStore resolves the store key and opens the encrypted session file.
func (a *app) openStore(ctx context.Context) (*sealed.Repository, error) {
	if a.cfg.DBKey == "" {
		return nil, errMissingStoreKey
	}

	raw, err := a.secrets.Resolve(ctx, a.cfg.DBKey)
	if err != nil {
		return nil, fmt.Errorf("resolve store key: %w", err)
	}

	key, err := sealed.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse store key: %w", err)
	}

	repo, err := sealed.NewRepository(a.cfg.StorePath, key)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return repo, nil
}

// loadRegistry opens the store and reads every session into memory.
func (a *app) loadRegistry(ctx context.Context) (*application.Registry, error) {
	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	registry := application.NewRegistry(repo)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}
