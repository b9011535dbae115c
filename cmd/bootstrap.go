package cmd

import (
	"fmt"

	"relsync/core/config"
	"relsync/core/database"
	"relsync/core/logger"
	"relsync/feature/article"

	"go.uber.org/zap"
)

// bootstrap loads configuration, builds the logger and connects the
// article service.
func bootstrap() (*article.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l.Debug("Connected to database", zap.String("driver", db.Dialector.Name()))

	cache := database.NewColumnCache(cfg.Database.SchemaCacheTTL())
	return article.NewService(db, l, article.WithColumnCache(cache)), l, nil
}
