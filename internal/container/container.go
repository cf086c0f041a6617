package container

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"gocompare/adapters/postgres"
	"gocompare/adapters/stats/procedures"
	"gocompare/app"
	"gocompare/internal/config"
	"gocompare/internal/errors"
	"gocompare/internal/logging"
	"gocompare/internal/metrics"
	"gocompare/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB      *sqlx.DB
	Metrics *metrics.Collector

	// Repositories (data access layer)
	RunRepo ports.RunRepository

	// Services
	Analysis *app.AnalysisService
}

// New creates a new dependency injection container. The database is opened
// and migrated only when DATABASE_URL is set.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(),
	}

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
	}

	c.Analysis = app.NewAnalysisService(app.ServiceConfig{
		Procedures: procedures.NewSuite(),
		Workers:    cfg.Analysis.Workers,
		MaxRows:    cfg.Analysis.MaxReplicatedRows,
		Runs:       c.RunRepo,
		Metrics:    c.Metrics,
		Logger:     logger.Named("analysis"),
	})

	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	db, err := postgres.Connect(ctx, c.Config.Database)
	if err != nil {
		return errors.Wrap(err, "failed to initialize run history")
	}
	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	c.Logger.Info("run history enabled")
	return nil
}

// Close releases the database and flushes the logger.
func (c *Container) Close() error {
	var err error
	if c.DB != nil {
		err = c.DB.Close()
	}
	_ = c.Logger.Sync()
	return err
}
