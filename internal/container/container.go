package container

import (
	"context"
	"fmt"

	"gouplift/adapters/ml"
	"gouplift/adapters/postgres"
	"gouplift/app"
	"gouplift/internal"
	"gouplift/internal/config"
	"gouplift/internal/features"
	"gouplift/internal/rng"
	"gouplift/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RunRepo ports.RunRepository

	// Computation
	RNG          ports.RNGPort
	Classifier   ports.Classifier
	Significance *app.SignificanceService
	Uplift       *app.UpliftService
	Runner       *app.RunService
}

// New creates a container with the computation services wired. No database
// is opened; call InitWithDatabase to enable persistence.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	method, err := ml.ParseCalibrationMethod(cfg.Model.Calibration)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		Logger:     internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level)),
		RNG:        rng.NewStreams(),
		Classifier: ml.NewCalibratedClassifier(ml.NewLogisticRegression(cfg.Model.L2), method, cfg.Model.Folds),
	}
	c.initServices()
	return c, nil
}

func (c *Container) initServices() {
	c.Significance = app.NewSignificanceService(c.RNG)
	c.Significance.SetLogger(c.Logger)

	c.Uplift = app.NewUpliftService(c.RNG, c.Classifier, features.HillstromSchema())
	c.Uplift.SetLogger(c.Logger)

	c.Runner = app.NewRunService(c.Significance, c.Uplift, c.RunRepo)
	c.Runner.SetLogger(c.Logger)
}

// InitWithDatabase opens the configured database, applies migrations and
// rewires the runner with the run repository
func (c *Container) InitWithDatabase(ctx context.Context) error {
	db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return c.UseDatabase(ctx, db)
}

// UseDatabase adopts an already open connection
func (c *Container) UseDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	if err := c.RunRepo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate run store: %w", err)
	}
	c.initServices()

	c.Logger.With("Container").Info("run store ready (%s)", c.Config.Database.Driver)
	return nil
}

// Shutdown closes the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
