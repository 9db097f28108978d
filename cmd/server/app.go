package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/config"
	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/runlog"
	"realestate-crm/backend/internal/workflows"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	pool   *pgxpool.Pool
	store  repository.Store
	runs   *runlog.Store
	engine *automation.Engine
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level)
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	runs, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open run log: %w", err)
	}
	a.runs = runs

	notifier, err := notify.NewService(newSender(cfg, logger), store, cfg.Notifier.From, notify.DefaultTemplates, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	a.engine = automation.New(store, logger,
		automation.WithRunRecorder(runs),
		automation.WithIntervals(intervals(cfg.Automation)),
		automation.WithMeterProvider(otel.GetMeterProvider()),
	)
	handlers := workflows.New(store, notifier, logger, workflows.Config{
		RevenuePerLead: cfg.Automation.RevenuePerLead,
		CompanyName:    cfg.Automation.CompanyName,
	}, time.Now)
	if err := workflows.RegisterDefaults(a.engine, handlers); err != nil {
		a.close()
		return nil, fmt.Errorf("register workflows: %w", err)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.DB.Driver == "memory" {
		a.logger.Warn("Using in-memory entity store; data is lost on exit")
		return repository.NewMemoryStore(time.Now), nil
	}

	pool, err := initDatabase(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	store := repository.NewPostgresStore(pool, time.Now)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	a.pool = pool
	a.logger.Info("Database connected", "host", a.cfg.DB.Host, "name", a.cfg.DB.Name)
	return store, nil
}

func (a *app) close() {
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			a.logger.Error("Failed to close run log", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func newSender(cfg *config.Config, logger *logging.Logger) notify.Sender {
	n := cfg.Notifier
	switch n.Driver {
	case "smtp":
		return notify.NewSMTPSender(n.SMTPHost, n.SMTPPort, n.SMTPUsername, n.SMTPPassword)
	case "webhook":
		return notify.NewWebhookSender(n.WebhookURL, &http.Client{Timeout: 10 * time.Second})
	default:
		return notify.LogSender{Logger: logger}
	}
}

func intervals(c config.Automation) automation.Intervals {
	in := automation.DefaultIntervals()
	in.Poll = c.PollInterval
	if c.FollowUpInterval > 0 {
		in.FollowUp = c.FollowUpInterval
	}
	if c.MilestoneInterval > 0 {
		in.Milestone = c.MilestoneInterval
	}
	if c.RescoringInterval > 0 {
		in.Rescoring = c.RescoringInterval
	}
	if c.CampaignInterval > 0 {
		in.Campaign = c.CampaignInterval
	}
	if c.MaintenanceInterval > 0 {
		in.Maintenance = c.MaintenanceInterval
	}
	return in
}
