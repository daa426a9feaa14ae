package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"rma-engine-be/internal/bootstrap"
	"rma-engine-be/internal/config"
	"rma-engine-be/pkg/database"

	"gorm.io/gorm"
)

// The sweeper expires overdue RMAs and auto-closes idle inspected ones on a
// fixed interval.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var gormDB *gorm.DB
	if cfg.Database.Driver == config.DriverPostgres {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg, bootstrap.Options{})
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.RMA.SweepInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, container)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, c *bootstrap.Container) {
	expired, err := c.Manager.ExpireOverdue(ctx, c.UoWFactory.NewUnitOfWork(ctx))
	if err != nil {
		c.Logger.Error("SWEEPER", "Expiry sweep failed", map[string]interface{}{"error": err.Error()})
	}

	closed, err := c.Manager.AutoCloseIdle(ctx, c.UoWFactory.NewUnitOfWork(ctx))
	if err != nil {
		c.Logger.Error("SWEEPER", "Auto-close sweep failed", map[string]interface{}{"error": err.Error()})
	}

	c.Logger.Info("SWEEPER", "Sweep finished", map[string]interface{}{
		"expired":     expired,
		"auto_closed": closed,
	})
}
