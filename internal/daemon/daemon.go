package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/quartermaster-shop/quartermaster/internal/api"
	"github.com/quartermaster-shop/quartermaster/internal/app/fulfillment"
	"github.com/quartermaster-shop/quartermaster/internal/domain"
	"github.com/quartermaster-shop/quartermaster/internal/infra/catalog"
	"github.com/quartermaster-shop/quartermaster/internal/infra/rcon"
	"github.com/quartermaster-shop/quartermaster/internal/infra/sqlite"
)

// Run assembles the daemon from cfg and serves until SIGINT/SIGTERM.
func Run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.Shop.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	cat, err := LoadCatalog(cfg)
	if err != nil {
		return err
	}

	session := NewSession(cfg)
	go session.Start(ctx)

	coord := fulfillment.New(fulfillmentConfig(cfg), store, session, cat)

	server := api.NewServer(coord, store, cat, session)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("quartermaster: serving on %s (rcon %s)", cfg.API.Addr(), session.State())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// LoadCatalog returns the operator catalog when configured, defaults otherwise.
func LoadCatalog(cfg Config) (domain.Catalog, error) {
	if cfg.Shop.CatalogPath != "" {
		return catalog.LoadFile(cfg.Shop.CatalogPath)
	}
	return catalog.Default(), nil
}

// NewSession builds the remote command session from config.
func NewSession(cfg Config) *rcon.Session {
	sessCfg := rcon.DefaultConfig()
	sessCfg.Enabled = cfg.RCON.Enabled
	sessCfg.Addr = cfg.RCON.Addr()
	sessCfg.Password = cfg.RCON.Password
	sessCfg.ReconnectDelay = ParseDuration(cfg.RCON.ReconnectDelay, sessCfg.ReconnectDelay)
	return rcon.New(sessCfg)
}

func fulfillmentConfig(cfg Config) fulfillment.Config {
	fc := fulfillment.DefaultConfig()
	if cfg.Shop.DailyBonus > 0 {
		fc.DailyBonus = cfg.Shop.DailyBonus
	}
	fc.DailyCooldown = ParseDuration(cfg.Shop.DailyCooldown, fc.DailyCooldown)
	fc.ItemSpawnDelay = ParseDuration(cfg.Shop.ItemSpawnDelay, fc.ItemSpawnDelay)
	return fc
}
