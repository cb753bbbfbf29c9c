// Package app wires storage and services from configuration. The server
// binary and estatectl share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"greendrake/estate/internal/api"
	"greendrake/estate/internal/config"
	"greendrake/estate/internal/db"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/store/mongostore"
	"greendrake/estate/internal/store/sqlstore"
)

// OpenStore connects the configured backend and prepares its schema.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, logger)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(client, database)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		return st, nil
	case config.DriverPostgres, config.DriverSQLite:
		gdb, err := db.OpenSQL(cfg.DBDriver, cfg.SQLDSN, logger)
		if err != nil {
			return nil, err
		}
		st := sqlstore.New(gdb)
		if err := st.Migrate(); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// NewServices builds the business services on st. enqueuer may be nil,
// in which case sale invoices are created but not emailed.
func NewServices(st store.Store, cfg *config.Config, enqueuer services.InvoiceDeliveryEnqueuer, logger *zap.Logger) api.Services {
	billing := services.NewBillingService(st, cfg, logger)
	hook := services.NewSaleInvoiceHook(billing, cfg, enqueuer, logger)
	return api.Services{
		Properties: services.NewPropertyService(st, cfg, hook, logger),
		Offers:     services.NewOfferService(st, cfg, logger),
		Billing:    billing,
		Catalog:    services.NewCatalogService(st, logger),
		Parties:    services.NewPartyService(st, cfg.JwtSecret, cfg.JwtTTL, logger),
	}
}
