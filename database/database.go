package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qrmenu/config"
	"qrmenu/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the persistent document store behind the API. Every method is a
// single-document operation except Summary, which only reads.
type Store interface {
	CreateTable(ctx context.Context, table *model.Table) error
	GetTable(ctx context.Context, tableID string) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	UpdateTable(ctx context.Context, tableID string, update model.TableUpdate) (*model.Table, error)
	DeleteTable(ctx context.Context, tableID string) error

	CreateMenuItem(ctx context.Context, item *model.MenuItem) error
	CreateMenuItems(ctx context.Context, items []model.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	ListMenuItems(ctx context.Context, availableOnly bool) ([]model.MenuItem, error)
	FindAvailableMenuItems(ctx context.Context, ids []string) ([]model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, update model.MenuItemUpdate) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	// ListOrders returns the orders of tableID, or all orders when tableID is
	// empty, newest first.
	ListOrders(ctx context.Context, tableID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) (*model.Order, error)

	CreateFeedback(ctx context.Context, feedback *model.Feedback) error
	ListFeedback(ctx context.Context) ([]model.Feedback, error)

	CreateWaiterCall(ctx context.Context, call *model.WaiterCall) error
	ListWaiterCalls(ctx context.Context, pendingOnly bool) ([]model.WaiterCall, error)
	AcknowledgeWaiterCall(ctx context.Context, id string, at time.Time) (*model.WaiterCall, error)

	// Summary aggregates orders and feedback; dailyOrders counts orders
	// created at or after since.
	Summary(ctx context.Context, since time.Time) (*model.AnalyticsSummary, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// InitDatabase opens the store selected by cfg.Driver.
func InitDatabase(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case "mongo":
		store, err = NewMongoStore(ctx, cfg)
	case "postgres":
		store, err = NewPostgresStore(cfg, log)
	case "memory":
		log.Warn("Using in-memory store, data is lost on restart")
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to reach %s store: %w", cfg.Driver, err)
	}

	log.Info("Database connected", zap.String("driver", cfg.Driver))
	return store, nil
}
