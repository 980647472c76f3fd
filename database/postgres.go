package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"qrmenu/config"
	"qrmenu/model"
)

// PostgresStore maps each entity to a table; list-valued fields live in jsonb
// columns.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(cfg config.DatabaseConfig, log *zap.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	err = db.AutoMigrate(
		&model.Table{},
		&model.MenuItem{},
		&model.Order{},
		&model.Feedback{},
		&model.WaiterCall{},
	)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	log.Info("Postgres migration completed")
	return &PostgresStore{db: db}, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (s *PostgresStore) CreateTable(ctx context.Context, table *model.Table) error {
	newID(&table.ID)
	return translate(s.db.WithContext(ctx).Create(table).Error)
}

func (s *PostgresStore) GetTable(ctx context.Context, tableID string) (*model.Table, error) {
	var table model.Table
	if err := s.db.WithContext(ctx).Where("table_id = ?", tableID).First(&table).Error; err != nil {
		return nil, translate(err)
	}
	return &table, nil
}

func (s *PostgresStore) ListTables(ctx context.Context) ([]model.Table, error) {
	tables := []model.Table{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tables).Error
	return tables, err
}

func (s *PostgresStore) UpdateTable(ctx context.Context, tableID string, update model.TableUpdate) (*model.Table, error) {
	var table model.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("table_id = ?", tableID).First(&table).Error; err != nil {
			return err
		}
		update.Apply(&table)
		return tx.Save(&table).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &table, nil
}

func (s *PostgresStore) DeleteTable(ctx context.Context, tableID string) error {
	res := s.db.WithContext(ctx).Where("table_id = ?", tableID).Delete(&model.Table{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateMenuItem(ctx context.Context, item *model.MenuItem) error {
	newID(&item.ID)
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *PostgresStore) CreateMenuItems(ctx context.Context, items []model.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		newID(&items[i].ID)
	}
	return s.db.WithContext(ctx).Create(&items).Error
}

func (s *PostgresStore) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *PostgresStore) ListMenuItems(ctx context.Context, availableOnly bool) ([]model.MenuItem, error) {
	items := []model.MenuItem{}
	query := s.db.WithContext(ctx)
	if availableOnly {
		query = query.Where("available = ?", true).Order("category ASC, name ASC")
	} else {
		query = query.Order("created_at DESC")
	}
	err := query.Find(&items).Error
	return items, err
}

func (s *PostgresStore) FindAvailableMenuItems(ctx context.Context, ids []string) ([]model.MenuItem, error) {
	var items []model.MenuItem
	err := s.db.WithContext(ctx).Where("id IN ? AND available = ?", ids, true).Find(&items).Error
	return items, err
}

func (s *PostgresStore) UpdateMenuItem(ctx context.Context, id string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	var item model.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		update.Apply(&item)
		return tx.Save(&item).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *PostgresStore) DeleteMenuItem(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.MenuItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order *model.Order) error {
	newID(&order.ID)
	if order.Items == nil {
		order.Items = []model.OrderItem{}
	}
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, tableID string) ([]model.Order, error) {
	orders := []model.Order{}
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if tableID != "" {
		query = query.Where("table_id = ?", tableID)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
			return err
		}
		order.ApplyStatus(status, at)
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, feedback *model.Feedback) error {
	newID(&feedback.ID)
	return s.db.WithContext(ctx).Create(feedback).Error
}

func (s *PostgresStore) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	feedback := []model.Feedback{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&feedback).Error
	return feedback, err
}

func (s *PostgresStore) CreateWaiterCall(ctx context.Context, call *model.WaiterCall) error {
	newID(&call.ID)
	return s.db.WithContext(ctx).Create(call).Error
}

func (s *PostgresStore) ListWaiterCalls(ctx context.Context, pendingOnly bool) ([]model.WaiterCall, error) {
	calls := []model.WaiterCall{}
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if pendingOnly {
		query = query.Where("acknowledged = ?", false)
	}
	err := query.Find(&calls).Error
	return calls, err
}

func (s *PostgresStore) AcknowledgeWaiterCall(ctx context.Context, id string, at time.Time) (*model.WaiterCall, error) {
	res := s.db.WithContext(ctx).Model(&model.WaiterCall{}).Where("id = ?", id).
		Updates(map[string]interface{}{"acknowledged": true, "acknowledged_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var call model.WaiterCall
	if err := s.db.WithContext(ctx).First(&call, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &call, nil
}

const salesQuery = `
SELECT item->>'name' AS name, SUM((item->>'quantity')::int) AS qty
FROM orders, jsonb_array_elements(orders.items) AS item
GROUP BY item->>'name'
ORDER BY qty %s, name ASC
LIMIT 5`

func (s *PostgresStore) Summary(ctx context.Context, since time.Time) (*model.AnalyticsSummary, error) {
	db := s.db.WithContext(ctx)
	summary := &model.AnalyticsSummary{
		TopSelling:   []model.ItemSales{},
		LeastSelling: []model.ItemSales{},
	}

	if err := db.Model(&model.Order{}).Where("created_at >= ?", since).Count(&summary.DailyOrders).Error; err != nil {
		return nil, fmt.Errorf("count daily orders: %w", err)
	}
	if err := db.Raw(fmt.Sprintf(salesQuery, "DESC")).Scan(&summary.TopSelling).Error; err != nil {
		return nil, fmt.Errorf("top selling: %w", err)
	}
	if err := db.Raw(fmt.Sprintf(salesQuery, "ASC")).Scan(&summary.LeastSelling).Error; err != nil {
		return nil, fmt.Errorf("least selling: %w", err)
	}

	var satisfaction sql.NullFloat64
	if err := db.Raw(`SELECT AVG((food_rating + service_rating) / 2.0) FROM feedbacks`).Row().Scan(&satisfaction); err != nil {
		return nil, fmt.Errorf("satisfaction: %w", err)
	}
	if satisfaction.Valid {
		summary.Satisfaction = &satisfaction.Float64
	}

	var busiest []model.TableLoad
	err := db.Raw(`SELECT table_id, COUNT(*) AS orders FROM orders GROUP BY table_id ORDER BY orders DESC, table_id ASC LIMIT 1`).
		Scan(&busiest).Error
	if err != nil {
		return nil, fmt.Errorf("busiest table: %w", err)
	}
	if len(busiest) > 0 {
		summary.BusiestTable = &busiest[0]
	}

	var prep sql.NullFloat64
	err = db.Raw(`SELECT AVG(EXTRACT(EPOCH FROM (served_at - created_at)) / 60) FROM orders WHERE served_at IS NOT NULL`).
		Row().Scan(&prep)
	if err != nil {
		return nil, fmt.Errorf("average prep time: %w", err)
	}
	if prep.Valid {
		summary.AvgPrepMinutes = &prep.Float64
	}

	return summary, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
