package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"qrmenu/model"
)

// MemoryStore keeps every collection in process memory. It backs the tests
// and local runs without a database server.
type MemoryStore struct {
	mutex       sync.RWMutex
	seq         int64
	order       map[string]int64
	tables      map[string]*model.Table
	menuItems   map[string]*model.MenuItem
	orders      map[string]*model.Order
	feedback    map[string]*model.Feedback
	waiterCalls map[string]*model.WaiterCall
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		order:       make(map[string]int64),
		tables:      make(map[string]*model.Table),
		menuItems:   make(map[string]*model.MenuItem),
		orders:      make(map[string]*model.Order),
		feedback:    make(map[string]*model.Feedback),
		waiterCalls: make(map[string]*model.WaiterCall),
	}
}

// register assigns an id if missing and records insertion order. Callers hold
// the write lock.
func (s *MemoryStore) register(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
	s.seq++
	s.order[*id] = s.seq
}

// newerFirst orders by creation time descending, latest insert first on ties.
func (s *MemoryStore) newerFirst(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return s.order[aID] > s.order[bID]
}

func (s *MemoryStore) CreateTable(_ context.Context, table *model.Table) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.tables[table.TableID]; exists {
		return ErrDuplicate
	}
	s.register(&table.ID, &table.CreatedAt)
	table.UpdatedAt = table.CreatedAt
	stored := *table
	s.tables[table.TableID] = &stored
	return nil
}

func (s *MemoryStore) GetTable(_ context.Context, tableID string) (*model.Table, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	table, exists := s.tables[tableID]
	if !exists {
		return nil, ErrNotFound
	}
	out := *table
	return &out, nil
}

func (s *MemoryStore) ListTables(_ context.Context) ([]model.Table, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tables := make([]model.Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, *t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return s.newerFirst(tables[i].ID, tables[i].CreatedAt, tables[j].ID, tables[j].CreatedAt)
	})
	return tables, nil
}

func (s *MemoryStore) UpdateTable(_ context.Context, tableID string, update model.TableUpdate) (*model.Table, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	table, exists := s.tables[tableID]
	if !exists {
		return nil, ErrNotFound
	}
	update.Apply(table)
	table.UpdatedAt = time.Now()
	out := *table
	return &out, nil
}

func (s *MemoryStore) DeleteTable(_ context.Context, tableID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	table, exists := s.tables[tableID]
	if !exists {
		return ErrNotFound
	}
	delete(s.order, table.ID)
	delete(s.tables, tableID)
	return nil
}

func (s *MemoryStore) CreateMenuItem(_ context.Context, item *model.MenuItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.insertMenuItem(item)
	return nil
}

func (s *MemoryStore) CreateMenuItems(_ context.Context, items []model.MenuItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range items {
		s.insertMenuItem(&items[i])
	}
	return nil
}

func (s *MemoryStore) GetMenuItem(_ context.Context, id string) (*model.MenuItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.menuItems[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *item
	return &out, nil
}

func (s *MemoryStore) insertMenuItem(item *model.MenuItem) {
	s.register(&item.ID, &item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	stored := *item
	s.menuItems[item.ID] = &stored
}

func (s *MemoryStore) ListMenuItems(_ context.Context, availableOnly bool) ([]model.MenuItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := make([]model.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		if availableOnly && !item.Available {
			continue
		}
		items = append(items, *item)
	}

	if availableOnly {
		sort.Slice(items, func(i, j int) bool {
			if items[i].Category != items[j].Category {
				return items[i].Category < items[j].Category
			}
			return items[i].Name < items[j].Name
		})
	} else {
		sort.Slice(items, func(i, j int) bool {
			return s.newerFirst(items[i].ID, items[i].CreatedAt, items[j].ID, items[j].CreatedAt)
		})
	}
	return items, nil
}

func (s *MemoryStore) FindAvailableMenuItems(_ context.Context, ids []string) ([]model.MenuItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	seen := make(map[string]bool, len(ids))
	var items []model.MenuItem
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if item, exists := s.menuItems[id]; exists && item.Available {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (s *MemoryStore) UpdateMenuItem(_ context.Context, id string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item, exists := s.menuItems[id]
	if !exists {
		return nil, ErrNotFound
	}
	update.Apply(item)
	item.UpdatedAt = time.Now()
	out := *item
	return &out, nil
}

func (s *MemoryStore) DeleteMenuItem(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.menuItems[id]; !exists {
		return ErrNotFound
	}
	delete(s.order, id)
	delete(s.menuItems, id)
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *model.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.register(&order.ID, &order.CreatedAt)
	order.UpdatedAt = order.CreatedAt
	stored := copyOrder(order)
	s.orders[order.ID] = &stored
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := copyOrder(order)
	return &out, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, tableID string) ([]model.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]model.Order, 0)
	for _, order := range s.orders {
		if tableID != "" && order.TableID != tableID {
			continue
		}
		orders = append(orders, copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		return s.newerFirst(orders[i].ID, orders[i].CreatedAt, orders[j].ID, orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status model.OrderStatus, at time.Time) (*model.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	order.ApplyStatus(status, at)
	out := copyOrder(order)
	return &out, nil
}

func copyOrder(o *model.Order) model.Order {
	out := *o
	out.Items = append([]model.OrderItem(nil), o.Items...)
	if out.Items == nil {
		out.Items = []model.OrderItem{}
	}
	return out
}

func (s *MemoryStore) CreateFeedback(_ context.Context, feedback *model.Feedback) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.register(&feedback.ID, &feedback.CreatedAt)
	stored := *feedback
	s.feedback[feedback.ID] = &stored
	return nil
}

func (s *MemoryStore) ListFeedback(_ context.Context) ([]model.Feedback, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	list := make([]model.Feedback, 0, len(s.feedback))
	for _, f := range s.feedback {
		list = append(list, *f)
	}
	sort.Slice(list, func(i, j int) bool {
		return s.newerFirst(list[i].ID, list[i].CreatedAt, list[j].ID, list[j].CreatedAt)
	})
	return list, nil
}

func (s *MemoryStore) CreateWaiterCall(_ context.Context, call *model.WaiterCall) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.register(&call.ID, &call.CreatedAt)
	stored := *call
	s.waiterCalls[call.ID] = &stored
	return nil
}

func (s *MemoryStore) ListWaiterCalls(_ context.Context, pendingOnly bool) ([]model.WaiterCall, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	calls := make([]model.WaiterCall, 0)
	for _, call := range s.waiterCalls {
		if pendingOnly && call.Acknowledged {
			continue
		}
		calls = append(calls, *call)
	}
	sort.Slice(calls, func(i, j int) bool {
		return s.newerFirst(calls[i].ID, calls[i].CreatedAt, calls[j].ID, calls[j].CreatedAt)
	})
	return calls, nil
}

func (s *MemoryStore) AcknowledgeWaiterCall(_ context.Context, id string, at time.Time) (*model.WaiterCall, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	call, exists := s.waiterCalls[id]
	if !exists {
		return nil, ErrNotFound
	}
	call.Acknowledged = true
	call.AcknowledgedAt = &at
	out := *call
	return &out, nil
}

func (s *MemoryStore) Summary(_ context.Context, since time.Time) (*model.AnalyticsSummary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summary := &model.AnalyticsSummary{}

	sold := map[string]int{}
	perTable := map[string]int{}
	var prepTotal float64
	var prepCount int
	for _, order := range s.orders {
		if !order.CreatedAt.Before(since) {
			summary.DailyOrders++
		}
		for _, item := range order.Items {
			sold[item.Name] += item.Quantity
		}
		perTable[order.TableID]++
		if order.ServedAt != nil {
			prepTotal += order.ServedAt.Sub(order.CreatedAt).Minutes()
			prepCount++
		}
	}

	sales := make([]model.ItemSales, 0, len(sold))
	for name, qty := range sold {
		sales = append(sales, model.ItemSales{Name: name, Qty: qty})
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].Qty != sales[j].Qty {
			return sales[i].Qty > sales[j].Qty
		}
		return sales[i].Name < sales[j].Name
	})
	summary.TopSelling = firstN(sales, 5)

	least := append([]model.ItemSales(nil), sales...)
	sort.Slice(least, func(i, j int) bool {
		if least[i].Qty != least[j].Qty {
			return least[i].Qty < least[j].Qty
		}
		return least[i].Name < least[j].Name
	})
	summary.LeastSelling = firstN(least, 5)

	if len(s.feedback) > 0 {
		var total float64
		for _, f := range s.feedback {
			total += float64(f.FoodRating+f.ServiceRating) / 2
		}
		avg := total / float64(len(s.feedback))
		summary.Satisfaction = &avg
	}

	for tableID, count := range perTable {
		b := summary.BusiestTable
		if b == nil || count > b.Orders || (count == b.Orders && tableID < b.TableID) {
			summary.BusiestTable = &model.TableLoad{TableID: tableID, Orders: count}
		}
	}

	if prepCount > 0 {
		avg := prepTotal / float64(prepCount)
		summary.AvgPrepMinutes = &avg
	}

	return summary, nil
}

func firstN(sales []model.ItemSales, n int) []model.ItemSales {
	if len(sales) > n {
		sales = sales[:n]
	}
	out := make([]model.ItemSales, len(sales))
	copy(out, sales)
	return out
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
