package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qrmenu/database"
	"qrmenu/events"
	"qrmenu/model"
)

type OrderService struct {
	store  database.Store
	broker events.Broker
	log    *zap.Logger
	strict bool
	now    func() time.Time
}

// NewOrderService builds the order workflow. With strict set, status changes
// must follow the kitchen pipeline; otherwise any valid status overwrites the
// current one.
func NewOrderService(store database.Store, broker events.Broker, log *zap.Logger, strict bool) *OrderService {
	return &OrderService{
		store:  store,
		broker: broker,
		log:    log,
		strict: strict,
		now:    time.Now,
	}
}

func (s *OrderService) publish(ctx context.Context, eventType, tableID string, payload interface{}) {
	if err := s.broker.Publish(ctx, events.New(eventType, tableID, payload)); err != nil {
		s.log.Warn("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, tableID string, req PlaceOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	ids := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		if line.MenuItemID == "" {
			return nil, ErrInvalidItem
		}
		ids = append(ids, line.MenuItemID)
	}

	available, err := s.store.FindAvailableMenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	byID := make(map[string]model.MenuItem, len(available))
	for _, item := range available {
		byID[item.ID] = item
	}

	order := &model.Order{
		TableID: tableID,
		Status:  model.StatusNew,
		Notes:   req.Notes,
		Items:   make([]model.OrderItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		item, ok := byID[line.MenuItemID]
		if !ok {
			return nil, ErrInvalidItem
		}
		qty := line.Quantity.Int()
		order.Total += item.Price * float64(qty)
		order.Items = append(order.Items, model.OrderItem{
			MenuItemID:     item.ID,
			Name:           item.Name,
			Price:          item.Price,
			Quantity:       qty,
			Customizations: line.Customizations,
		})
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	occupied := true
	if _, err := s.store.UpdateTable(ctx, tableID, model.TableUpdate{Occupied: &occupied}); err != nil {
		s.log.Warn("Failed to mark table occupied", zap.String("tableId", tableID), zap.Error(err))
	}

	s.publish(ctx, events.OrderCreated, tableID, order)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, tableID string) ([]model.Order, error) {
	return s.store.ListOrders(ctx, tableID)
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if s.strict {
		current, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(status) {
			if current.Status.Terminal() {
				return nil, fmt.Errorf("%w: order is already %s", ErrTransitionNotAllowed, current.Status)
			}
			return nil, fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, current.Status, status)
		}
	}

	order, err := s.store.UpdateOrderStatus(ctx, orderID, status, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderUpdated, order.TableID, order)
	return order, nil
}

func (s *OrderService) Fulfill(ctx context.Context, orderID string) (*model.Order, error) {
	return s.UpdateStatus(ctx, orderID, model.StatusServed)
}

func (s *OrderService) CallWaiter(ctx context.Context, tableID, note string) (*model.WaiterCall, error) {
	call := &model.WaiterCall{TableID: tableID, Note: note}
	if err := s.store.CreateWaiterCall(ctx, call); err != nil {
		return nil, fmt.Errorf("create waiter call: %w", err)
	}

	s.log.Info("Waiter called", zap.String("tableId", tableID))
	s.publish(ctx, events.WaiterCalled, tableID, call)
	return call, nil
}

func (s *OrderService) ListWaiterCalls(ctx context.Context, pendingOnly bool) ([]model.WaiterCall, error) {
	return s.store.ListWaiterCalls(ctx, pendingOnly)
}

func (s *OrderService) AcknowledgeWaiterCall(ctx context.Context, id string) (*model.WaiterCall, error) {
	call, err := s.store.AcknowledgeWaiterCall(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.WaiterAcknowledged, call.TableID, call)
	return call, nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

func (s *OrderService) SubmitFeedback(ctx context.Context, tableID string, req FeedbackRequest) (*model.Feedback, error) {
	if req.OrderID == "" || req.FoodRating == 0 || req.ServiceRating == 0 {
		return nil, ErrMissingFields
	}
	if !validRating(req.FoodRating) || !validRating(req.ServiceRating) {
		return nil, ErrInvalidRating
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.TableID != tableID {
		return nil, database.ErrNotFound
	}

	feedback := &model.Feedback{
		OrderID:       order.ID,
		TableID:       tableID,
		FoodRating:    req.FoodRating,
		ServiceRating: req.ServiceRating,
		Suggestions:   req.Suggestions,
	}
	if err := s.store.CreateFeedback(ctx, feedback); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	s.publish(ctx, events.FeedbackCreated, tableID, feedback)
	return feedback, nil
}

func (s *OrderService) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	return s.store.ListFeedback(ctx)
}

// ResetTable clears the occupied flag once the guests have left.
func (s *OrderService) ResetTable(ctx context.Context, tableID string) (*model.Table, error) {
	occupied := false
	table, err := s.store.UpdateTable(ctx, tableID, model.TableUpdate{Occupied: &occupied})
	if err != nil {
		return nil, err
	}

	// Table events reach the customer stream, so the password stays out.
	s.publish(ctx, events.TableReset, tableID, map[string]interface{}{
		"tableId":  table.TableID,
		"occupied": table.Occupied,
	})
	return table, nil
}

// IsClientError reports whether err stems from a bad request rather than a
// failure of the store.
func IsClientError(err error) bool {
	for _, target := range []error{ErrNoItems, ErrInvalidItem, ErrInvalidStatus, ErrInvalidRating, ErrMissingFields} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
