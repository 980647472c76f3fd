package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qrmenu/config"
	"qrmenu/model"
)

// MongoStore keeps one collection per entity, named the way the original
// deployment's collections were.
type MongoStore struct {
	client      *mongo.Client
	database    *mongo.Database
	tables      *mongo.Collection
	menuItems   *mongo.Collection
	orders      *mongo.Collection
	feedback    *mongo.Collection
	waiterCalls *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg config.DatabaseConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	s := &MongoStore{
		client:      client,
		database:    db,
		tables:      db.Collection("tables"),
		menuItems:   db.Collection("menuitems"),
		orders:      db.Collection("orders"),
		feedback:    db.Collection("feedbacks"),
		waiterCalls: db.Collection("waitercalls"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.tables, mongo.IndexModel{Keys: bson.D{{Key: "tableId", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.menuItems, mongo.IndexModel{Keys: bson.D{{Key: "available", Value: 1}, {Key: "category", Value: 1}, {Key: "name", Value: 1}}}},
		{s.orders, mongo.IndexModel{Keys: bson.D{{Key: "tableId", Value: 1}}}},
		{s.orders, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
		{s.orders, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		{s.feedback, mongo.IndexModel{Keys: bson.D{{Key: "orderId", Value: 1}}}},
		{s.feedback, mongo.IndexModel{Keys: bson.D{{Key: "tableId", Value: 1}}}},
		{s.waiterCalls, mongo.IndexModel{Keys: bson.D{{Key: "acknowledged", Value: 1}, {Key: "createdAt", Value: -1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

func returnUpdated() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func assignID(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateTable(ctx context.Context, table *model.Table) error {
	assignID(&table.ID, &table.CreatedAt)
	table.UpdatedAt = table.CreatedAt
	if _, err := s.tables.InsertOne(ctx, table); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *MongoStore) GetTable(ctx context.Context, tableID string) (*model.Table, error) {
	var table model.Table
	if err := s.tables.FindOne(ctx, bson.M{"tableId": tableID}).Decode(&table); err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

func (s *MongoStore) ListTables(ctx context.Context) ([]model.Table, error) {
	return findAll[model.Table](ctx, s.tables, bson.M{}, newestFirst())
}

func (s *MongoStore) UpdateTable(ctx context.Context, tableID string, update model.TableUpdate) (*model.Table, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.TablePassword != nil {
		set["tablePassword"] = *update.TablePassword
	}
	if update.Active != nil {
		set["active"] = *update.Active
	}
	if update.Occupied != nil {
		set["occupied"] = *update.Occupied
	}

	var table model.Table
	err := s.tables.FindOneAndUpdate(ctx, bson.M{"tableId": tableID}, bson.M{"$set": set}, returnUpdated()).Decode(&table)
	if err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

func (s *MongoStore) DeleteTable(ctx context.Context, tableID string) error {
	res, err := s.tables.DeleteOne(ctx, bson.M{"tableId": tableID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateMenuItem(ctx context.Context, item *model.MenuItem) error {
	assignID(&item.ID, &item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	_, err := s.menuItems.InsertOne(ctx, item)
	return err
}

func (s *MongoStore) CreateMenuItems(ctx context.Context, items []model.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, len(items))
	for i := range items {
		assignID(&items[i].ID, &items[i].CreatedAt)
		items[i].UpdatedAt = items[i].CreatedAt
		docs[i] = items[i]
	}
	_, err := s.menuItems.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := s.menuItems.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *MongoStore) ListMenuItems(ctx context.Context, availableOnly bool) ([]model.MenuItem, error) {
	if availableOnly {
		opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
		return findAll[model.MenuItem](ctx, s.menuItems, bson.M{"available": true}, opts)
	}
	return findAll[model.MenuItem](ctx, s.menuItems, bson.M{}, newestFirst())
}

func (s *MongoStore) FindAvailableMenuItems(ctx context.Context, ids []string) ([]model.MenuItem, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}, "available": true}
	return findAll[model.MenuItem](ctx, s.menuItems, filter)
}

func (s *MongoStore) UpdateMenuItem(ctx context.Context, id string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Available != nil {
		set["available"] = *update.Available
	}
	if update.ImageURL != nil {
		set["imageUrl"] = *update.ImageURL
	}
	if update.IsVeg != nil {
		set["isVeg"] = *update.IsVeg
	}
	if update.Stock != nil {
		set["stock"] = *update.Stock
	}
	if update.Popularity != nil {
		set["popularity"] = *update.Popularity
	}
	if update.Tags != nil {
		set["tags"] = []string(*update.Tags)
	}
	if update.DiscountLabel != nil {
		set["discountLabel"] = *update.DiscountLabel
	}
	if update.CustomizationOptions != nil {
		set["customizationOptions"] = []string(*update.CustomizationOptions)
	}

	var item model.MenuItem
	err := s.menuItems.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnUpdated()).Decode(&item)
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *MongoStore) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := s.menuItems.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, order *model.Order) error {
	assignID(&order.ID, &order.CreatedAt)
	order.UpdatedAt = order.CreatedAt
	if order.Items == nil {
		order.Items = []model.OrderItem{}
	}
	_, err := s.orders.InsertOne(ctx, order)
	return err
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *MongoStore) ListOrders(ctx context.Context, tableID string) ([]model.Order, error) {
	filter := bson.M{}
	if tableID != "" {
		filter["tableId"] = tableID
	}
	return findAll[model.Order](ctx, s.orders, filter, newestFirst())
}

var stampFields = map[model.OrderStatus]string{
	model.StatusPreparing: "preparingAt",
	model.StatusReady:     "readyAt",
	model.StatusServed:    "servedAt",
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) (*model.Order, error) {
	set := bson.M{"status": status, "updatedAt": at}
	if field, ok := stampFields[status]; ok {
		set[field] = at
	}

	var order model.Order
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnUpdated()).Decode(&order)
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *MongoStore) CreateFeedback(ctx context.Context, feedback *model.Feedback) error {
	assignID(&feedback.ID, &feedback.CreatedAt)
	_, err := s.feedback.InsertOne(ctx, feedback)
	return err
}

func (s *MongoStore) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	return findAll[model.Feedback](ctx, s.feedback, bson.M{}, newestFirst())
}

func (s *MongoStore) CreateWaiterCall(ctx context.Context, call *model.WaiterCall) error {
	assignID(&call.ID, &call.CreatedAt)
	_, err := s.waiterCalls.InsertOne(ctx, call)
	return err
}

func (s *MongoStore) ListWaiterCalls(ctx context.Context, pendingOnly bool) ([]model.WaiterCall, error) {
	filter := bson.M{}
	if pendingOnly {
		filter["acknowledged"] = false
	}
	return findAll[model.WaiterCall](ctx, s.waiterCalls, filter, newestFirst())
}

func (s *MongoStore) AcknowledgeWaiterCall(ctx context.Context, id string, at time.Time) (*model.WaiterCall, error) {
	update := bson.M{"$set": bson.M{"acknowledged": true, "acknowledgedAt": at}}

	var call model.WaiterCall
	if err := s.waiterCalls.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnUpdated()).Decode(&call); err != nil {
		return nil, notFound(err)
	}
	return &call, nil
}

func salesPipeline(direction int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.name"},
			{Key: "qty", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "qty", Value: direction}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: 5}},
	}
}

type average struct {
	Avg *float64 `bson:"avg"`
}

func (s *MongoStore) Summary(ctx context.Context, since time.Time) (*model.AnalyticsSummary, error) {
	summary := &model.AnalyticsSummary{}

	daily, err := s.orders.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
	if err != nil {
		return nil, fmt.Errorf("count daily orders: %w", err)
	}
	summary.DailyOrders = daily

	if summary.TopSelling, err = aggregate[model.ItemSales](ctx, s.orders, salesPipeline(-1)); err != nil {
		return nil, fmt.Errorf("top selling: %w", err)
	}
	if summary.LeastSelling, err = aggregate[model.ItemSales](ctx, s.orders, salesPipeline(1)); err != nil {
		return nil, fmt.Errorf("least selling: %w", err)
	}
	if summary.TopSelling == nil {
		summary.TopSelling = []model.ItemSales{}
	}
	if summary.LeastSelling == nil {
		summary.LeastSelling = []model.ItemSales{}
	}

	satisfaction, err := aggregate[average](ctx, s.feedback, mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: "score", Value: bson.D{{Key: "$avg", Value: bson.A{"$foodRating", "$serviceRating"}}}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "avg", Value: bson.D{{Key: "$avg", Value: "$score"}}}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("satisfaction: %w", err)
	}
	if len(satisfaction) > 0 {
		summary.Satisfaction = satisfaction[0].Avg
	}

	busiest, err := aggregate[model.TableLoad](ctx, s.orders, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$tableId"}, {Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "orders", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("busiest table: %w", err)
	}
	if len(busiest) > 0 {
		summary.BusiestTable = &busiest[0]
	}

	prep, err := aggregate[average](ctx, s.orders, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "servedAt", Value: bson.D{{Key: "$ne", Value: nil}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "diffMinutes", Value: bson.D{{Key: "$divide", Value: bson.A{
			bson.D{{Key: "$subtract", Value: bson.A{"$servedAt", "$createdAt"}}},
			60000,
		}}}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "avg", Value: bson.D{{Key: "$avg", Value: "$diffMinutes"}}}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("average prep time: %w", err)
	}
	if len(prep) > 0 {
		summary.AvgPrepMinutes = prep[0].Avg
	}

	return summary, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
