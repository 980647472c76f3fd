package route

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qrmenu/config"
	"qrmenu/database"
	"qrmenu/events"
	"qrmenu/model"
	"qrmenu/utils"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *database.MemoryStore
	broker *events.LocalBroker
	cfg    *config.Config
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ClientOrigin: "http://localhost:3000",
			UploadDir:    t.TempDir(),
		},
		Auth: config.AuthConfig{
			OwnerPassword:  "change_me_owner_password",
			OwnerJWTSecret: "owner_secret",
			TableJWTSecret: "table_secret",
			TokenTTL:       12 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{LoginRPS: 100, LoginBurst: 100},
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	store := database.NewMemoryStore()
	broker := events.NewLocalBroker()
	t.Cleanup(func() { _ = broker.Close() })

	router := NewRouter(Dependencies{
		Config: cfg,
		Store:  store,
		Broker: broker,
		Tokens: utils.NewTokenManager(cfg.Auth),
		Log:    zap.NewNop(),
	})
	return &testServer{t: t, router: router, store: store, broker: broker, cfg: cfg}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) ownerToken() string {
	w := s.do(http.MethodPost, "/api/owner/login", "", gin.H{"password": "change_me_owner_password"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]string](s.t, w)["token"]
}

func (s *testServer) tableToken(tableID, password string) string {
	w := s.do(http.MethodPost, "/api/customer/table/verify", "", gin.H{"tableId": tableID, "tablePassword": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](s.t, w).Token
}

func (s *testServer) createMenuItem(owner string, body gin.H) model.MenuItem {
	w := s.do(http.MethodPost, "/api/owner/menu", owner, body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.MenuItem](s.t, w)
}

func (s *testServer) createTable(owner, tableID, password string) {
	w := s.do(http.MethodPost, "/api/owner/tables", owner, gin.H{"tableId": tableID, "tablePassword": password})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func TestOrderingScenario(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()

	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	assert.True(t, soda.Available)
	assert.True(t, soda.IsVeg)
	assert.Equal(t, model.DefaultCustomizationOptions, soda.CustomizationOptions)

	s.createTable(owner, "T1", "pw1")
	table := s.tableToken("T1", "pw1")

	w := s.do(http.MethodGet, "/api/customer/menu", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.MenuItem](t, w), 1)

	w = s.do(http.MethodPost, "/api/customer/orders", table, gin.H{
		"items": []gin.H{{"menuItemId": soda.ID, "quantity": 2, "price": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[model.Order](t, w)
	assert.Equal(t, 80.0, order.Total)
	assert.Equal(t, model.StatusNew, order.Status)
	assert.Equal(t, "T1", order.TableID)

	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/status", owner, gin.H{"status": "preparing"})
	require.Equal(t, http.StatusOK, w.Code)
	order = decode[model.Order](t, w)
	assert.Equal(t, model.StatusPreparing, order.Status)
	assert.NotNil(t, order.PreparingAt)

	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/status", owner, gin.H{"status": "served"})
	require.Equal(t, http.StatusOK, w.Code)
	order = decode[model.Order](t, w)
	assert.NotNil(t, order.ServedAt)

	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPost, "/api/customer/feedback", table, gin.H{"orderId": order.ID, "foodRating": 4, "serviceRating": 5})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/owner/feedback", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Feedback](t, w), 2)

	w = s.do(http.MethodGet, "/api/customer/orders", table, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)

	w = s.do(http.MethodGet, "/api/owner/analytics/summary", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[model.AnalyticsSummary](t, w)
	assert.EqualValues(t, 1, summary.DailyOrders)
	assert.Equal(t, []model.ItemSales{{Name: "Soda", Qty: 2}}, summary.TopSelling)
	require.NotNil(t, summary.Satisfaction)
	assert.InDelta(t, 4.5, *summary.Satisfaction, 0.001)
	assert.Equal(t, &model.TableLoad{TableID: "T1", Orders: 1}, summary.BusiestTable)

	tables, err := s.store.ListTables(context.Background())
	require.NoError(t, err)
	assert.True(t, tables[0].Occupied)

	w = s.do(http.MethodPost, "/api/owner/tables/T1/reset", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	tbl, err := s.store.GetTable(context.Background(), "T1")
	require.NoError(t, err)
	assert.False(t, tbl.Occupied)
}

func TestTopSellingTie(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	fries := s.createMenuItem(owner, gin.H{"name": "Fries", "price": 90, "category": "Starter"})
	s.createTable(owner, "T1", "pw1")
	table := s.tableToken("T1", "pw1")

	for _, items := range [][]gin.H{
		{{"menuItemId": soda.ID, "quantity": 2}},
		{{"menuItemId": soda.ID, "quantity": "1"}, {"menuItemId": fries.ID, "quantity": 3}},
	} {
		w := s.do(http.MethodPost, "/api/customer/orders", table, gin.H{"items": items})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(http.MethodGet, "/api/owner/analytics/summary", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[model.AnalyticsSummary](t, w)
	assert.Equal(t, []model.ItemSales{{Name: "Fries", Qty: 3}, {Name: "Soda", Qty: 3}}, summary.TopSelling)
	assert.Nil(t, summary.AvgPrepMinutes)
}

func TestOrderRejections(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	hidden := s.createMenuItem(owner, gin.H{"name": "Cake", "price": 100, "category": "Dessert", "available": false})
	s.createTable(owner, "T1", "pw1")
	table := s.tableToken("T1", "pw1")

	cases := []gin.H{
		{"items": []gin.H{}},
		{},
		{"items": []gin.H{{"menuItemId": soda.ID}, {"menuItemId": hidden.ID}}},
		{"items": []gin.H{{"menuItemId": "does-not-exist"}}},
	}
	for _, body := range cases {
		w := s.do(http.MethodPost, "/api/customer/orders", table, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	orders, err := s.store.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)

	w := s.do(http.MethodPost, "/api/customer/orders", table, gin.H{"items": []gin.H{{"menuItemId": soda.ID}}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[model.Order](t, w)

	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/status", owner, gin.H{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/owner/orders/missing/status", owner, gin.H{"status": "ready"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/owner/orders/missing/fulfill", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, err := s.store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, stored.Status)

	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/fulfill", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[model.Order](t, w).ServedAt)
}

func TestStrictTransitions(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Orders.StrictTransitions = true })
	owner := s.ownerToken()
	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	s.createTable(owner, "T1", "pw1")
	table := s.tableToken("T1", "pw1")

	w := s.do(http.MethodPost, "/api/customer/orders", table, gin.H{"items": []gin.H{{"menuItemId": soda.ID}}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[model.Order](t, w)

	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/status", owner, gin.H{"status": "served"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/status", owner, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/owner/orders/"+order.ID+"/fulfill", owner, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccessGate(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	s.createTable(owner, "T1", "pw1")
	w := s.do(http.MethodPost, "/api/owner/tables", owner, gin.H{"tableId": "T2", "tablePassword": "pw2", "active": false})
	require.Equal(t, http.StatusCreated, w.Code)
	table := s.tableToken("T1", "pw1")

	for _, creds := range []gin.H{
		{"tableId": "T1", "tablePassword": "wrong"},
		{"tableId": "T404", "tablePassword": "pw1"},
		{"tableId": "T2", "tablePassword": "pw2"},
	} {
		w := s.do(http.MethodPost, "/api/customer/table/verify", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code, creds)
	}
	w = s.do(http.MethodPost, "/api/customer/table/verify", "", gin.H{"tableId": "T1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/owner/login", "", gin.H{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/owner/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, token := range []string{"", table, "garbage"} {
		w := s.do(http.MethodGet, "/api/owner/orders", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	}
	for _, token := range []string{"", owner} {
		w := s.do(http.MethodGet, "/api/customer/orders", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{LoginRPS: 0.001, LoginBurst: 2}
	})

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do(http.MethodPost, "/api/owner/login", "", gin.H{"password": "nope"}).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestMenuManagement(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()

	for _, body := range []gin.H{
		{"price": 10, "category": "Main"},
		{"name": "Soup", "category": "Main"},
		{"name": "Soup", "price": 10},
		{"name": "Soup", "price": -1, "category": "Main"},
		{"name": "Soup", "price": 10, "category": "Snacks"},
		{"name": "Soup", "price": 10, "category": "Main", "stock": -3},
	} {
		w := s.do(http.MethodPost, "/api/owner/menu", owner, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	item := s.createMenuItem(owner, gin.H{
		"name": "Soup", "price": 0, "category": "Main", "tags": "hot, vegan", "customizationOptions": []string{},
	})
	assert.Equal(t, model.StringList{"hot", "vegan"}, item.Tags)
	assert.Empty(t, item.CustomizationOptions)
	assert.Equal(t, 0.0, item.Price)

	w := s.do(http.MethodPut, "/api/owner/menu/"+item.ID, owner, gin.H{"available": false, "tags": []string{"seasonal"}})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.MenuItem](t, w)
	assert.False(t, updated.Available)
	assert.Equal(t, model.StringList{"seasonal"}, updated.Tags)
	assert.Equal(t, "Soup", updated.Name)

	w = s.do(http.MethodPut, "/api/owner/menu/"+item.ID, owner, gin.H{"price": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPut, "/api/owner/menu/missing", owner, gin.H{"price": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/customer/menu", "", nil)
	assert.Empty(t, decode[[]model.MenuItem](t, w))
	w = s.do(http.MethodGet, "/api/owner/menu", owner, nil)
	assert.Len(t, decode[[]model.MenuItem](t, w), 1)

	w = s.do(http.MethodDelete, "/api/owner/menu/"+item.ID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	w = s.do(http.MethodDelete, "/api/owner/menu/"+item.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTableManagement(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()

	w := s.do(http.MethodPost, "/api/owner/tables", owner, gin.H{"tableId": "T1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.createTable(owner, "Patio 1", "pw")
	w = s.do(http.MethodPost, "/api/owner/tables", owner, gin.H{"tableId": "Patio 1", "tablePassword": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/owner/tables/Patio%201/qr", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tableId":"Patio 1","url":"http://localhost:3000/?table=Patio%201"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/owner/tables/nope/qr", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/owner/tables/nope/reset", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/owner/tables/Patio%201", owner, gin.H{"name": "Patio", "active": false})
	require.Equal(t, http.StatusOK, w.Code)
	table := decode[model.Table](t, w)
	assert.Equal(t, "Patio", table.Name)
	assert.False(t, table.Active)

	w = s.do(http.MethodGet, "/api/owner/tables", owner, nil)
	assert.Len(t, decode[[]model.Table](t, w), 1)

	w = s.do(http.MethodDelete, "/api/owner/tables/Patio%201", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, "/api/owner/tables/Patio%201", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaiterCalls(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	s.createTable(owner, "T1", "pw1")
	table := s.tableToken("T1", "pw1")

	w := s.do(http.MethodPost, "/api/customer/call-waiter", table, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/owner/orders", owner, nil)
	assert.Empty(t, decode[[]model.Order](t, w))

	w = s.do(http.MethodGet, "/api/owner/waiter-calls?pending=true", owner, nil)
	calls := decode[[]model.WaiterCall](t, w)
	require.Len(t, calls, 1)
	assert.Equal(t, "T1", calls[0].TableID)

	w = s.do(http.MethodPost, "/api/owner/waiter-calls/"+calls[0].ID+"/ack", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/owner/waiter-calls?pending=true", owner, nil)
	assert.Empty(t, decode[[]model.WaiterCall](t, w))
	w = s.do(http.MethodPost, "/api/owner/waiter-calls/missing/ack", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedbackOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	s.createTable(owner, "T1", "pw1")
	s.createTable(owner, "T2", "pw2")
	t1 := s.tableToken("T1", "pw1")
	t2 := s.tableToken("T2", "pw2")

	w := s.do(http.MethodPost, "/api/customer/orders", t1, gin.H{"items": []gin.H{{"menuItemId": soda.ID}}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[model.Order](t, w)

	w = s.do(http.MethodPost, "/api/customer/feedback", t2, gin.H{"orderId": order.ID, "foodRating": 4, "serviceRating": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/customer/feedback", t1, gin.H{"orderId": order.ID, "foodRating": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/customer/feedback", t1, gin.H{"orderId": order.ID, "foodRating": 9, "serviceRating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func menuWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	xl := excelize.NewFile()
	defer xl.Close()
	if len(rows) == 0 {
		rows = [][]interface{}{
			{"Paneer", 250, "Starter", "yes", "yes", 5, "spicy"},
			{"Broken", "x", "Main"},
		}
	}
	rows = append([][]interface{}{{"name", "price", "category", "available", "isVeg", "stock", "tags"}}, rows...)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, xl.SetSheetRow("Sheet1", cellName, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, xl.Write(&buf))
	return buf.Bytes()
}

func (s *testServer) importMenu(owner string, workbook []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "menu.xlsx")
	require.NoError(s.t, err)
	_, err = part.Write(workbook)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/owner/menu/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestMenuImportAndExport(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()

	w := s.importMenu(owner, menuWorkbook(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	result := decode[struct {
		Imported int `json:"imported"`
		Skipped  []struct {
			Row int `json:"row"`
		} `json:"skipped"`
	}](t, w)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Row)

	w = s.do(http.MethodPost, "/api/owner/menu/import", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/owner/analytics/export", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analytics-")
	xl, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer xl.Close()
	assert.Equal(t, []string{"Summary", "Orders"}, xl.GetSheetList())
}

func TestMenuImportSkipsNonFinitePrices(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()

	w := s.importMenu(owner, menuWorkbook(t,
		[]interface{}{"Ghost", "NaN", "Main"},
		[]interface{}{"Endless", "Inf", "Main"},
		[]interface{}{"Soda", 40, "Drinks"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"imported":1`)

	w = s.do(http.MethodGet, "/api/customer/menu", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	menu := decode[[]model.MenuItem](t, w)
	require.Len(t, menu, 1)
	assert.Equal(t, "Soda", menu[0].Name)
}

func TestMenuImageUpload(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	item := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})

	upload := func(name string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/owner/menu/"+item.ID+"/image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+owner)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, upload("soda.gif").Code)

	w := upload("soda.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.MenuItem](t, w)
	assert.True(t, strings.HasPrefix(updated.ImageURL, "/uploads/menu-"+item.ID))

	w = s.do(http.MethodGet, updated.ImageURL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	eventType, _ := readEventWithData(t, r)
	return eventType
}

// readEventWithData returns the type and data lines of the next event.
func readEventWithData(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var eventType string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && eventType != "":
			return eventType, strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestEventStreams(t *testing.T) {
	s := newTestServer(t)
	owner := s.ownerToken()
	soda := s.createMenuItem(owner, gin.H{"name": "Soda", "price": 40, "category": "Drinks"})
	s.createTable(owner, "T1", "pw1")
	s.createTable(owner, "T2", "pw2")
	t1 := s.tableToken("T1", "pw1")
	t2 := s.tableToken("T2", "pw2")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	open := func(path string) *bufio.Reader {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

		r := bufio.NewReader(resp.Body)
		require.Equal(t, "ready", readEvent(t, r))
		return r
	}

	ownerStream := open("/api/owner/events?access_token=" + owner)
	t2Stream := open("/api/customer/events?access_token=" + t2)

	w := s.do(http.MethodPost, "/api/customer/orders", t1, gin.H{"items": []gin.H{{"menuItemId": soda.ID}}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, events.OrderCreated, readEvent(t, ownerStream))

	w = s.do(http.MethodPost, "/api/customer/call-waiter", t2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, events.WaiterCalled, readEvent(t, ownerStream))
	assert.Equal(t, events.WaiterCalled, readEvent(t, t2Stream))

	w = s.do(http.MethodPut, "/api/owner/tables/T2", owner, gin.H{"tablePassword": "rotated-secret"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/owner/tables/T2/reset", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	eventType, data := readEventWithData(t, t2Stream)
	assert.Equal(t, events.TableReset, eventType)
	assert.Contains(t, data, `"tableId":"T2"`)
	assert.NotContains(t, data, "rotated-secret")
	assert.NotContains(t, data, "tablePassword")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/owner/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
