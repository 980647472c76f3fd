package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"net/url"
	"qrmenu/database"
	"qrmenu/model"
	"qrmenu/service"
	"strings"
)

type TableController struct {
	store        database.Store
	orders       *service.OrderService
	log          *zap.Logger
	clientOrigin string
}

func NewTableController(store database.Store, orders *service.OrderService, log *zap.Logger, clientOrigin string) *TableController {
	return &TableController{store: store, orders: orders, log: log, clientOrigin: clientOrigin}
}

func (t *TableController) ListTables(c *gin.Context) {
	tables, err := t.store.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (t *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableID       string `json:"tableId"`
		TablePassword string `json:"tablePassword"`
		Name          string `json:"name"`
		Active        *bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.TableID = strings.TrimSpace(req.TableID)
	// Validate the id and password are provided
	if req.TableID == "" || req.TablePassword == "" {
		badRequest(c, "Missing fields")
		return
	}

	table := &model.Table{
		TableID:       req.TableID,
		TablePassword: req.TablePassword,
		Name:          req.Name,
		Active:        true,
	}
	if req.Active != nil {
		table.Active = *req.Active
	}

	if err := t.store.CreateTable(c.Request.Context(), table); err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

// UpdateTable handles renaming, enabling or changing the password of a table.
func (t *TableController) UpdateTable(c *gin.Context) {
	var update model.TableUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if update.TablePassword != nil && *update.TablePassword == "" {
		badRequest(c, "tablePassword must not be empty")
		return
	}

	table, err := t.store.UpdateTable(c.Request.Context(), c.Param("tableId"), update)
	if err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (t *TableController) DeleteTable(c *gin.Context) {
	if err := t.store.DeleteTable(c.Request.Context(), c.Param("tableId")); err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TableURL is the customer link encoded in a table's QR code.
func TableURL(clientOrigin, tableID string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(tableID), "+", "%20")
	return strings.TrimRight(clientOrigin, "/") + "/?table=" + escaped
}

func (t *TableController) TableQR(c *gin.Context) {
	table, err := t.store.GetTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tableId": table.TableID,
		"url":     TableURL(t.clientOrigin, table.TableID),
	})
}

// ResetTable handles marking a table free once the guests have left.
func (t *TableController) ResetTable(c *gin.Context) {
	if _, err := t.orders.ResetTable(c.Request.Context(), c.Param("tableId")); err != nil {
		respondError(c, t.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
