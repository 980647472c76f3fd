package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"qrmenu/model"
	"qrmenu/service"
	"qrmenu/utils"
)

type OrderController struct {
	orders *service.OrderService
	log    *zap.Logger
}

func NewOrderController(orders *service.OrderService, log *zap.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

// PlaceOrder handles a new order from the authenticated table.
func (o *OrderController) PlaceOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No items")
		return
	}

	order, err := o.orders.PlaceOrder(c.Request.Context(), utils.TableIDFromContext(c), req)
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (o *OrderController) TableOrders(c *gin.Context) {
	orders, err := o.orders.ListOrders(c.Request.Context(), utils.TableIDFromContext(c))
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (o *OrderController) AllOrders(c *gin.Context) {
	orders, err := o.orders.ListOrders(c.Request.Context(), "")
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (o *OrderController) Fulfill(c *gin.Context) {
	order, err := o.orders.Fulfill(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus handles moving an order through the kitchen pipeline.
func (o *OrderController) UpdateStatus(c *gin.Context) {
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid status")
		return
	}

	order, err := o.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (o *OrderController) CallWaiter(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&req)

	if _, err := o.orders.CallWaiter(c.Request.Context(), utils.TableIDFromContext(c), req.Note); err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WaiterCalls retrieves waiter calls, only unacknowledged ones with ?pending=true.
func (o *OrderController) WaiterCalls(c *gin.Context) {
	calls, err := o.orders.ListWaiterCalls(c.Request.Context(), c.Query("pending") == "true")
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, calls)
}

func (o *OrderController) AcknowledgeWaiterCall(c *gin.Context) {
	call, err := o.orders.AcknowledgeWaiterCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (o *OrderController) SubmitFeedback(c *gin.Context) {
	var req service.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}

	feedback, err := o.orders.SubmitFeedback(c.Request.Context(), utils.TableIDFromContext(c), req)
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

func (o *OrderController) ListFeedback(c *gin.Context) {
	feedback, err := o.orders.ListFeedback(c.Request.Context())
	if err != nil {
		respondError(c, o.log, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}
