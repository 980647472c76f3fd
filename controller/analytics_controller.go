package controller

import (
	"bytes"
	"fmt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"qrmenu/excel"
	"qrmenu/service"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsController struct {
	analytics *service.AnalyticsService
	orders    *service.OrderService
	log       *zap.Logger
}

func NewAnalyticsController(analytics *service.AnalyticsService, orders *service.OrderService, log *zap.Logger) *AnalyticsController {
	return &AnalyticsController{analytics: analytics, orders: orders, log: log}
}

func (a *AnalyticsController) Summary(c *gin.Context) {
	summary, err := a.analytics.Summary(c.Request.Context())
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Export retrieves the analytics summary and all orders as an xlsx download.
func (a *AnalyticsController) Export(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := a.analytics.Summary(ctx)
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	orders, err := a.orders.ListOrders(ctx, "")
	if err != nil {
		respondError(c, a.log, err)
		return
	}

	var buf bytes.Buffer
	if err := excel.WriteAnalytics(&buf, summary, orders); err != nil {
		respondError(c, a.log, fmt.Errorf("export analytics: %w", err))
		return
	}

	fileName := fmt.Sprintf("analytics-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
