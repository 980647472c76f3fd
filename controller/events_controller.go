package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"io"
	"net/http"
	"qrmenu/events"
	"qrmenu/utils"
	"time"
)

type EventsController struct {
	broker    events.Broker
	log       *zap.Logger
	heartbeat time.Duration
}

func NewEventsController(broker events.Broker, log *zap.Logger) *EventsController {
	return &EventsController{broker: broker, log: log, heartbeat: 25 * time.Second}
}

// OwnerStream sends every event.
func (e *EventsController) OwnerStream(c *gin.Context) {
	e.stream(c, func(events.Event) bool { return true })
}

// TableStream sends only the events of the caller's table.
func (e *EventsController) TableStream(c *gin.Context) {
	tableID := utils.TableIDFromContext(c)
	e.stream(c, func(ev events.Event) bool { return ev.TableID == tableID })
}

func (e *EventsController) stream(c *gin.Context, want func(events.Event) bool) {
	ctx := c.Request.Context()
	ch, cancel, err := e.broker.Subscribe(ctx)
	if err != nil {
		respondError(c, e.log, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"at": time.Now()})
	c.Writer.Flush()

	ticker := time.NewTicker(e.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			if want(ev) {
				c.SSEvent(ev.Type, ev)
			}
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
