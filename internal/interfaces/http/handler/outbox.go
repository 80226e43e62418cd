package handler

import (
	"github.com/gin-gonic/gin"
	eventapp "github.com/sawi/backend/internal/application/event"
)

// OutboxHandler serves dead letter inspection and retry for the
// notification outbox
type OutboxHandler struct {
	BaseHandler
	outboxService *eventapp.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// GetDeadLetterEntries handles GET /system/outbox/dead
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	limit, offset, ok := h.queryPage(c)
	if !ok {
		return
	}

	page, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// RetryDeadEntry handles POST /system/outbox/:id/retry
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// GetStats handles GET /system/outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
