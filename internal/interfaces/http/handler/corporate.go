package handler

import (
	"github.com/gin-gonic/gin"
	corporateapp "github.com/sawi/backend/internal/application/corporate"
	notificationapp "github.com/sawi/backend/internal/application/notification"
)

// CorporateHandler serves corporate status changes and the notification inbox
type CorporateHandler struct {
	BaseHandler
	svc           *corporateapp.Service
	notifications *notificationapp.QueryService
}

// NewCorporateHandler creates a new CorporateHandler
func NewCorporateHandler(svc *corporateapp.Service, notifications *notificationapp.QueryService) *CorporateHandler {
	return &CorporateHandler{svc: svc, notifications: notifications}
}

// Get handles GET /corporates/:id
func (h *CorporateHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "corporate")
	if !ok {
		return
	}

	corp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, corp)
}

// Block handles POST /corporates/:id/block
func (h *CorporateHandler) Block(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "corporate")
	if !ok {
		return
	}

	corp, err := h.svc.Block(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, corp)
}

// Activate handles POST /corporates/:id/activate
func (h *CorporateHandler) Activate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "corporate")
	if !ok {
		return
	}

	corp, err := h.svc.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, corp)
}

// Notifications handles GET /corporates/:id/notifications, newest first
func (h *CorporateHandler) Notifications(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "corporate")
	if !ok {
		return
	}
	limit, offset, ok := h.queryPage(c)
	if !ok {
		return
	}

	page, err := h.notifications.ListForCorporate(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}
