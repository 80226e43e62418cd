package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	invoiceapp "github.com/sawi/backend/internal/application/invoice"
	"github.com/sawi/backend/internal/interfaces/http/middleware"
)

// AddedByHeader names the user recorded as the creator of manual and
// imported invoices
const AddedByHeader = "X-User-Email"

// InvoiceHandler serves the invoice lifecycle API
type InvoiceHandler struct {
	BaseHandler
	svc *invoiceapp.Service
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(svc *invoiceapp.Service) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// ActionRequest is the body of POST /invoices/:id/actions
type ActionRequest struct {
	Type   string `json:"type" binding:"required"`
	Reason string `json:"reason"`
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	corporateID, ok := h.actingCorporate(c)
	if !ok {
		return
	}
	var req invoiceapp.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.CorporateID = corporateID
	req.AddedBy = c.GetHeader(AddedByHeader)

	inv, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// BulkImport handles POST /invoices/bulk with a multipart CSV in "file"
func (h *InvoiceHandler) BulkImport(c *gin.Context) {
	corporateID, ok := h.actingCorporate(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A CSV file is required in the 'file' field")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		h.BadRequest(c, "Only CSV files are accepted")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	result, err := h.svc.BulkImport(c.Request.Context(), corporateID, c.GetHeader(AddedByHeader), file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List handles GET /invoices. With an X-Corporate-ID header the list is
// scoped to the caller's invoices, and type=payable|receivable picks a side.
// Query: type, payer_id, payee_id, status, av_status, issue_date_from,
// issue_date_to, sort, limit, offset
func (h *InvoiceHandler) List(c *gin.Context) {
	req := invoiceapp.ListInvoicesRequest{
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		AVStatus: c.Query("av_status"),
		Sort:     c.Query("sort"),
	}
	if id, ok := middleware.GetCorporateID(c); ok {
		req.CorporateID = &id
	}

	var ok bool
	if req.PayerID, ok = h.queryUUID(c, "payer_id"); !ok {
		return
	}
	if req.PayeeID, ok = h.queryUUID(c, "payee_id"); !ok {
		return
	}
	if req.IssueDateFrom, ok = h.queryDate(c, "issue_date_from"); !ok {
		return
	}
	if req.IssueDateTo, ok = h.queryDate(c, "issue_date_to"); !ok {
		return
	}
	if req.Limit, req.Offset, ok = h.queryPage(c); !ok {
		return
	}

	page, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "invoice")
	if !ok {
		return
	}

	inv, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "invoice")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// PerformAction handles POST /invoices/:id/actions
func (h *InvoiceHandler) PerformAction(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "invoice")
	if !ok {
		return
	}
	actor, ok := h.actingCorporate(c)
	if !ok {
		return
	}
	var body ActionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	inv, err := h.svc.PerformAction(c.Request.Context(), invoiceapp.PerformActionRequest{
		InvoiceID:        id,
		Type:             body.Type,
		ActorCorporateID: actor,
		Reason:           body.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}
