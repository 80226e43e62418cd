package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
)

// BalanceHandler serves the pair balance read API and manual adjustments
type BalanceHandler struct {
	BaseHandler
	query  *ledgerapp.QueryService
	ledger *ledgerapp.Service
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(query *ledgerapp.QueryService, ledger *ledgerapp.Service) *BalanceHandler {
	return &BalanceHandler{query: query, ledger: ledger}
}

// AdjustmentResponse is the outcome of a manual adjustment. Balance is nil
// when the adjustment brought the pair to zero and the balance was removed.
type AdjustmentResponse struct {
	Balance *ledgerapp.BalanceResponse `json:"balance"`
	Removed bool                       `json:"removed"`
}

// List handles GET /balances
// Query: payer_id, payee_id, sort (e.g. amount_DESC|invoice_count), limit, offset
func (h *BalanceHandler) List(c *gin.Context) {
	payerID, ok := h.queryUUID(c, "payer_id")
	if !ok {
		return
	}
	payeeID, ok := h.queryUUID(c, "payee_id")
	if !ok {
		return
	}
	limit, offset, ok := h.queryPage(c)
	if !ok {
		return
	}

	page, err := h.query.ListBalances(c.Request.Context(), ledgerapp.BalanceQuery{
		PayerID: payerID,
		PayeeID: payeeID,
		Sort:    c.Query("sort"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Get handles GET /balances/:id
func (h *BalanceHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "balance")
	if !ok {
		return
	}

	balance, err := h.query.GetBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// Invoices handles GET /balances/:id/invoices
func (h *BalanceHandler) Invoices(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "balance")
	if !ok {
		return
	}
	limit, offset, ok := h.queryPage(c)
	if !ok {
		return
	}

	page, err := h.query.GetBalanceInvoices(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Adjust handles POST /balances/adjustments. A positive amount raises the
// pair balance, a negative one lowers it.
func (h *BalanceHandler) Adjust(c *gin.Context) {
	var req ledgerapp.AdjustBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	balance, err := h.ledger.UpdateBalance(c.Request.Context(), req.PayerID, req.PayeeID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if balance == nil {
		h.Success(c, AdjustmentResponse{Removed: true})
		return
	}
	resp := ledgerapp.ToBalanceResponse(balance)
	h.Success(c, AdjustmentResponse{Balance: &resp})
}
