package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
)

// LedgerHandler exposes the ledger operations normally driven by the
// scheduler and the settlement executor
type LedgerHandler struct {
	BaseHandler
	svc *ledgerapp.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(svc *ledgerapp.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// Calculate handles POST /ledger/calculate
func (h *LedgerHandler) Calculate(c *gin.Context) {
	report, err := h.svc.Calculate(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ProjectionDrift handles GET /ledger/projection-drift
func (h *LedgerHandler) ProjectionDrift(c *gin.Context) {
	drifts, err := h.svc.CheckProjection(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, drifts)
}

// ReverseRun handles POST /settlement-runs/:id/reversal
func (h *LedgerHandler) ReverseRun(c *gin.Context) {
	runID, ok := h.pathUUID(c, "id", "settlement run")
	if !ok {
		return
	}

	if err := h.svc.ApplyRunReversalTx(c.Request.Context(), runID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
