package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kindredlabs/kindred-backend/internal/http/response"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type AdminHandler struct {
	ledger services.LedgerService
}

func NewAdminHandler(ledger services.LedgerService) *AdminHandler {
	return &AdminHandler{ledger: ledger}
}

// POST /api/v1/admin/reconcile
//
// Sweeps the match ledger for one-sided pairs and mirrors the surviving
// rows. Safe to run repeatedly; a clean ledger repairs nothing.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	repaired, err := h.ledger.Reconcile(c.Request.Context())
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"repaired": repaired})
}
