package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/http/response"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type ConnectionHandler struct {
	connections services.ConnectionService
}

func NewConnectionHandler(connections services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// POST /api/v1/connections/confirm
// body: { "member_id": "...", "pin": "482913" }
func (h *ConnectionHandler) Confirm(c *gin.Context) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		Pin      string    `json:"pin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	res, err := h.connections.Confirm(c.Request.Context(), req.MemberID, req.Pin)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}

	body := gin.H{
		"confirmed":      res.Confirmed,
		"both_confirmed": res.BothConfirmed,
		"message":        res.Message,
	}
	if res.Connection != nil {
		body["connection"] = res.Connection
	}
	response.RespondOK(c, body)
}

// POST /api/v1/connections/:id/complete
func (h *ConnectionHandler) Complete(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_connection_id", err)
		return
	}

	if err := h.connections.Complete(c.Request.Context(), connectionID); err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
