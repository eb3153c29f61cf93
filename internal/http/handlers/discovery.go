package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/http/response"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type DiscoveryHandler struct {
	discovery services.DiscoveryService
}

func NewDiscoveryHandler(discovery services.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery}
}

// POST /api/v1/discovery
// body: { "member_id": "...", "message": "free-form conversation text" }
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		Message  string    `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	res, err := h.discovery.Discover(c.Request.Context(), req.MemberID, req.Message)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}

	body := gin.H{
		"outcome": res.Outcome,
		"message": res.Message,
	}
	if res.Match != nil {
		body["match"] = res.Match
		body["score"] = res.Score
		body["created"] = res.Created
	}
	response.RespondOK(c, body)
}
