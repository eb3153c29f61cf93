package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/http/response"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type IntroductionHandler struct {
	intros services.IntroductionService
}

func NewIntroductionHandler(intros services.IntroductionService) *IntroductionHandler {
	return &IntroductionHandler{intros: intros}
}

// POST /api/v1/introductions
// body: { "member_id": "..." }
func (h *IntroductionHandler) Propose(c *gin.Context) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	res, err := h.intros.Propose(c.Request.Context(), req.MemberID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}

	body := gin.H{
		"outcome": res.Outcome,
		"message": res.Message,
	}
	if res.Introduction != nil {
		body["introduction"] = res.Introduction
	}
	if res.Usage != nil {
		body["quota"] = gin.H{
			"count":     res.Usage.Count,
			"cap":       res.Usage.Cap,
			"remaining": res.Usage.Remaining(),
			"reset_at":  res.Usage.ResetAt,
		}
	}
	response.RespondOK(c, body)
}

// POST /api/v1/introductions/respond
// body: { "member_id": "...", "accept": true }
func (h *IntroductionHandler) Respond(c *gin.Context) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		Accept   *bool     `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Accept == nil {
		response.RespondError(c, http.StatusBadRequest, "accept_required", nil)
		return
	}

	res, err := h.intros.Respond(c.Request.Context(), req.MemberID, *req.Accept)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}

	body := gin.H{
		"outcome": res.Outcome,
		"message": res.Message,
	}
	if res.Introduction != nil {
		body["introduction"] = res.Introduction
	}
	if res.Connection != nil {
		body["connection"] = res.Connection
	}
	response.RespondOK(c, body)
}
