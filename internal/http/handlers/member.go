package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/domain/member"
	"github.com/kindredlabs/kindred-backend/internal/http/response"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type MemberHandler struct {
	members services.MemberService
	quota   services.QuotaService
}

func NewMemberHandler(members services.MemberService, quota services.QuotaService) *MemberHandler {
	return &MemberHandler{members: members, quota: quota}
}

// POST /api/v1/members
// body: { "platform": "telegram", "handle": "@sam" }
func (h *MemberHandler) Ensure(c *gin.Context) {
	var req struct {
		Platform string `json:"platform"`
		Handle   string `json:"handle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	m, err := h.members.Ensure(c.Request.Context(), req.Platform, req.Handle)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"member": m})
}

// GET /api/v1/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", err)
		return
	}

	m, err := h.members.Get(c.Request.Context(), memberID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"member": m})
}

// POST /api/v1/members/:id/status
// body: { "status": "group_member", "reason": "verified at meetup" }
func (h *MemberHandler) Transition(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", err)
		return
	}

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	to, ok := member.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "unknown_status", errors.New("unknown status "+req.Status))
		return
	}

	m, err := h.members.Transition(c.Request.Context(), memberID, to, req.Reason)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"member": m})
}

// GET /api/v1/members/:id/quota
func (h *MemberHandler) Quota(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", err)
		return
	}

	m, err := h.members.Get(c.Request.Context(), memberID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	tier := member.TierForStatus(m.Status)

	allowed, usage, err := h.quota.CanSend(c.Request.Context(), nil, memberID, tier)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"tier":      tier,
		"can_send":  allowed,
		"count":     usage.Count,
		"cap":       usage.Cap,
		"remaining": usage.Remaining(),
		"reset_at":  usage.ResetAt,
	})
}
