package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness probes without touching any backing store.
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.version != "" {
		c.Header("X-Kindred-Version", h.version)
	}
	c.String(http.StatusOK, "ok")
}
