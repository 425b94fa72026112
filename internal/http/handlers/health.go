package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Collaborators records which optional backends this instance was started with.
type Collaborators struct {
	Analysis bool   `json:"analysis"`
	Email    bool   `json:"email"`
	Storage  string `json:"storage"`
	Redis    bool   `json:"redis"`
	Database string `json:"database"`
}

type HealthHandler struct {
	collab Collaborators
}

func NewHealthHandler(collab Collaborators) *HealthHandler { return &HealthHandler{collab: collab} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "collaborators": h.collab})
}
