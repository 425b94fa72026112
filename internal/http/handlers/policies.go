package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/prism-backend/internal/http/response"
	"github.com/yungbote/prism-backend/internal/services"
)

type PolicyHandler struct {
	reviews services.ReviewService
}

func NewPolicyHandler(reviews services.ReviewService) *PolicyHandler {
	return &PolicyHandler{reviews: reviews}
}

type policySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GET /api/policies
func (h *PolicyHandler) ListPolicies(c *gin.Context) {
	all := h.reviews.Policies()
	out := make([]policySummary, 0, len(all))
	for _, p := range all {
		out = append(out, policySummary{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	response.RespondOK(c, gin.H{"policies": out})
}

// GET /api/policies/:id
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	p, ok := h.reviews.Policy(c.Param("id"))
	if !ok {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", fmt.Errorf("policy %q not found", c.Param("id")))
		return
	}
	response.RespondOK(c, gin.H{"policy": p})
}
