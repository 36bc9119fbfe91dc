package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/magda-ensemble/internal/ensemble"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports service health
type HealthHandler struct {
	library *ensemble.Library
}

func NewHealthHandler(library *ensemble.Library) *HealthHandler {
	return &HealthHandler{library: library}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	libraryStatus := "disabled"
	names := h.library.Names()
	if len(names) > 0 {
		libraryStatus = "loaded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"ensemble_library": gin.H{
			"status":    libraryStatus,
			"ensembles": len(names),
		},
	})
}
