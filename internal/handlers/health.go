package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck answers liveness/readiness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "catalog-service",
	})
}
