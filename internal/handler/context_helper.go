package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/codepet/classroom-sync-api/internal/middleware"
	"github.com/codepet/classroom-sync-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.OwnerClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.OwnerClaims)
	if !ok {
		return nil
	}
	return claims
}
