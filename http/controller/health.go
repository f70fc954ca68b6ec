package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-stitch-service/http/controller/dto"
	"github.com/tnqbao/gau-stitch-service/utils"
)

// HealthCheck reports service liveness and whether the engine sidecar is
// reachable. An unreachable engine is reported, not treated as a failure of
// this service.
func (ctrl *Controller) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	response := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	health, err := ctrl.Infra.Engine.Health(ctx)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Health] Stitch engine unreachable: %v", err)
		response.StitcherAvailable = false
	} else {
		response.StitcherAvailable = true
		response.EngineVersion = health.EngineVersion
	}

	utils.JSON200(c, response)
}
