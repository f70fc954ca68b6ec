package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-stitch-service/http/controller"
	middlewares "github.com/tnqbao/gau-stitch-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	apiRoutes := r.Group("/api")
	{
		apiRoutes.GET("/health", ctrl.HealthCheck)
		apiRoutes.POST("/stitch", middles.BodyLimit, ctrl.SubmitStitch)
		apiRoutes.GET("/status/:job_id", ctrl.GetJobStatus)
		apiRoutes.GET("/download/:job_id", ctrl.DownloadResult)
	}

	return r
}
