package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-stitch-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware gin.HandlerFunc
	BodyLimit      gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	bodyLimit := BodyLimitMiddleware(ctrl.Config.EnvConfig.Server.MaxBodyBytes)

	return &Middlewares{
		CORSMiddleware: cors,
		BodyLimit:      bodyLimit,
	}, nil
}
