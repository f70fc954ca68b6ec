package controller

import (
	"context"

	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/entity"
	"github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
)

// JobDispatcher schedules an accepted job for background execution. The
// in-process pool and the AMQP publisher both satisfy it.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job *entity.Job) error
}

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Dispatcher JobDispatcher
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, dispatcher JobDispatcher) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	if dispatcher == nil {
		panic("Failed to initialize Job dispatcher")
	}
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Dispatcher: dispatcher,
	}
}
