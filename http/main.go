package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/consumer/worker"
	"github.com/tnqbao/gau-stitch-service/http/controller"
	routes "github.com/tnqbao/gau-stitch-service/http/route"
	infraPkg "github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx := context.Background()

	// With the local queue backend the pipeline runs in this process on a
	// bounded pool; with rabbitmq the API only publishes and a consumer
	// process does the work.
	var dispatcher controller.JobDispatcher
	if cfg.EnvConfig.Queue.Backend == "rabbitmq" {
		dispatcher = infra.Produce.StitchService
	} else {
		processor := worker.NewProcessor(repo, infra.Storage, infra.Engine, infra.Logger, cfg.EnvConfig.Stitcher.MaxImageWidth)
		pool := worker.NewPool(processor, cfg.EnvConfig.Queue.WorkerCount)
		pool.Start(ctx)
		dispatcher = pool
	}

	ctrl := controller.NewController(cfg, infra, repo, dispatcher)

	router := routes.SetupRouter(ctrl)

	addr := ":" + cfg.EnvConfig.Server.Port
	log.Println("HTTP Server started on " + addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
