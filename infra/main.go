package infra

import (
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/infra/produce"
)

type Infra struct {
	Logger    *LoggerClient
	Telemetry *TelemetryClient
	Storage   ArtifactStore
	Engine    StitchEngine
	Redis     *RedisClient
	RabbitMQ  *RabbitMQClient
	Minio     *MinioClient
	Produce   *produce.Produce
}

var infraInstance *Infra

// InitInfra wires the clients the configuration asks for. Redis, RabbitMQ
// and MinIO are optional: with the default local storage and local queue the
// service runs standalone against nothing but the engine sidecar.
func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	env := cfg.EnvConfig

	logger := InitLoggerClient(env)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetry(env)

	engine := InitStitchEngineService(env)
	if engine == nil {
		panic("Failed to initialize Stitch Engine service")
	}

	infra := &Infra{
		Logger:    logger,
		Telemetry: telemetry,
		Engine:    engine,
	}

	if env.Redis.RedisHost != "" {
		infra.Redis = InitRedisClient(env)
	}

	switch env.Storage.Backend {
	case "minio":
		infra.Minio = InitMinioClient(env)
		infra.Storage = infra.Minio
	default:
		infra.Storage = InitLocalStorageClient(env)
	}

	if env.Queue.Backend == "rabbitmq" {
		infra.RabbitMQ = InitRabbitMQClient(env)
		infra.Produce = produce.InitProduce(infra.RabbitMQ.Channel)
		if infra.Produce == nil {
			panic("Failed to initialize Produce service")
		}
	}

	infraInstance = infra
	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
