package config

import (
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	Server struct {
		Port         string
		MaxBodyBytes int64
	}
	Storage struct {
		Backend   string // "local" or "minio"
		UploadDir string
		OutputDir string
		Bucket    string
	}
	Queue struct {
		Backend     string // "local" or "rabbitmq"
		WorkerCount int
	}
	Stitcher struct {
		EngineURL           string
		ConfidenceThreshold float64
		RegistrationResol   float64
		SeamEstimationResol float64
		CompositingResol    float64
		MaxImageWidth       int
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Server
	config.Server.Port = os.Getenv("SERVER_PORT")
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if val := os.Getenv("MAX_BODY_BYTES"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Server.MaxBodyBytes = parsed
		}
	}
	if config.Server.MaxBodyBytes == 0 {
		config.Server.MaxBodyBytes = 500 * 1024 * 1024 // Default 500MB per batch
	}

	// Artifact storage
	config.Storage.Backend = os.Getenv("STORAGE_BACKEND")
	if config.Storage.Backend == "" {
		config.Storage.Backend = "local"
	}
	config.Storage.UploadDir = os.Getenv("UPLOAD_DIR")
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}
	config.Storage.OutputDir = os.Getenv("OUTPUT_DIR")
	if config.Storage.OutputDir == "" {
		config.Storage.OutputDir = "outputs"
	}
	config.Storage.Bucket = os.Getenv("STORAGE_BUCKET")
	if config.Storage.Bucket == "" {
		config.Storage.Bucket = "stitch-artifacts"
	}

	// Job queue
	config.Queue.Backend = os.Getenv("QUEUE_BACKEND")
	if config.Queue.Backend == "" {
		config.Queue.Backend = "local"
	}
	config.Queue.WorkerCount, _ = strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if config.Queue.WorkerCount <= 0 {
		config.Queue.WorkerCount = 2
	}

	// Stitching engine
	config.Stitcher.EngineURL = os.Getenv("STITCH_ENGINE_URL")
	if config.Stitcher.EngineURL == "" {
		config.Stitcher.EngineURL = "http://localhost:5000"
	}
	config.Stitcher.ConfidenceThreshold = parseFloatEnv("STITCH_CONFIDENCE_THRESHOLD", 0.3)
	config.Stitcher.RegistrationResol = parseFloatEnv("STITCH_REGISTRATION_RESOL", 0.6)
	config.Stitcher.SeamEstimationResol = parseFloatEnv("STITCH_SEAM_ESTIMATION_RESOL", 0.1)
	config.Stitcher.CompositingResol = parseFloatEnv("STITCH_COMPOSITING_RESOL", -1)
	config.Stitcher.MaxImageWidth, _ = strconv.Atoi(os.Getenv("STITCH_MAX_IMAGE_WIDTH"))
	if config.Stitcher.MaxImageWidth <= 0 {
		config.Stitcher.MaxImageWidth = 2000
	}

	// Redis (optional job snapshot mirror)
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")
	if config.Redis.RedisPort == "" {
		config.Redis.RedisPort = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gau-stitch-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}
	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	return &config
}

func parseFloatEnv(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
