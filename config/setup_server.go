package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DOCVAULT_"

type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	S3        S3Config        `yaml:"s3"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// LoadConfig : читает yaml-файл поверх значений по умолчанию и применяет переменные окружения.
// Отсутствующий файл не является ошибкой, если всё нужное пришло из окружения
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:              ":5000",
			ReadHeaderTimeout: Duration(10 * time.Second),
			ShutdownTimeout:   Duration(5 * time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
			QueryTimeout:    Duration(5 * time.Second),
			Migrate:         true,
		},
		S3: S3Config{
			Bucket:       "documents",
			Region:       "us-east-1",
			PresignTTL:   Duration(15 * time.Minute),
			FetchTimeout: Duration(10 * time.Second),
			PutTimeout:   Duration(2 * time.Minute),
			Breaker: BreakerConfig{
				MaxRequests: 1,
				Interval:    Duration(time.Minute),
				Timeout:     Duration(30 * time.Second),
				MinRequests: 5,
				FailureRate: 0.6,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			ShareTTL: Duration(10 * time.Minute),
		},
		JWT: JWTConfig{
			AccessTokenTTL: Duration(24 * time.Hour),
			CookieName:     "token",
		},
		Storage: StorageConfig{
			CapMB:       500,
			MaxUploadMB: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 20,
		},
		Reconcile: ReconcileConfig{
			Enabled:     true,
			Interval:    Duration(10 * time.Minute),
			BatchSize:   100,
			GracePeriod: Duration(time.Hour),
		},
	}
}

// applyEnv : переменные окружения имеют приоритет над файлом
func applyEnv(cfg *AppConfig) error {
	if v, ok := os.LookupEnv(envPrefix + "DATABASE_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv(envPrefix + "S3_BUCKET"); ok {
		cfg.S3.Bucket = v
	}
	if v, ok := os.LookupEnv(envPrefix + "BASE_URL"); ok {
		cfg.Storage.BaseURL = v
	}
	if v, ok := os.LookupEnv(envPrefix + "JWT_SECRET"); ok {
		cfg.JWT.SecretKey = v
	}
	if v, ok := os.LookupEnv(envPrefix + "REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := os.LookupEnv(envPrefix + "STORAGE_CAP_MB"); ok {
		capMB, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("неверное значение %sSTORAGE_CAP_MB: %w", envPrefix, err)
		}
		cfg.Storage.CapMB = capMB
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("не задан database.dsn")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("не задан s3.bucket")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("не задан jwt.secret_key")
	}
	if c.Storage.CapMB <= 0 {
		return fmt.Errorf("storage.cap_mb должен быть больше нуля")
	}
	return nil
}

func SetupServer(cfg ServerConfig) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Std(),
	}

	return server, router
}

func SetupDatabase(cfg DatabaseConfig) (*Database, error) {
	return NewDatabaseConnection("postgres", cfg)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
