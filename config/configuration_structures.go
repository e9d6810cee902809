package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration : обёртка над time.Duration, которая читается из yaml строкой вида "5s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("длительность должна быть строкой: %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("неверный формат длительности %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    Duration `yaml:"query_timeout"`
	Migrate         bool     `yaml:"migrate"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Local     bool   `yaml:"local"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	// PublicBaseURL : если задан, публичные ссылки на превью строятся от него, иначе выдаётся pre-signed GET
	PublicBaseURL string        `yaml:"public_base_url"`
	PresignTTL    Duration      `yaml:"presign_ttl"`
	FetchTimeout  Duration      `yaml:"fetch_timeout"`
	PutTimeout    Duration      `yaml:"put_timeout"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests uint32   `yaml:"max_requests"`
	Interval    Duration `yaml:"interval"`
	Timeout     Duration `yaml:"timeout"`
	MinRequests uint32   `yaml:"min_requests"`
	FailureRate float64  `yaml:"failure_rate"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	ShareTTL Duration `yaml:"share_ttl"`
}

type JWTConfig struct {
	SecretKey      string   `yaml:"secret_key"`
	AccessTokenTTL Duration `yaml:"access_token_ttl"`
	CookieName     string   `yaml:"cookie_name"`
	CookieSecure   bool     `yaml:"cookie_secure"`
}

// StorageConfig : параметры хранилища, которые видит ядро сервиса
type StorageConfig struct {
	CapMB       float64 `yaml:"cap_mb"`
	BaseURL     string  `yaml:"base_url"`
	MaxUploadMB int64   `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ReconcileConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Interval    Duration `yaml:"interval"`
	BatchSize   int      `yaml:"batch_size"`
	GracePeriod Duration `yaml:"grace_period"`
}
