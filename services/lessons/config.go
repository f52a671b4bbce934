package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	serviceName = "lessons-service"
	envPrefix   = "LESSONS_"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type AppConfig struct {
	Name     string `koanf:"name"`
	HTTPAddr string `koanf:"http_addr"`
	Env      string `koanf:"env"`
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CORSOrigin     string        `koanf:"cors_origin"`
	ImagesDir      string        `koanf:"images_dir"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
	Seed   bool   `koanf:"seed"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
	ServiceVersion string `koanf:"service_version"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Store     StoreConfig     `koanf:"store"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

// legacyEnv maps the variable names older deployments set onto config keys.
var legacyEnv = []struct {
	variable string
	key      string
	format   func(string) string
}{
	{"PORT", "app.http_addr", func(v string) string { return ":" + v }},
	{"MONGO_URI", "mongo.uri", nil},
	{"MONGODB_URI", "mongo.uri", nil},
	{"FRONTEND_URL", "http.cors_origin", nil},
	{"OTEL_EXPORTER_OTLP_ENDPOINT", "telemetry.otlp_endpoint", nil},
}

// LoadConfig lê configs/base.yaml, depois configs/<envName>.yaml (opcional),
// depois variáveis de ambiente LESSONS_* (aninhadas com __).
func LoadConfig(pathDir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	for _, legacy := range legacyEnv {
		v, ok := os.LookupEnv(legacy.variable)
		if !ok || v == "" {
			continue
		}
		if legacy.format != nil {
			v = legacy.format(v)
		}
		if err := k.Set(legacy.key, v); err != nil {
			return Config{}, fmt.Errorf("legacy env %s: %w", legacy.variable, err)
		}
	}

	// e.g. LESSONS_MONGO__URI, LESSONS_KAFKA__BROKERS="a:9092 b:9092"
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, envPrefix), "__", "."))
		if key == "kafka.brokers" {
			return key, strings.Fields(value)
		}
		return key, value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = envName
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database required")
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.driver must be one of %s, %s, %s (got %q)", StoreMongo, StorePostgres, StoreMemory, c.Store.Driver)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic required when kafka.brokers is set")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint required when telemetry is enabled")
	}
	return nil
}
