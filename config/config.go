package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

const (
	DefaultChunkSize  = 25
	DefaultTopClients = 50
	DefaultPatternA   = `^INV-\d{3,}-\d{4,}`
	DefaultPatternB   = `^IPEC Invoice \d{3,}-\d{4,}`
)

// Config is the full application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	State     StateConfig     `yaml:"state"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Reference ReferenceConfig `yaml:"reference"`
	S3        S3Config        `yaml:"s3"`
	Minio     MinioConfig     `yaml:"minio"`
	Redis     RedisConfig     `yaml:"redis"`
	Bolt      BoltConfig      `yaml:"bolt"`
	Server    ServerConfig    `yaml:"server"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       logger.Config   `yaml:"log"`
}

// LocationConfig names one source location and the file-name pattern that selects its documents.
type LocationConfig struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
}

type SourceConfig struct {
	Backend         string         `yaml:"backend"` // s3, minio or local
	Bucket          string         `yaml:"bucket"`
	LocationA       LocationConfig `yaml:"locationA"`
	LocationB       LocationConfig `yaml:"locationB"`
	PageSize        int            `yaml:"pageSize"`
	MaxDocumentSize int64          `yaml:"maxDocumentSize"`
}

type StateConfig struct {
	Backend string `yaml:"backend"` // memory, bolt, redis, s3 or minio
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type PipelineConfig struct {
	ChunkSize  int `yaml:"chunkSize"`
	TopClients int `yaml:"topClients"`
}

type ReferenceConfig struct {
	SuppliersPath  string `yaml:"suppliersPath"`
	CategoriesPath string `yaml:"categoriesPath"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Queue       string        `yaml:"queue"`
	Chain       bool          `yaml:"chain"`
	ChainDelay  time.Duration `yaml:"chainDelay"`
	Schedule    string        `yaml:"schedule"`
	Timeout     time.Duration `yaml:"timeout"`
	// Retention keeps finished warm tasks and their results inspectable.
	Retention time.Duration `yaml:"retention"`
}

// Default returns the configuration used before any file or environment is applied.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Backend:         "s3",
			LocationA:       LocationConfig{Pattern: DefaultPatternA},
			LocationB:       LocationConfig{Pattern: DefaultPatternB},
			PageSize:        1000,
			MaxDocumentSize: 20 * 1024 * 1024,
		},
		State: StateConfig{
			Backend: "redis",
			Prefix:  "build/",
		},
		Pipeline: PipelineConfig{
			ChunkSize:  DefaultChunkSize,
			TopClients: DefaultTopClients,
		},
		Reference: ReferenceConfig{
			SuppliersPath:  "data/suppliers-codes.xlsx",
			CategoriesPath: "data/categories-descriptions.xlsx",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Bolt:  BoltConfig{Path: "data/state.db"},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Worker: WorkerConfig{
			Concurrency: 1,
			Queue:       "default",
			Chain:       true,
			ChainDelay:  time.Second,
			Timeout:     10 * time.Minute,
			Retention:   24 * time.Hour,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads .env, then the YAML file at path (skipped when empty or absent), then
// environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("Warning: config file not found at %s, falling back to environment variables", path)
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source.Backend = getEnv("SOURCE_BACKEND", c.Source.Backend)
	c.Source.Bucket = getEnv("SOURCE_BUCKET", c.Source.Bucket)
	c.Source.LocationA.ID = getEnv("FOLDER_INV_A", c.Source.LocationA.ID)
	c.Source.LocationB.ID = getEnv("FOLDER_INV_B", c.Source.LocationB.ID)
	c.Source.LocationA.Pattern = getEnv("PATTERN_INV_A", c.Source.LocationA.Pattern)
	c.Source.LocationB.Pattern = getEnv("PATTERN_INV_B", c.Source.LocationB.Pattern)

	c.State.Backend = getEnv("STATE_BACKEND", c.State.Backend)
	c.State.Bucket = getEnv("STATE_BUCKET", c.State.Bucket)
	c.State.Prefix = getEnv("STATE_PREFIX", c.State.Prefix)

	c.Pipeline.ChunkSize = getEnvAsInt("CHUNK_SIZE", c.Pipeline.ChunkSize)
	c.Pipeline.TopClients = getEnvAsInt("TOP_CLIENTS", c.Pipeline.TopClients)

	c.Reference.SuppliersPath = getEnv("SUPPLIERS_XLSX", c.Reference.SuppliersPath)
	c.Reference.CategoriesPath = getEnv("CATEGORIES_XLSX", c.Reference.CategoriesPath)

	c.S3.applyEnv()
	c.Minio.applyEnv()
	c.Redis.applyEnv()
	c.Bolt.Path = getEnv("BOLT_PATH", c.Bolt.Path)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Worker.Concurrency = getEnvAsInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.Schedule = getEnv("WORKER_SCHEDULE", c.Worker.Schedule)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnv("LOG_ENCODING", c.Log.Encoding)
}

// Validate reports the first configuration problem as a configuration error.
func (c *Config) Validate() error {
	const op = "config"

	if c.Source.LocationA.ID == "" || c.Source.LocationB.ID == "" {
		return apperr.Configuration(op, "FOLDER_INV_A and FOLDER_INV_B are required")
	}
	for _, p := range []string{c.Source.LocationA.Pattern, c.Source.LocationB.Pattern} {
		if _, err := regexp.Compile(p); err != nil {
			return apperr.New(apperr.KindConfiguration, op, fmt.Sprintf("invalid location pattern %q", p), err)
		}
	}
	if c.Pipeline.ChunkSize <= 0 {
		return apperr.Configuration(op, "CHUNK_SIZE must be positive")
	}
	if c.Pipeline.TopClients <= 0 {
		return apperr.Configuration(op, "TOP_CLIENTS must be positive")
	}

	switch c.Source.Backend {
	case "s3", "minio":
		if c.Source.Bucket == "" {
			return apperr.Configuration(op, "SOURCE_BUCKET is required for "+c.Source.Backend+" source")
		}
	case "local":
	default:
		return apperr.Configuration(op, fmt.Sprintf("unsupported source backend: %q", c.Source.Backend))
	}

	switch c.State.Backend {
	case "memory":
	case "bolt":
		if c.Bolt.Path == "" {
			return apperr.Configuration(op, "BOLT_PATH is required for bolt state")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return apperr.Configuration(op, "REDIS_ADDR is required for redis state")
		}
	case "s3", "minio":
		if c.State.Bucket == "" {
			return apperr.Configuration(op, "STATE_BUCKET is required for "+c.State.Backend+" state")
		}
	default:
		return apperr.Configuration(op, fmt.Sprintf("unsupported state backend: %q", c.State.Backend))
	}

	if c.uses("minio") && c.Minio.Endpoint == "" {
		return apperr.Configuration(op, "MINIO_ENDPOINT is required")
	}
	if c.uses("s3") && c.S3.Region == "" {
		return apperr.Configuration(op, "AWS_REGION is required")
	}
	return nil
}

// ValidateShared checks that the state backend can be opened by several processes at
// once, as the API server and the worker do. bolt locks its file for a single process
// and memory state lives and dies with one process.
func (c *Config) ValidateShared() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.State.Backend {
	case "bolt", "memory":
		return apperr.Configuration("config", fmt.Sprintf(
			"state backend %q is single-process; use redis, s3 or minio when the worker runs", c.State.Backend))
	}
	return nil
}

func (c *Config) uses(backend string) bool {
	return c.Source.Backend == backend || c.State.Backend == backend
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: ignoring non-integer %s=%q", key, value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
