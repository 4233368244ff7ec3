// Package config reads the movies service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMongo  = "mongo"
	BackendDynamo = "dynamodb"
	BackendMemory = "memory"

	TracingNone = "none"
	TracingOtel = "otel"
	TracingXRay = "xray"
)

type Config struct {
	Port string

	Backend         string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	DynamoTable     string

	Tracing         string
	AllowedOrigins  []string
	MaxPageSize     int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LoadDotEnv loads variables from path into the environment. Variables
// already set are left alone, and a missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// Load builds a Config from lookup, which is normally os.LookupEnv.
func Load(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:            get("PORT", "5000"),
		Backend:         get("STORE_BACKEND", BackendMongo),
		MongoURI:        get("MONGODB_URI", ""),
		MongoDatabase:   get("MONGODB_DATABASE", "movies"),
		MongoCollection: get("MONGODB_COLLECTION", "movies"),
		DynamoTable:     get("MOVIES_NAME", ""),
		Tracing:         get("TRACING", TracingNone),
		ShutdownTimeout: 20 * time.Second,
	}

	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return Config{}, fmt.Errorf("parse PORT %q: %w", cfg.Port, err)
	}

	switch cfg.Backend {
	case BackendMongo:
		if cfg.MongoURI == "" {
			return Config{}, errors.New("MONGODB_URI is not set")
		}
	case BackendDynamo:
		if cfg.DynamoTable == "" {
			return Config{}, errors.New("MOVIES_NAME is not set")
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}

	switch cfg.Tracing {
	case TracingNone, TracingOtel, TracingXRay:
	default:
		return Config{}, fmt.Errorf("unknown TRACING %q", cfg.Tracing)
	}

	for _, o := range strings.Split(get("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	size, err := strconv.Atoi(get("MAX_PAGE_SIZE", "100"))
	if err != nil || size < 1 {
		return Config{}, errors.New("MAX_PAGE_SIZE must be a positive integer")
	}
	cfg.MaxPageSize = size

	timeout, err := time.ParseDuration(get("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = timeout

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// FromEnv loads .env from the working directory and then reads the process environment.
func FromEnv() (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return Load(os.LookupEnv)
}
