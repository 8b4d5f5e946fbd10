package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	ifserrors "ifs-get/ifsget/errors"
)

// Backend selects the content store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFS     Backend = "fs"
	BackendS3     Backend = "s3"
)

// S3Config holds settings for the S3-backed store. Endpoint is only needed
// for S3-compatible services like MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config is the process configuration for ifsget.
type Config struct {
	Backend   Backend
	Root      string // store directory for the fs backend
	ChunkSize int64
	LogLevel  string
	S3        S3Config
}

// Default returns the configuration used when no environment is set: a
// filesystem store under ./ifs-store with 1 MiB chunks.
func Default() *Config {
	return &Config{
		Backend:   BackendFS,
		Root:      "ifs-store",
		ChunkSize: 1 << 20,
		LogLevel:  "error",
	}
}

// Load builds the configuration from the environment. A .env file in the
// working directory is applied first, without overriding variables already
// set in the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, ifserrors.ErrInvalidConfig.WithCause(fmt.Errorf("failed to load .env: %w", err))
		}
	}

	cfg := Default()

	if v := os.Getenv("IFSGET_STORE_BACKEND"); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := os.Getenv("IFSGET_STORE_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("IFSGET_CHUNK_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, ifserrors.ErrInvalidConfig.WithDetail("IFSGET_CHUNK_SIZE", v).WithCause(err)
		}
		cfg.ChunkSize = size
	}
	if v := os.Getenv("IFSGET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.S3.Bucket = os.Getenv("IFSGET_S3_BUCKET")
	cfg.S3.Region = os.Getenv("IFSGET_S3_REGION")
	cfg.S3.Endpoint = os.Getenv("IFSGET_S3_ENDPOINT")
	cfg.S3.Prefix = os.Getenv("IFSGET_S3_PREFIX")
	cfg.S3.AccessKeyID = os.Getenv("IFSGET_S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = os.Getenv("IFSGET_S3_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFS:
		if c.Root == "" {
			return ifserrors.ErrInvalidConfig.WithMessage("fs backend requires a store root")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return ifserrors.ErrInvalidConfig.WithMessage("s3 backend requires a bucket")
		}
	default:
		return ifserrors.ErrInvalidConfig.WithDetail("backend", string(c.Backend))
	}

	if c.ChunkSize <= 0 {
		return ifserrors.ErrInvalidConfig.WithDetail("chunkSize", c.ChunkSize)
	}
	return nil
}
