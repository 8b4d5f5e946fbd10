package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ifserrors "ifs-get/ifsget/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFS, cfg.Backend)
	assert.Equal(t, "ifs-store", cfg.Root)
	assert.Equal(t, int64(1<<20), cfg.ChunkSize)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IFSGET_STORE_BACKEND", "s3")
	t.Setenv("IFSGET_CHUNK_SIZE", "65536")
	t.Setenv("IFSGET_LOG_LEVEL", "debug")
	t.Setenv("IFSGET_S3_BUCKET", "ifs-images")
	t.Setenv("IFSGET_S3_REGION", "eu-west-1")
	t.Setenv("IFSGET_S3_PREFIX", "ifs/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendS3, cfg.Backend)
	assert.Equal(t, int64(65536), cfg.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ifs-images", cfg.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, "ifs/", cfg.S3.Prefix)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown backend",
			env:  map[string]string{"IFSGET_STORE_BACKEND": "ftp"},
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"IFSGET_STORE_BACKEND": "s3"},
		},
		{
			name: "unparseable chunk size",
			env:  map[string]string{"IFSGET_CHUNK_SIZE": "one megabyte"},
		},
		{
			name: "non-positive chunk size",
			env:  map[string]string{"IFSGET_CHUNK_SIZE": "-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, ifserrors.ErrInvalidConfig)
		})
	}
}

func TestValidate_MemoryBackend(t *testing.T) {
	cfg := &Config{Backend: BackendMemory, ChunkSize: 1024}
	assert.NoError(t, cfg.Validate())
}
