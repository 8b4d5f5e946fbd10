package store

import (
	"context"

	"ifs-get/ifsget"
	"ifs-get/ifsget/config"
	ifserrors "ifs-get/ifsget/errors"
)

// FromConfig builds the configured content store backend.
func FromConfig(ctx context.Context, cfg *config.Config) (ifsget.ContentStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFS:
		return NewOSStore(cfg.Root), nil
	case config.BackendS3:
		return NewS3Store(ctx, &cfg.S3)
	default:
		return nil, ifserrors.ErrInvalidConfig.WithDetail("backend", string(cfg.Backend))
	}
}
