package store

import (
	"context"
	"fmt"

	"dbx-go/internal/config"
	"dbx-go/internal/dbx"
)

// NewStoreFromConfig creates a FileStore implementation based on the store config type.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (dbx.FileStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.Location == "" {
			return nil, fmt.Errorf("filesystem store requires location to be set")
		}
		return NewFileSystemStore(cfg.Location)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
