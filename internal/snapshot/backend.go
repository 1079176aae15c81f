package snapshot

import (
	"context"
	"fmt"

	"github.com/codenest/codenest/internal/storage"
	"github.com/codenest/codenest/internal/storage/local"
	s3backend "github.com/codenest/codenest/internal/storage/s3"
)

// BackendConfig selects and configures the snapshot storage backend.
type BackendConfig struct {
	Backend   string // "local" or "s3"
	LocalPath string
	S3        s3backend.BackendConfig
}

// OpenBackend creates the configured storage backend.
func OpenBackend(ctx context.Context, cfg BackendConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return local.New(local.Config{RootPath: cfg.LocalPath, CreateDirs: true})
	case "s3":
		return s3backend.NewBackend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
