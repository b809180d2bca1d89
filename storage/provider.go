package storage

import (
	"context"
	"fmt"

	"github.com/AIRpwnz/b2purge/config"
	"github.com/AIRpwnz/b2purge/model"
)

type StorageProvider interface {
	// CheckAccess verifies credentials and bucket existence before any
	// listing starts. It is cheap and must be called first.
	CheckAccess(ctx context.Context) error
	// ListVersionsStream streams every object version under the prefix,
	// including delete markers, in provider order.
	ListVersionsStream(ctx context.Context, prefix string) (<-chan model.RemoteVersion, <-chan error)
	// DeleteVersion removes one specific version. Both the version id and
	// the object name are required to disambiguate the version.
	DeleteVersion(ctx context.Context, id, name string) error
	// GetCurrentRPS returns the current requests per second rate for monitoring
	GetCurrentRPS() int64
}

func CreateStorage(cfg *config.StorageConfig) (StorageProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	switch cfg.StorageType {
	case config.StorageTypeB2:
		return NewB2Storage(cfg.B2, &cfg.Common)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
