package settings

import (
	"context"

	domain "tutorbook/internal/domain/settings"
)

// Store persists the singleton AppSettings row.
type Store interface {
	Get(ctx context.Context) (domain.AppSettings, error)
	Save(ctx context.Context, value domain.AppSettings) error
}
