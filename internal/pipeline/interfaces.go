package pipeline

import (
	"context"

	"github.com/aniketwaliyan/tap-fastly/internal/catalog"
)

// Syncer runs the sync for one selected stream. *extract.Syncer implements it.
type Syncer interface {
	Sync(ctx context.Context, entry catalog.Entry) error
}
