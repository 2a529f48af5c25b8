package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/persistence/file"
	"github.com/helixcrm/helix/pkg/persistence/postgresql"
)

// NewPersistence builds the storage layer from a database URL. A
// postgres:// URL gets the SQL implementation with migrations applied;
// anything else is treated as a directory for file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}
