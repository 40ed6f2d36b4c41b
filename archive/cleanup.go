package archive

import (
	"log/slog"
	"os"

	"github.com/use-agent/orderbot/models"
)

// Cleanup recursively deletes dirs. Directories that are already gone are
// skipped, so running it twice is harmless.
func Cleanup(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return models.NewRunError(models.ErrCodeCleanup, "failed to remove "+dir, err)
		}
		slog.Debug("removed", "dir", dir)
	}
	return nil
}
