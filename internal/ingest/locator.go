package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnies/pressure-display/internal/models"
	"github.com/rs/zerolog/log"
)

// Locate returns the regular files matching a glob pattern. A pattern that
// matches nothing yields an empty slice and no error.
func Locate(pattern string) ([]models.LogFile, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrNoMatchingFiles, pattern, err)
	}

	files := make([]models.LogFile, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			// Vanished between glob and stat; the reader will report it if
			// it is selected.
			log.Debug().Err(err).Str("path", path).Msg("Stat failed for located file")
			files = append(files, models.LogFile{Path: path, Name: filepath.Base(path)})
			continue
		}
		if info.IsDir() {
			continue
		}
		files = append(files, models.LogFile{
			Path:    path,
			Name:    filepath.Base(path),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}
