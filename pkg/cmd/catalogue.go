package cmd

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/catalogue"
)

// NewCatalogue loads resource descriptors from a directory of JSON files
// into an in-memory catalogue. A missing or empty directory yields an empty
// catalogue; bad descriptors are skipped with a warning.
func NewCatalogue(logger *slog.Logger, path string) catalogue.Provider {
	provider := catalogue.NewMemProvider(true)

	entries, err := os.ReadDir(path)
	if err != nil {
		logger.Warn("catalogue directory not readable, starting empty", "path", path, "error", err)

		return provider
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			logger.Warn("failed to read resource descriptor", "file", entry.Name(), "error", err)

			continue
		}

		var info catalogue.ResourceInfo
		if err := json.Unmarshal(data, &info); err != nil || info.Name == "" {
			logger.Warn("skipping invalid resource descriptor", "file", entry.Name(), "error", err)

			continue
		}

		provider.Register(&info)
	}

	return provider
}
