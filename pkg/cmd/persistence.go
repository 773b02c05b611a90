// Package cmd provides the factories shared by the command-line entry
// points: persistence, cache and catalogue construction from URLs.
package cmd

import (
	"strings"

	"github.com/mosaicdash/mosaic/pkg/persistence"
	"github.com/mosaicdash/mosaic/pkg/persistence/file"
)

var supportedPersistenceProviders = []string{"file"}

func NewPersistence(databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
