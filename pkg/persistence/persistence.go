// Package persistence provides the document storage boundary for
// workspaces. Each write is a single document replace keyed by workspace
// id; durability and isolation are the store's job, and concurrent writers
// race with last-write-wins semantics.
package persistence

import (
	"context"

	"github.com/mosaicdash/mosaic/pkg/models"
)

type Persistence interface {
	Workspaces(ctx context.Context) ([]*models.Workspace, error)
	WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error)
	SaveWorkspace(ctx context.Context, workspace *models.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
