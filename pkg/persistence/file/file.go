// Package file provides file-based persistence for workspaces. One JSON
// document per workspace under <root>/workspaces.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/persistence"
)

const fileMode = 0o644

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is stripped for symmetry with other providers.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (fp *Persistence) workspacesDir() string {
	return filepath.Join(fp.root, "workspaces")
}

func (fp *Persistence) workspacePath(id string) string {
	return filepath.Join(fp.workspacesDir(), id+".json")
}

func (fp *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	root := os.DirFS(fp.workspacesDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace files: %w", err)
	}

	workspaces := make([]*models.Workspace, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workspace, err := fp.WorkspaceByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		workspaces = append(workspaces, workspace)
	}

	return workspaces, nil
}

func (fp *Persistence) WorkspaceByID(_ context.Context, id string) (*models.Workspace, error) {
	data, err := os.ReadFile(fp.workspacePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewWorkspaceError("GetByID", id, persistence.ErrWorkspaceNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, err)
	}

	var workspace models.Workspace
	if err := json.Unmarshal(data, &workspace); err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, err)
	}

	return &workspace, nil
}

// SaveWorkspace replaces the whole workspace document. Last write wins.
func (fp *Persistence) SaveWorkspace(_ context.Context, workspace *models.Workspace) error {
	if err := os.MkdirAll(fp.workspacesDir(), 0o755); err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	data, err := json.MarshalIndent(workspace, "", "  ")
	if err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	if err := os.WriteFile(fp.workspacePath(workspace.ID), data, fileMode); err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	return nil
}

func (fp *Persistence) DeleteWorkspace(_ context.Context, id string) error {
	err := os.Remove(fp.workspacePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.NewWorkspaceError("Delete", id, persistence.ErrWorkspaceNotFound)
	}

	if err != nil {
		return persistence.NewWorkspaceError("Delete", id, err)
	}

	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there
// is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
