package resolver

import (
	"fmt"

	"github.com/mosaicdash/mosaic/pkg/models"
)

// VariableValuesCacheKey keys the resolved variable map. The key embeds the
// workspace's last-modified stamp, so any workspace mutation invalidates by
// construction.
func VariableValuesCacheKey(workspace *models.Workspace, user models.User) string {
	return fmt.Sprintf("_variables_values_cache/%s/%d/%s", workspace.ID, workspace.LastModified, user.ResolutionID())
}

// GlobalDataCacheKey keys the assembled per-user workspace document.
func GlobalDataCacheKey(workspace *models.Workspace, user models.User) string {
	return fmt.Sprintf("_workspace_global_data/%s/%d/%s", workspace.ID, workspace.LastModified, user.ResolutionID())
}
