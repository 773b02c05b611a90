package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicdash/mosaic/pkg/cache"
	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/layout"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/persistence"
	"github.com/mosaicdash/mosaic/pkg/persistence/file"
	"github.com/mosaicdash/mosaic/pkg/secrets"
)

const chartMashup = `{
	"vendor": "acme", "name": "sales", "version": "1.0",
	"title": "Sales Dashboard",
	"params": [{"name": "x", "type": "text", "label": "Endpoint", "required": true}],
	"tabs": [{
		"name": "main",
		"title": "Main",
		"resources": [{
			"id": "1", "vendor": "acme", "name": "chart", "version": "1.0",
			"title": "Chart",
			"preferences": {
				"endpoint": {"value": "{params.x}", "readonly": true},
				"refresh": {"value": "60"}
			}
		}]
	}],
	"wiring": {
		"operators": {"1": {"name": "acme/router/1.0"}},
		"connections": [{
			"source": {"type": "widget", "id": "1", "endpoint": "out"},
			"target": {"type": "operator", "id": "1", "endpoint": "in"}
		}]
	}
}`

func newTestService(t *testing.T) (*Workspace, *cache.Memory) {
	t.Helper()

	provider := catalogue.NewMemProvider(true)
	provider.Register(&catalogue.ResourceInfo{
		Name: "acme/chart/1.0",
		Preferences: []models.VariableDef{
			{Name: "endpoint", Type: models.VariableTypeString},
			{Name: "refresh", Type: models.VariableTypeNumber, Default: "30"},
		},
	})
	provider.Register(&catalogue.ResourceInfo{
		Name: "acme/router/1.0",
		Preferences: []models.VariableDef{
			{Name: "mode", Type: models.VariableTypeString, Default: "broadcast"},
		},
	})

	memory := cache.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewWorkspace(
		file.NewPersistence(t.TempDir()),
		memory,
		provider,
		secrets.NewCodec("test-secret"),
		logger,
	)

	return service, memory
}

func TestCreateWorkspace(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	workspace, err := service.Create(ctx, models.User{ID: "u1"}, CreateWorkspaceRequest{Name: "sales"})
	require.NoError(t, err)

	assert.NotEmpty(t, workspace.ID)
	assert.Equal(t, "sales", workspace.Name)
	assert.Equal(t, "sales", workspace.Title)
	assert.Equal(t, "u1", workspace.Creator)
	assert.NotZero(t, workspace.LastModified)

	stored, err := service.WorkspaceByID(ctx, workspace.ID)
	require.NoError(t, err)
	assert.Equal(t, workspace.Name, stored.Name)
}

func TestCreateWorkspaceValidation(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(context.Background(), models.User{ID: "u1"}, CreateWorkspaceRequest{Name: "   "})

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkspaceByIDNotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.WorkspaceByID(context.Background(), "missing")

	assert.True(t, persistence.IsWorkspaceNotFound(err))
}

func TestCreateFromTemplate(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1", Username: "alice"}

	workspace, err := service.CreateFromTemplate(ctx, user, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	assert.Equal(t, "Sales Dashboard", workspace.Name)
	require.Len(t, workspace.Tabs, 1)
	require.Len(t, workspace.Tabs[0].Widgets, 1)
	assert.Contains(t, workspace.Wiring.Operators, "1")
	require.Len(t, workspace.Wiring.Connections, 1)

	stored, err := service.WorkspaceByID(ctx, workspace.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tabs, 1)
}

func TestCreateFromTemplateRollsBackOnMissingDependencies(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	document := `{
		"vendor": "acme", "name": "broken", "version": "1.0", "title": "Broken",
		"tabs": [{"title": "Main", "resources": [{
			"id": "1", "vendor": "acme", "name": "missing", "version": "9.9"
		}]}]
	}`

	_, err := service.CreateFromTemplate(ctx, models.User{ID: "u1"}, CreateWorkspaceRequest{}, []byte(document), nil)

	require.Error(t, err)
	assert.True(t, IsUnprocessableError(err))

	workspaces, err := service.Workspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, workspaces)
}

func TestMergeTemplateBumpsVersion(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1"}

	workspace, err := service.Create(ctx, user, CreateWorkspaceRequest{Name: "sales"})
	require.NoError(t, err)

	before := workspace.LastModified

	merged, err := service.MergeTemplate(ctx, user, workspace.ID, []byte(chartMashup), nil)
	require.NoError(t, err)

	assert.Greater(t, merged.LastModified, before)
	assert.Len(t, merged.Tabs, 1)
}

func TestMergeTemplateByNonCreatorResolves(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	creator := models.User{ID: "u1", Username: "alice"}

	workspace, err := service.Create(ctx, creator, CreateWorkspaceRequest{Name: "sales"})
	require.NoError(t, err)

	editor := models.User{ID: "u2", Username: "bob"}

	merged, err := service.MergeTemplate(ctx, editor, workspace.ID, []byte(chartMashup), nil)
	require.NoError(t, err)

	// Initial values land in the creator's store even when someone else
	// merges; non-multiuser resolution reads them from there.
	widget := merged.Tabs[0].Widgets[0]
	assert.Equal(t, float64(60), widget.Variables["refresh"].Users["u1"])
	assert.NotContains(t, widget.Variables["refresh"].Users, "u2")

	_, err = service.UpdatePreferences(ctx, creator, workspace.ID, map[string]models.Preference{
		"x": {Value: "5"},
	})
	require.NoError(t, err)

	viewer := models.User{ID: "u3", Username: "carol"}

	data, err := service.GlobalData(ctx, viewer, workspace.ID, nil)
	require.NoError(t, err)

	require.Len(t, data.Tabs, 1)
	refresh := data.Tabs[0].Widgets[0].Variables["refresh"]
	assert.Equal(t, float64(60), refresh.Value)
}

func TestUpdatePreferences(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1"}

	workspace, err := service.Create(ctx, user, CreateWorkspaceRequest{Name: "sales"})
	require.NoError(t, err)

	updated, err := service.UpdatePreferences(ctx, user, workspace.ID, map[string]models.Preference{
		"x": {Value: "5"},
	})
	require.NoError(t, err)

	assert.Equal(t, "5", updated.Preferences["x"].Value)
	assert.Greater(t, updated.LastModified, workspace.LastModified)

	_, err = service.UpdatePreferences(ctx, user, workspace.ID, nil)
	assert.True(t, IsValidationError(err))
}

func TestUpdateTabPreferences(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1"}

	workspace, err := service.CreateFromTemplate(ctx, user, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	updated, err := service.UpdateTabPreferences(ctx, user, workspace.ID, workspace.Tabs[0].ID, map[string]models.Preference{
		"locked": {Value: "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, "true", updated.Tabs[0].Preferences["locked"].Value)

	_, err = service.UpdateTabPreferences(ctx, user, workspace.ID, "nope", map[string]models.Preference{
		"locked": {Value: "true"},
	})
	assert.True(t, persistence.IsTabNotFound(err))
}

func TestUpdateWidgetLayout(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1"}

	workspace, err := service.CreateFromTemplate(ctx, user, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	tabID := workspace.Tabs[0].ID
	widgetID := workspace.Tabs[0].Widgets[0].ID

	updated, err := service.UpdateWidgetLayout(ctx, user, workspace.ID, tabID, widgetID, []layout.ConfigChange{
		{Action: layout.ActionUpdate, LayoutConfig: models.LayoutConfig{
			ID: 0, MoreOrEqual: 0, LessOrEqual: 800, Width: 4, Height: 3,
		}},
		{Action: layout.ActionUpdate, LayoutConfig: models.LayoutConfig{
			ID: 1, MoreOrEqual: 801, LessOrEqual: -1, Width: 6, Height: 3,
		}},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Tabs[0].Widgets[0].Positions, 2)

	// A broken interval set leaves the stored workspace untouched.
	_, err = service.UpdateWidgetLayout(ctx, user, workspace.ID, tabID, widgetID, []layout.ConfigChange{
		{Action: layout.ActionDelete, LayoutConfig: models.LayoutConfig{ID: 1}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	stored, err := service.WorkspaceByID(ctx, workspace.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tabs[0].Widgets[0].Positions, 2)
}

// A forced value of "{params.x}" with the required parameter filled
// resolves to the parameter value, read-only, for every requester.
func TestForcedParamFlowResolved(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	creator := models.User{ID: "u1", Username: "alice"}

	workspace, err := service.CreateFromTemplate(ctx, creator, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	_, err = service.UpdatePreferences(ctx, creator, workspace.ID, map[string]models.Preference{
		"x": {Value: "5"},
	})
	require.NoError(t, err)

	viewer := models.User{ID: "u2", Username: "bob"}

	data, err := service.GlobalData(ctx, viewer, workspace.ID, nil)
	require.NoError(t, err)

	assert.Empty(t, data.EmptyParams)
	require.Len(t, data.Tabs, 1)
	require.Len(t, data.Tabs[0].Widgets, 1)

	endpoint := data.Tabs[0].Widgets[0].Variables["endpoint"]
	assert.Equal(t, "5", endpoint.Value)
	assert.True(t, endpoint.ReadOnly)
	assert.False(t, endpoint.Hidden)

	// The non-readonly initial value was substituted at merge time and is
	// shared through the creator's store.
	refresh := data.Tabs[0].Widgets[0].Variables["refresh"]
	assert.Equal(t, float64(60), refresh.Value)
	assert.False(t, refresh.ReadOnly)

	// Operator defaults resolved too.
	router := data.Wiring.Operators["1"]
	assert.Equal(t, "broadcast", router.Preferences["mode"].Value)
}

// While a required parameter is unfilled the workspace document is gated:
// it lists the parameter and withholds tabs and wiring.
func TestForcedParamFlowGated(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	creator := models.User{ID: "u1", Username: "alice"}

	workspace, err := service.CreateFromTemplate(ctx, creator, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	data, err := service.GlobalData(ctx, creator, workspace.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, data.EmptyParams)
	assert.Empty(t, data.Tabs)
	assert.Empty(t, data.Wiring.Operators)
	require.Len(t, data.ExtraPrefs, 1)
	assert.Equal(t, "x", data.ExtraPrefs[0].Name)
}

func TestGlobalDataCached(t *testing.T) {
	service, memory := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1", Username: "alice"}

	workspace, err := service.CreateFromTemplate(ctx, user, CreateWorkspaceRequest{}, []byte(chartMashup), nil)
	require.NoError(t, err)

	_, err = service.UpdatePreferences(ctx, user, workspace.ID, map[string]models.Preference{
		"x": {Value: "5"},
	})
	require.NoError(t, err)

	first, err := service.GlobalData(ctx, user, workspace.ID, nil)
	require.NoError(t, err)

	entries := memory.Len()
	assert.Positive(t, entries)

	second, err := service.GlobalData(ctx, user, workspace.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, entries, memory.Len())
}

func TestResolveVariableDecryptsSecureValues(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	user := models.User{ID: "u1", Username: "alice"}

	// Register a resource with a secure preference and force its value.
	provider := catalogue.NewMemProvider(true)
	provider.Register(&catalogue.ResourceInfo{
		Name: "acme/vault/1.0",
		Preferences: []models.VariableDef{
			{Name: "token", Type: models.VariableTypeString, Secure: true},
		},
	})
	service.provider = provider

	workspace, err := service.Create(ctx, user, CreateWorkspaceRequest{Name: "vault"})
	require.NoError(t, err)

	workspace.Tabs = []*models.Tab{{
		ID: workspace.ID + "-0", Name: "main",
		Widgets: []*models.WidgetInstance{{ID: workspace.ID + "-0-0", Resource: "acme/vault/1.0"}},
	}}
	workspace.ForcedValues.Widget[workspace.ID+"-0-0"] = map[string]models.ForcedValue{
		"token": {Value: "s3cret", Hidden: true},
	}
	require.NoError(t, service.persistence.SaveWorkspace(ctx, workspace))

	value, err := service.ResolveVariable(ctx, user, workspace.ID,
		models.ComponentTypeWidget, workspace.ID+"-0-0", "token", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	// The display form never exposes the plaintext.
	data, err := service.GlobalData(ctx, user, workspace.ID, nil)
	require.NoError(t, err)

	token := data.Tabs[0].Widgets[0].Variables["token"]
	assert.Equal(t, "********", token.Value)
	assert.True(t, token.Hidden)
}
