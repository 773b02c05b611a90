package resolver

import (
	"context"
	"testing"

	"github.com/mosaicdash/mosaic/pkg/cache"
	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider() *catalogue.MemProvider {
	provider := catalogue.NewMemProvider(true)
	provider.Register(&catalogue.ResourceInfo{
		Name: "acme/chart/1.0",
		Preferences: []models.VariableDef{
			{Name: "p1", Type: models.VariableTypeString, Default: "fallback"},
			{Name: "refresh", Type: models.VariableTypeNumber, Default: "30"},
			{Name: "shared", Type: models.VariableTypeString, Multiuser: true, Default: "per-user"},
			{Name: "token", Type: models.VariableTypeString, Secure: true},
		},
		Properties: []models.VariableDef{
			{Name: "state", Type: models.VariableTypeString, Default: ""},
		},
	})
	provider.Register(&catalogue.ResourceInfo{
		Name: "acme/filter/2.0",
		Preferences: []models.VariableDef{
			{Name: "query", Type: models.VariableTypeString, Default: "*"},
		},
	})

	return provider
}

func testWorkspace() *models.Workspace {
	workspace := &models.Workspace{
		ID:           "ws1",
		Creator:      "creator",
		LastModified: 100,
		ForcedValues: models.NewForcedValues(),
		Tabs: []*models.Tab{{
			ID:      "ws1-0",
			Name:    "tab",
			Visible: true,
			Widgets: []*models.WidgetInstance{{
				ID:       "ws1-0-0",
				Resource: "acme/chart/1.0",
			}},
		}},
		Wiring: models.NewWiring(),
	}

	workspace.Wiring.Operators["1"] = &models.Operator{
		ID:          "1",
		Name:        "acme/filter/2.0",
		Preferences: map[string]models.VariableValue{},
		Properties:  map[string]models.VariableValue{},
	}

	return workspace
}

func testDeps(t *testing.T) (Deps, *cache.Memory) {
	t.Helper()

	mem := cache.NewMemory()

	return Deps{
		Cache:    mem,
		Provider: testProvider(),
		Codec:    secrets.NewCodec("resolver-test-secret"),
	}, mem
}

func TestCacheManager_DefaultsAndPerUserValues(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()

	widget := workspace.Tabs[0].Widgets[0]
	widget.SetVariable("p1", "creator", "stored")
	widget.SetVariable("shared", "creator", "creator-own")
	widget.SetVariable("shared", "u2", "u2-own")

	manager := NewCacheManager(workspace, models.User{ID: "u2"}, deps, nil)

	// Non-multiuser variables resolve against the workspace creator.
	value, err := manager.Value(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "p1")
	require.NoError(t, err)
	assert.Equal(t, "stored", value)

	// Multiuser variables resolve against the requesting user.
	value, err = manager.Value(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "shared")
	require.NoError(t, err)
	assert.Equal(t, "u2-own", value)

	// Unset variables fall back to the type-coerced default.
	value, err = manager.Value(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "refresh")
	require.NoError(t, err)
	assert.Equal(t, float64(30), value)

	// Operator preferences resolve the same way.
	value, err = manager.Value(t.Context(), models.ComponentTypeOperator, "1", "query")
	require.NoError(t, err)
	assert.Equal(t, "*", value)
}

func TestCacheManager_AnonymousUserBucket(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()
	workspace.Tabs[0].Widgets[0].SetVariable("shared", models.AnonymousUserID, "anon-value")

	manager := NewCacheManager(workspace, models.Anonymous(), deps, nil)

	value, err := manager.Value(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "shared")
	require.NoError(t, err)
	assert.Equal(t, "anon-value", value)
}

func TestCacheManager_ForcedValuePrecedence(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()

	// A stored per-user value must lose against the forced override.
	workspace.Tabs[0].Widgets[0].SetVariable("p1", "creator", "user-set")

	forced := models.NewForcedValues()
	forced.Widget["ws1-0-0"] = map[string]models.ForcedValue{
		"p1": {Value: "forced-value"},
	}

	manager := NewCacheManager(workspace, models.User{ID: "u2"}, deps, &forced)

	values, err := manager.VariableValues(t.Context())
	require.NoError(t, err)

	entry := values["widget"]["ws1-0-0"]["p1"]
	assert.True(t, entry.ReadOnly)
	assert.False(t, entry.Hidden)
	assert.Equal(t, "forced-value", entry.Value)
}

func TestCacheManager_SecureForcedValueIsReencrypted(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()

	forced := models.NewForcedValues()
	forced.Widget["ws1-0-0"] = map[string]models.ForcedValue{
		"token": {Value: "plaintext-secret", Hidden: true},
	}

	manager := NewCacheManager(workspace, models.User{ID: "u2"}, deps, &forced)

	values, err := manager.VariableValues(t.Context())
	require.NoError(t, err)

	entry := values["widget"]["ws1-0-0"]["token"]
	require.True(t, entry.Secure)
	assert.True(t, entry.ReadOnly)
	assert.True(t, entry.Hidden)
	assert.NotEqual(t, "plaintext-secret", entry.Value, "stored shape must be encrypted")

	// Internal consumers get the decrypted value back.
	value, err := manager.Value(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "token")
	require.NoError(t, err)
	assert.Equal(t, "plaintext-secret", value)

	// Display contexts get the mask.
	data, err := manager.VariableData(t.Context(), models.ComponentTypeWidget, "ws1-0-0", "token")
	require.NoError(t, err)
	assert.Equal(t, SecureMask, data.Value)
	assert.True(t, data.ReadOnly)
}

func TestCacheManager_ResolutionIdempotence(t *testing.T) {
	deps, mem := testDeps(t)
	workspace := testWorkspace()

	first := NewCacheManager(workspace, models.User{ID: "u2"}, deps, nil)
	firstValues, err := first.VariableValues(t.Context())
	require.NoError(t, err)

	require.Equal(t, 1, mem.Len(), "first resolution populates the cache")

	// A fresh manager with an unchanged LastModified hits the cache.
	countingProvider := &countingProvider{Provider: deps.Provider}
	deps.Provider = countingProvider

	second := NewCacheManager(workspace, models.User{ID: "u2"}, deps, nil)
	secondValues, err := second.VariableValues(t.Context())
	require.NoError(t, err)

	assert.Equal(t, firstValues, secondValues)
	assert.Zero(t, countingProvider.calls, "second resolution must not recompute")

	// Bumping LastModified changes the key, forcing recomputation.
	workspace.LastModified++
	third := NewCacheManager(workspace, models.User{ID: "u2"}, deps, nil)
	_, err = third.VariableValues(t.Context())
	require.NoError(t, err)
	assert.Positive(t, countingProvider.calls)
}

func TestCacheManager_MissingResourceIsSkipped(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()
	workspace.Tabs[0].Widgets = append(workspace.Tabs[0].Widgets, &models.WidgetInstance{
		ID:       "ws1-0-1",
		Resource: "ghost/widget/0.1",
	})

	manager := NewCacheManager(workspace, models.User{ID: "u2"}, deps, nil)

	values, err := manager.VariableValues(t.Context())
	require.NoError(t, err)

	assert.Empty(t, values["widget"]["ws1-0-1"])
	assert.NotEmpty(t, values["widget"]["ws1-0-0"])
}

func TestCacheManager_EmptyParamsGate(t *testing.T) {
	deps, _ := testDeps(t)
	workspace := testWorkspace()

	forced := models.NewForcedValues()
	forced.EmptyParams = []string{"x"}

	manager := NewCacheManager(workspace, models.User{ID: "u2"}, deps, &forced)

	_, err := manager.VariableValues(t.Context())
	assert.ErrorIs(t, err, ErrMissingParams)
}

type countingProvider struct {
	catalogue.Provider

	calls int
}

func (p *countingProvider) ResourceInfo(ctx context.Context, name string) (*catalogue.ResourceInfo, error) {
	p.calls++

	return p.Provider.ResourceInfo(ctx, name)
}
