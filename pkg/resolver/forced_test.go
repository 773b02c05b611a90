package resolver

import (
	"testing"

	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workspaceWithOverrides() *models.Workspace {
	forced := models.NewForcedValues()
	forced.ExtraPrefs = []models.ExtraPref{
		{Name: "x", Type: "text", Required: true},
		{Name: "optional", Type: "text"},
	}
	forced.Widget["ws1-0-0"] = map[string]models.ForcedValue{
		"p1": {Value: "{params.x}"},
	}
	forced.Operator["1"] = map[string]models.ForcedValue{
		"token": {Value: "user={user.username} x={params.x}", Hidden: true},
	}

	return &models.Workspace{
		ID:           "ws1",
		Creator:      "creator",
		ForcedValues: forced,
		Wiring:       models.NewWiring(),
	}
}

func TestProcessForcedValues_Substitution(t *testing.T) {
	workspace := workspaceWithOverrides()
	user := models.User{ID: "u1", Username: "ana"}

	preferences := map[string]models.Preference{
		"x": {Value: "5"},
	}

	forced := ProcessForcedValues(workspace, user, nil, preferences, nil)

	assert.Empty(t, forced.EmptyParams)
	assert.Equal(t, "5", forced.Widget["ws1-0-0"]["p1"].Value)
	assert.Equal(t, "user=ana x=5", forced.Operator["1"]["token"].Value)
	assert.True(t, forced.Operator["1"]["token"].Hidden)

	// The workspace's own overlay keeps the raw template strings.
	assert.Equal(t, "{params.x}", workspace.ForcedValues.Widget["ws1-0-0"]["p1"].Value)
}

func TestProcessForcedValues_MissingRequiredParam(t *testing.T) {
	workspace := workspaceWithOverrides()

	forced := ProcessForcedValues(workspace, models.User{ID: "u1"}, nil, map[string]models.Preference{}, nil)

	assert.Equal(t, []string{"x"}, forced.EmptyParams)
	// The missing param substitutes as blank.
	assert.Equal(t, "", forced.Widget["ws1-0-0"]["p1"].Value)
}

func TestProcessForcedValues_BlankRequiredParam(t *testing.T) {
	workspace := workspaceWithOverrides()

	preferences := map[string]models.Preference{
		"x": {Value: "   "},
	}

	forced := ProcessForcedValues(workspace, models.User{ID: "u1"}, nil, preferences, nil)

	assert.Equal(t, []string{"x"}, forced.EmptyParams)
}

func TestProcessForcedValues_ShortCircuitWithoutOverrides(t *testing.T) {
	workspace := &models.Workspace{
		ID:      "ws1",
		Creator: "creator",
		ForcedValues: models.ForcedValues{
			ExtraPrefs:  []models.ExtraPref{{Name: "x", Required: true}},
			Widget:      map[string]map[string]models.ForcedValue{},
			Operator:    map[string]map[string]models.ForcedValue{},
			EmptyParams: []string{"stale"},
		},
		Wiring: models.NewWiring(),
	}

	forced := ProcessForcedValues(workspace, models.User{ID: "u1"}, nil, nil, nil)

	// No overrides at all: the gate is cleared even with unfilled params.
	require.NotNil(t, forced.EmptyParams)
	assert.Empty(t, forced.EmptyParams)
	assert.Len(t, forced.ExtraPrefs, 1)
}
