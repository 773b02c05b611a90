// Package resolver computes the effective runtime value of every widget
// and operator variable: the administrator forced-value overlay first, then
// per-user storage, then catalogue defaults, with secure values kept
// encrypted at rest and results cached per workspace version and
// requesting identity.
package resolver

import (
	"strings"

	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/template"
)

// Substitutor replaces contextual placeholders inside forced-value template
// strings. It is injected so the substitution strategy stays independent of
// the resolution control flow.
type Substitutor interface {
	Process(text string) string
}

// SubstitutorBuilder binds a substitutor to one resolution context.
type SubstitutorBuilder func(user models.User, contextValues map[string]any, params map[string]string) Substitutor

// DefaultSubstitutor builds the platform's placeholder processor.
func DefaultSubstitutor(user models.User, contextValues map[string]any, params map[string]string) Substitutor {
	return template.NewProcessor(user, contextValues, params)
}

// ProcessForcedValues computes the administrator override layer for a
// workspace. The workspace itself is never mutated; the returned overlay
// carries substituted override values and the list of required extra
// parameters that are still empty. A non-empty EmptyParams list is the
// resolution gate: callers must withhold tab and wiring data until the
// parameters are filled.
func ProcessForcedValues(workspace *models.Workspace, user models.User, contextValues map[string]any,
	preferences map[string]models.Preference, build SubstitutorBuilder) models.ForcedValues {
	forced := workspace.ForcedValues.Clone()

	if len(forced.Widget) == 0 && len(forced.Operator) == 0 {
		// No overrides: downstream resolution is a pure per-user lookup.
		forced.EmptyParams = []string{}

		return forced
	}

	paramValues := map[string]string{}
	emptyParams := []string{}

	for _, param := range forced.ExtraPrefs {
		pref, ok := preferences[param.Name]
		if ok && (!param.Required || strings.TrimSpace(pref.Value) != "") {
			paramValues[param.Name] = pref.Value
		} else {
			emptyParams = append(emptyParams, param.Name)
			paramValues[param.Name] = ""
		}
	}

	forced.EmptyParams = emptyParams

	if build == nil {
		build = DefaultSubstitutor
	}

	processor := build(user, contextValues, paramValues)

	for _, overrides := range forced.Widget {
		for name, fv := range overrides {
			fv.Value = processor.Process(fv.Value)
			overrides[name] = fv
		}
	}

	for _, overrides := range forced.Operator {
		for name, fv := range overrides {
			fv.Value = processor.Process(fv.Value)
			overrides[name] = fv
		}
	}

	return forced
}
