// Package models defines the core domain models for workspace and mashup composition.
package models

// Preference is a single inheritable preference entry. On a tab,
// Inherit=true means "defer to the workspace value".
type Preference struct {
	Inherit bool   `json:"inherit"`
	Value   string `json:"value"`
}

// Workspace is the top-level composition unit: an ordered collection of
// tabs plus the wiring graph connecting widgets and operators.
type Workspace struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"     validate:"required,min=1"`
	Title        string                `json:"title"`
	Description  string                `json:"description,omitempty"`
	Creator      string                `json:"creator"`
	Public       bool                  `json:"public"`
	LastModified int64                 `json:"last_modified"` // Unix millis; drives cache invalidation
	Tabs         []*Tab                `json:"tabs"`
	Preferences  map[string]Preference `json:"preferences"`
	ForcedValues ForcedValues          `json:"forced_values"`
	Wiring       *Wiring               `json:"wiring"`
}

// Tab holds widget instances. Tab ids are prefixed by the owning workspace
// id ("workspaceID-n"); exactly one tab is visible at steady state.
type Tab struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"  validate:"required,min=1"`
	Title       string                `json:"title"`
	Visible     bool                  `json:"visible"`
	Preferences map[string]Preference `json:"preferences"`
	Widgets     []*WidgetInstance     `json:"widgets"`
}

// TabByID returns the tab with the given id, or nil.
func (w *Workspace) TabByID(id string) *Tab {
	for _, tab := range w.Tabs {
		if tab.ID == id {
			return tab
		}
	}

	return nil
}

// ExtraPref is an administrator-exposed workspace-level parameter declared
// by a mashup template. Required params gate resolution until filled.
type ExtraPref struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Inheritable bool   `json:"inheritable"`
}

// ForcedValue is an administrator/template-supplied override. Value is a
// template string substituted at resolution time; the override marks the
// variable read-only to end users.
type ForcedValue struct {
	Value  string `json:"value"`
	Hidden bool   `json:"hidden"`
}

// ForcedValues is the per-workspace override overlay. Widget and Operator
// map component ids to per-variable overrides. EmptyParams lists required
// extra params without a usable value; while non-empty, variable resolution
// is withheld.
type ForcedValues struct {
	ExtraPrefs  []ExtraPref                       `json:"extra_prefs"`
	Widget      map[string]map[string]ForcedValue `json:"widget"`
	Operator    map[string]map[string]ForcedValue `json:"operator"`
	EmptyParams []string                          `json:"empty_params"`
}

// NewForcedValues returns an empty overlay with initialized maps.
func NewForcedValues() ForcedValues {
	return ForcedValues{
		ExtraPrefs: []ExtraPref{},
		Widget:     map[string]map[string]ForcedValue{},
		Operator:   map[string]map[string]ForcedValue{},
	}
}

// Clone returns a deep copy of the overlay.
func (f ForcedValues) Clone() ForcedValues {
	clone := ForcedValues{
		ExtraPrefs:  append([]ExtraPref{}, f.ExtraPrefs...),
		Widget:      map[string]map[string]ForcedValue{},
		Operator:    map[string]map[string]ForcedValue{},
		EmptyParams: append([]string{}, f.EmptyParams...),
	}

	for id, vars := range f.Widget {
		clone.Widget[id] = map[string]ForcedValue{}
		for name, fv := range vars {
			clone.Widget[id][name] = fv
		}
	}

	for id, vars := range f.Operator {
		clone.Operator[id] = map[string]ForcedValue{}
		for name, fv := range vars {
			clone.Operator[id][name] = fv
		}
	}

	return clone
}

// ByComponentType returns the override map for the given component type.
func (f ForcedValues) ByComponentType(componentType ComponentType) map[string]map[string]ForcedValue {
	if componentType == ComponentTypeWidget {
		return f.Widget
	}

	return f.Operator
}
