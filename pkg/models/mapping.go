package models

// WidgetMapping records the reassigned id and qualified resource name of a
// widget imported from a template.
type WidgetMapping struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IDMapping tracks template-id to workspace-id reassignments during a
// single merge. It only lives for the duration of that merge.
type IDMapping struct {
	Operator map[string]string        `json:"operator"`
	Widget   map[string]WidgetMapping `json:"widget"`
}

// NewIDMapping returns an empty mapping.
func NewIDMapping() *IDMapping {
	return &IDMapping{
		Operator: map[string]string{},
		Widget:   map[string]WidgetMapping{},
	}
}

// MapEndpoint returns the reassigned id for an endpoint, or false when the
// referenced component never made it into the workspace.
func (m *IDMapping) MapEndpoint(e Endpoint) (string, bool) {
	if e.Type == ComponentTypeWidget {
		w, ok := m.Widget[e.ID]

		return w.ID, ok
	}

	id, ok := m.Operator[e.ID]

	return id, ok
}
