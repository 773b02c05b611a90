package models

// ComponentType identifies the kind of component a wiring endpoint or
// visual entry refers to.
type ComponentType string

const (
	ComponentTypeWidget   ComponentType = "widget"
	ComponentTypeOperator ComponentType = "operator"
)

// Operator is a placed occurrence of a stateless wiring operator inside a
// workspace. Operator ids are workspace-scoped numeric strings.
type Operator struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name" validate:"required"` // qualified "vendor/name/version"
	Preferences map[string]VariableValue `json:"preferences"`
	Properties  map[string]VariableValue `json:"properties"`
}

// Endpoint identifies one side of a wiring connection.
type Endpoint struct {
	Type     ComponentType `json:"type"     validate:"required,oneof=widget operator"`
	ID       string        `json:"id"       validate:"required"`
	Endpoint string        `json:"endpoint" validate:"required"` // variable name
}

// Name returns the canonical endpoint name: "type/id/endpoint".
func (e Endpoint) Name() string {
	return string(e.Type) + "/" + e.ID + "/" + e.Endpoint
}

// Connection is a directed edge of the wiring graph.
type Connection struct {
	ReadOnly bool     `json:"readonly"`
	Source   Endpoint `json:"source"`
	Target   Endpoint `json:"target"`
}

// Component is the visual representation of a widget/operator inside the
// wiring editor.
type Component struct {
	Collapsed bool   `json:"collapsed"`
	Name      string `json:"name,omitempty"`
}

// Components groups visual components by type, keyed by component id.
type Components struct {
	Widget   map[string]Component `json:"widget"`
	Operator map[string]Component `json:"operator"`
}

// VisualConnection is a visual edge, referencing canonical endpoint names.
type VisualConnection struct {
	SourceName string `json:"sourcename"`
	TargetName string `json:"targetname"`
}

// Behaviour is a named visual subset of the wiring graph, used for UI
// grouping only.
type Behaviour struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Components  Components          `json:"components"`
	Connections []*VisualConnection `json:"connections"`
}

// NewBehaviour returns an empty behaviour skeleton.
func NewBehaviour(title, description string) *Behaviour {
	return &Behaviour{
		Title:       title,
		Description: description,
		Components:  Components{Widget: map[string]Component{}, Operator: map[string]Component{}},
		Connections: []*VisualConnection{},
	}
}

// VisualDescription is the global visual state of the wiring editor plus
// the ordered behaviour list.
type VisualDescription struct {
	Components  Components          `json:"components"`
	Connections []*VisualConnection `json:"connections"`
	Behaviours  []*Behaviour        `json:"behaviours"`
}

// IsEmpty reports whether no component or connection is present.
func (v *VisualDescription) IsEmpty() bool {
	return len(v.Connections) == 0 && len(v.Components.Widget) == 0 && len(v.Components.Operator) == 0
}

// Wiring is the directed graph connecting widget and operator endpoints,
// plus its visual description.
type Wiring struct {
	Version           string               `json:"version"`
	Operators         map[string]*Operator `json:"operators"`
	Connections       []*Connection        `json:"connections"`
	VisualDescription *VisualDescription   `json:"visualdescription"`
}

// NewWiring returns an empty wiring skeleton.
func NewWiring() *Wiring {
	return &Wiring{
		Version:     "2.0",
		Operators:   map[string]*Operator{},
		Connections: []*Connection{},
		VisualDescription: &VisualDescription{
			Components:  Components{Widget: map[string]Component{}, Operator: map[string]Component{}},
			Connections: []*VisualConnection{},
			Behaviours:  []*Behaviour{},
		},
	}
}
