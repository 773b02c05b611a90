// Package mashup models parsed mashup templates and implements merging
// them into live workspaces: identifier reassignment, wiring graph
// rewriting and behaviour reconciliation.
package mashup

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mosaicdash/mosaic/pkg/models"
)

// TemplateValue is one initial preference/property value carried by a
// template. A nil Value means "use the catalogue default". ReadOnly values
// become forced values in the target workspace.
type TemplateValue struct {
	Value    *string `json:"value"`
	ReadOnly bool    `json:"readonly"`
	Hidden   bool    `json:"hidden"`
}

// ScreenSizeConfig is a widget placement's layout for one screen-width
// interval.
type ScreenSizeConfig struct {
	ID          int `json:"id"`
	MoreOrEqual int `json:"moreOrEqual"`
	LessOrEqual int `json:"lessOrEqual"`

	Position struct {
		X int `json:"x"`
		Y int `json:"y"`
		Z int `json:"z"`
	} `json:"position"`

	Rendering struct {
		Width         int  `json:"width"`
		Height        int  `json:"height"`
		Minimized     bool `json:"minimized"`
		FullDragboard bool `json:"fulldragboard"`
		TitleVisible  bool `json:"titlevisible"`
	} `json:"rendering"`
}

// WidgetPlacement describes one widget occurrence inside a template tab.
// The ID is template-scoped and remapped during the merge.
type WidgetPlacement struct {
	ID      string `json:"id"`
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title"`
	Layout  int    `json:"layout"`

	ReadOnly    bool                     `json:"readonly"`
	ScreenSizes []ScreenSizeConfig       `json:"screenSizes"`
	Preferences map[string]TemplateValue `json:"preferences"`
	Properties  map[string]TemplateValue `json:"properties"`
}

// QualifiedName returns "vendor/name/version".
func (p WidgetPlacement) QualifiedName() string {
	return p.Vendor + "/" + p.Name + "/" + p.Version
}

// TemplateTab is one tab of a template.
type TemplateTab struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Preferences map[string]string `json:"preferences"`
	Resources   []WidgetPlacement `json:"resources"`
}

// TemplateOperator is one wiring operator of a template, keyed by a
// template-scoped id in the wiring description.
type TemplateOperator struct {
	Name        string                   `json:"name"` // qualified "vendor/name/version"
	Preferences map[string]TemplateValue `json:"preferences"`
}

// TemplateWiring is a template's wiring description.
type TemplateWiring struct {
	Operators         map[string]TemplateOperator `json:"operators"`
	Connections       []*models.Connection        `json:"connections"`
	VisualDescription *models.VisualDescription   `json:"visualdescription"`
}

// Template is a parsed mashup template, ready for merging.
type Template struct {
	Vendor      string             `json:"vendor"`
	Name        string             `json:"name"`
	Version     string             `json:"version"`
	Title       string             `json:"title"`
	Preferences map[string]string  `json:"preferences"`
	Params      []models.ExtraPref `json:"params"`
	Tabs        []TemplateTab      `json:"tabs"`
	Wiring      TemplateWiring     `json:"wiring"`
}

// ParseTemplate unmarshals and validates a mashup template document.
func ParseTemplate(data []byte) (*Template, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, err)
	}

	tpl.normalize()

	return &tpl, nil
}

// normalize fills nil maps and skeletons so merge code never branches on
// missing structure.
func (t *Template) normalize() {
	if t.Preferences == nil {
		t.Preferences = map[string]string{}
	}

	if t.Wiring.Operators == nil {
		t.Wiring.Operators = map[string]TemplateOperator{}
	}

	if t.Wiring.VisualDescription == nil {
		t.Wiring.VisualDescription = models.NewWiring().VisualDescription
	}

	vd := t.Wiring.VisualDescription
	if vd.Components.Widget == nil {
		vd.Components.Widget = map[string]models.Component{}
	}

	if vd.Components.Operator == nil {
		vd.Components.Operator = map[string]models.Component{}
	}
}

// Dependencies lists every qualified resource name the template references,
// sorted and deduplicated.
func (t *Template) Dependencies() []string {
	seen := map[string]struct{}{}

	for _, tab := range t.Tabs {
		for _, placement := range tab.Resources {
			seen[placement.QualifiedName()] = struct{}{}
		}
	}

	for _, operator := range t.Wiring.Operators {
		seen[operator.Name] = struct{}{}
	}

	dependencies := make([]string, 0, len(seen))
	for name := range seen {
		dependencies = append(dependencies, name)
	}

	sort.Strings(dependencies)

	return dependencies
}
