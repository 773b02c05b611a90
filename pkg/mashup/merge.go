package mashup

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/ids"
	"github.com/mosaicdash/mosaic/pkg/layout"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/template"
)

// Workspace preferences controlled by sharing logic, never taken from a
// template.
var reservedPreferences = map[string]struct{}{
	"public":    {},
	"sharelist": {},
}

// Engine merges parsed mashup templates into workspaces.
type Engine struct {
	provider catalogue.Provider
	logger   *slog.Logger
}

func NewEngine(provider catalogue.Provider, logger *slog.Logger) *Engine {
	return &Engine{
		provider: provider,
		logger:   logger.With("module", "mashup"),
	}
}

// CheckDependencies verifies every resource the template references exists
// in the catalogue. It returns a MissingDependenciesError listing the
// unresolvable ones.
func (e *Engine) CheckDependencies(ctx context.Context, tpl *Template) error {
	missing := []string{}

	for _, name := range tpl.Dependencies() {
		if _, err := e.provider.ResourceInfo(ctx, name); err != nil {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return &MissingDependenciesError{Missing: missing}
	}

	return nil
}

// Merge applies a template to a workspace: tabs and widgets are appended
// with freshly allocated ids, the wiring graph is rewritten onto those ids
// and the forced-value overlay is extended. Dependency and layout
// validation run up front; on error the workspace is untouched.
//
// The caller is responsible for persisting the workspace and bumping its
// modification stamp afterwards.
func (e *Engine) Merge(ctx context.Context, workspace *models.Workspace, tpl *Template, user models.User, contextValues map[string]any) error {
	if err := e.CheckDependencies(ctx, tpl); err != nil {
		return err
	}

	if err := validateLayouts(tpl); err != nil {
		return err
	}

	if workspace.Wiring == nil {
		workspace.Wiring = models.NewWiring()
	}

	if workspace.ForcedValues.Widget == nil {
		workspace.ForcedValues.Widget = map[string]map[string]models.ForcedValue{}
	}

	if workspace.ForcedValues.Operator == nil {
		workspace.ForcedValues.Operator = map[string]map[string]models.ForcedValue{}
	}

	processor := template.NewProcessor(user, contextValues, nil)
	mapping := models.NewIDMapping()
	forced := models.NewForcedValues()

	e.mergePreferences(workspace, tpl)

	forced.ExtraPrefs = append(forced.ExtraPrefs, tpl.Params...)

	for _, tplTab := range tpl.Tabs {
		tab := e.createTab(workspace, tplTab)

		for _, placement := range tplTab.Resources {
			e.mergeWidget(ctx, tab, placement, user, workspace.Creator, processor, mapping, forced)
		}
	}

	e.mergeOperators(tpl, workspace, mapping, forced)

	sourceMapping, targetMapping := e.mergeConnections(tpl, workspace, mapping)

	incoming := remapVisualDescription(tpl.Wiring.VisualDescription, mapping, sourceMapping, targetMapping)
	mergeVisualDescriptions(workspace.Wiring.VisualDescription, incoming)

	mergeForcedValues(&workspace.ForcedValues, forced)

	return nil
}

// validateLayouts rejects templates whose widget placements carry broken
// screen-size configurations, before any workspace mutation.
func validateLayouts(tpl *Template) error {
	for _, tab := range tpl.Tabs {
		for _, placement := range tab.Resources {
			if len(placement.ScreenSizes) == 0 {
				continue
			}

			seen := map[int]struct{}{}
			configs := make([]models.LayoutConfig, 0, len(placement.ScreenSizes))

			for _, size := range placement.ScreenSizes {
				if _, dup := seen[size.ID]; dup {
					return fmt.Errorf("%w: widget %q", layout.ErrDuplicateLayoutID, placement.ID)
				}
				seen[size.ID] = struct{}{}

				configs = append(configs, layoutFromScreenSize(size))
			}

			if err := layout.CheckIntervals(configs); err != nil {
				return fmt.Errorf("widget %q: %w", placement.ID, err)
			}
		}
	}

	return nil
}

func layoutFromScreenSize(size ScreenSizeConfig) models.LayoutConfig {
	return models.LayoutConfig{
		ID:            size.ID,
		MoreOrEqual:   size.MoreOrEqual,
		LessOrEqual:   size.LessOrEqual,
		Top:           size.Position.Y,
		Left:          size.Position.X,
		ZIndex:        size.Position.Z,
		Width:         size.Rendering.Width,
		Height:        size.Rendering.Height,
		Minimized:     size.Rendering.Minimized,
		FullDragboard: size.Rendering.FullDragboard,
		TitleVisible:  size.Rendering.TitleVisible,
	}
}

func (e *Engine) mergePreferences(workspace *models.Workspace, tpl *Template) {
	if workspace.Preferences == nil {
		workspace.Preferences = map[string]models.Preference{}
	}

	for name, value := range tpl.Preferences {
		if _, reserved := reservedPreferences[name]; reserved {
			continue
		}

		workspace.Preferences[name] = models.Preference{Inherit: false, Value: value}
	}
}

// createTab appends a new tab, renaming it when the template's tab name is
// already taken. The first tab of a workspace becomes the visible one.
func (e *Engine) createTab(workspace *models.Workspace, tplTab TemplateTab) *models.Tab {
	name := tplTab.Name
	if name == "" {
		name = urlify(tplTab.Title)
	}

	preferences := map[string]models.Preference{}
	for key, value := range tplTab.Preferences {
		preferences[key] = models.Preference{Inherit: false, Value: value}
	}

	tab := &models.Tab{
		ID:          ids.NextTabID(workspace),
		Name:        uniqueTabName(workspace, name),
		Title:       tplTab.Title,
		Visible:     len(workspace.Tabs) == 0,
		Preferences: preferences,
		Widgets:     []*models.WidgetInstance{},
	}

	workspace.Tabs = append(workspace.Tabs, tab)

	return tab
}

func uniqueTabName(workspace *models.Workspace, name string) string {
	taken := map[string]struct{}{}
	for _, tab := range workspace.Tabs {
		taken[tab.Name] = struct{}{}
	}

	if _, exists := taken[name]; !exists {
		return name
	}

	for suffix := 2; ; suffix++ {
		candidate := fmt.Sprintf("%s-%d", name, suffix)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

// mergeWidget installs the placement's resource for the acting user and
// appends a widget instance to the tab. Installation failures skip the
// placement; connections referencing it are dropped later because its id
// never enters the mapping.
func (e *Engine) mergeWidget(
	ctx context.Context,
	tab *models.Tab,
	placement WidgetPlacement,
	user models.User,
	creator string,
	processor *template.Processor,
	mapping *models.IDMapping,
	forced models.ForcedValues,
) {
	name := placement.QualifiedName()

	if !e.provider.IsAvailable(ctx, user, name) {
		if err := e.provider.Install(ctx, user, name); err != nil {
			e.logger.Warn("skipping widget, resource could not be installed",
				"resource", name, "template_id", placement.ID, "error", err)

			return
		}
	}

	info, err := e.provider.ResourceInfo(ctx, name)
	if err != nil {
		e.logger.Warn("skipping widget, resource metadata unavailable",
			"resource", name, "template_id", placement.ID, "error", err)

		return
	}

	title := placement.Title
	if title == "" {
		title = placement.Name
	}

	widget := &models.WidgetInstance{
		ID:        ids.NextWidgetID(tab),
		Resource:  name,
		Title:     title,
		Layout:    placement.Layout,
		ReadOnly:  placement.ReadOnly,
		Positions: placementPositions(placement),
		Variables: map[string]models.VariableValue{},
	}

	initial := map[string]string{}
	overrides := map[string]models.ForcedValue{}

	collectValues(placement.Preferences, info, initial, overrides)
	collectValues(placement.Properties, info, initial, overrides)

	for _, def := range append(append([]models.VariableDef{}, info.Preferences...), info.Properties...) {
		var value any

		switch raw, has := initial[def.Name]; {
		case !def.ReadOnly && has:
			value = models.ParseFromText(def, processor.Process(raw))
		case def.Default != "":
			value = models.ParseFromText(def, def.Default)
		default:
			value = ""
		}

		// Initial values belong to the workspace creator; non-multiuser
		// resolution reads the creator's entry regardless of who merged.
		widget.SetVariable(def.Name, creator, value)
	}

	tab.Widgets = append(tab.Widgets, widget)
	mapping.Widget[placement.ID] = models.WidgetMapping{ID: widget.ID, Name: name}

	if len(overrides) > 0 {
		forced.Widget[widget.ID] = overrides
	}
}

func placementPositions(placement WidgetPlacement) []models.LayoutConfig {
	if len(placement.ScreenSizes) == 0 {
		return layout.DefaultPositions()
	}

	configs := make([]models.LayoutConfig, 0, len(placement.ScreenSizes))
	for _, size := range placement.ScreenSizes {
		configs = append(configs, layoutFromScreenSize(size))
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].MoreOrEqual < configs[j].MoreOrEqual
	})

	return configs
}

// collectValues splits template values into initial values, set once on the
// new instance, and read-only overrides for the forced-value overlay.
// Override values stay unsubstituted; placeholders resolve per requester at
// resolution time.
func collectValues(values map[string]TemplateValue, info *catalogue.ResourceInfo, initial map[string]string, overrides map[string]models.ForcedValue) {
	for name, tv := range values {
		value := ""

		switch {
		case tv.Value != nil:
			value = *tv.Value
		default:
			if def, ok := info.Definition(name); ok {
				value = def.Default
			}
		}

		if tv.ReadOnly {
			overrides[name] = models.ForcedValue{Value: value, Hidden: tv.Hidden}
		} else {
			initial[name] = value
		}
	}
}

func (e *Engine) mergeOperators(tpl *Template, workspace *models.Workspace, mapping *models.IDMapping, forced models.ForcedValues) {
	tplIDs := make([]string, 0, len(tpl.Wiring.Operators))
	for id := range tpl.Wiring.Operators {
		tplIDs = append(tplIDs, id)
	}

	sort.Strings(tplIDs)

	for _, tplID := range tplIDs {
		tplOperator := tpl.Wiring.Operators[tplID]

		id := ids.NextOperatorID(workspace.Wiring.Operators)
		preferences := map[string]models.VariableValue{}
		overrides := map[string]models.ForcedValue{}

		for name, tv := range tplOperator.Preferences {
			value := ""
			if tv.Value != nil {
				value = *tv.Value
			}

			preferences[name] = models.VariableValue{Users: map[string]any{workspace.Creator: value}}

			if tv.ReadOnly {
				overrides[name] = models.ForcedValue{Value: value, Hidden: tv.Hidden}
			}
		}

		workspace.Wiring.Operators[id] = &models.Operator{
			ID:          id,
			Name:        tplOperator.Name,
			Preferences: preferences,
			Properties:  map[string]models.VariableValue{},
		}

		mapping.Operator[tplID] = id

		if len(overrides) > 0 {
			forced.Operator[id] = overrides
		}
	}
}

// mergeConnections rewrites template connections onto reassigned component
// ids. A connection whose source or target component never made it into the
// workspace is dropped silently. The returned endpoint-name mappings drive
// the visual rewrite.
func (e *Engine) mergeConnections(tpl *Template, workspace *models.Workspace, mapping *models.IDMapping) (sourceMapping, targetMapping map[string]string) {
	sourceMapping = map[string]string{}
	targetMapping = map[string]string{}

	for _, conn := range tpl.Wiring.Connections {
		sourceID, sourceOK := mapping.MapEndpoint(conn.Source)
		targetID, targetOK := mapping.MapEndpoint(conn.Target)

		if !sourceOK || !targetOK {
			e.logger.Debug("dropping connection with unmapped endpoint",
				"source", conn.Source.Name(), "target", conn.Target.Name())

			continue
		}

		mapped := &models.Connection{
			ReadOnly: conn.ReadOnly,
			Source:   models.Endpoint{Type: conn.Source.Type, ID: sourceID, Endpoint: conn.Source.Endpoint},
			Target:   models.Endpoint{Type: conn.Target.Type, ID: targetID, Endpoint: conn.Target.Endpoint},
		}

		sourceMapping[conn.Source.Name()] = mapped.Source.Name()
		targetMapping[conn.Target.Name()] = mapped.Target.Name()

		workspace.Wiring.Connections = append(workspace.Wiring.Connections, mapped)
	}

	return sourceMapping, targetMapping
}

// remapVisualDescription rebuilds a template's visual description on the
// workspace ids assigned during this merge. Entries for components or
// connections that were dropped are dropped with them.
func remapVisualDescription(vd *models.VisualDescription, mapping *models.IDMapping, sourceMapping, targetMapping map[string]string) *models.VisualDescription {
	remapped := &models.VisualDescription{
		Components:  remapComponents(vd.Components, mapping, true),
		Connections: remapVisualConnections(vd.Connections, sourceMapping, targetMapping),
		Behaviours:  []*models.Behaviour{},
	}

	for _, behaviour := range vd.Behaviours {
		remapped.Behaviours = append(remapped.Behaviours, &models.Behaviour{
			Title:       behaviour.Title,
			Description: behaviour.Description,
			Components:  remapComponents(behaviour.Components, mapping, false),
			Connections: remapVisualConnections(behaviour.Connections, sourceMapping, targetMapping),
		})
	}

	return remapped
}

func remapComponents(components models.Components, mapping *models.IDMapping, global bool) models.Components {
	remapped := models.Components{
		Widget:   map[string]models.Component{},
		Operator: map[string]models.Component{},
	}

	for tplID, component := range components.Widget {
		wm, ok := mapping.Widget[tplID]
		if !ok {
			continue
		}

		if global {
			component.Name = wm.Name
		}

		remapped.Widget[wm.ID] = component
	}

	for tplID, component := range components.Operator {
		id, ok := mapping.Operator[tplID]
		if !ok {
			continue
		}

		remapped.Operator[id] = component
	}

	return remapped
}

func remapVisualConnections(connections []*models.VisualConnection, sourceMapping, targetMapping map[string]string) []*models.VisualConnection {
	remapped := []*models.VisualConnection{}

	for _, conn := range connections {
		source, sourceOK := sourceMapping[conn.SourceName]
		target, targetOK := targetMapping[conn.TargetName]

		if !sourceOK || !targetOK {
			continue
		}

		remapped = append(remapped, &models.VisualConnection{SourceName: source, TargetName: target})
	}

	return remapped
}

// mergeVisualDescriptions folds the remapped incoming visual state into the
// workspace's global one. Components are unioned with incoming entries
// winning on id clashes; connections are concatenated. A side whose wiring
// is visually non-trivial but has no behaviours gets a single synthesized
// behaviour first, so neither side's wiring disappears from behaviour mode.
func mergeVisualDescriptions(target, incoming *models.VisualDescription) {
	if len(target.Behaviours) == 0 && !target.IsEmpty() {
		target.Behaviours = append(target.Behaviours,
			behaviourFromVisual(target, "Original wiring", "This is the wiring description of the original workspace"))
	}

	if len(incoming.Behaviours) == 0 && !incoming.IsEmpty() {
		incoming.Behaviours = append(incoming.Behaviours,
			behaviourFromVisual(incoming, "Merged wiring", "This is the wiring description of the merged mashup"))
	}

	for id, component := range incoming.Components.Widget {
		target.Components.Widget[id] = component
	}

	for id, component := range incoming.Components.Operator {
		target.Components.Operator[id] = component
	}

	target.Connections = append(target.Connections, incoming.Connections...)
	target.Behaviours = append(target.Behaviours, incoming.Behaviours...)
}

// behaviourFromVisual captures the global visual state as one behaviour
// referencing every component and connection.
func behaviourFromVisual(vd *models.VisualDescription, title, description string) *models.Behaviour {
	behaviour := models.NewBehaviour(title, description)

	for id := range vd.Components.Widget {
		behaviour.Components.Widget[id] = models.Component{}
	}

	for id := range vd.Components.Operator {
		behaviour.Components.Operator[id] = models.Component{}
	}

	for _, conn := range vd.Connections {
		behaviour.Connections = append(behaviour.Connections,
			&models.VisualConnection{SourceName: conn.SourceName, TargetName: conn.TargetName})
	}

	return behaviour
}

func mergeForcedValues(target *models.ForcedValues, incoming models.ForcedValues) {
	target.ExtraPrefs = append(target.ExtraPrefs, incoming.ExtraPrefs...)

	for id, overrides := range incoming.Widget {
		target.Widget[id] = overrides
	}

	for id, overrides := range incoming.Operator {
		target.Operator[id] = overrides
	}
}

var nonURLChars = regexp.MustCompile(`[^a-z0-9-]+`)

// urlify derives a tab name from its title: lowercased, spaces collapsed to
// dashes, anything else stripped.
func urlify(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.Join(strings.Fields(name), "-")
	name = nonURLChars.ReplaceAllString(name, "")

	if name == "" {
		return "tab"
	}

	return name
}
