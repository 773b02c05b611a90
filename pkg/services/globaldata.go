package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mosaicdash/mosaic/pkg/cache"
	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/otelhelper"
	"github.com/mosaicdash/mosaic/pkg/resolver"
)

// WorkspaceData is the assembled per-user form of a workspace: every
// variable resolved for the requesting identity, secure values masked.
// While EmptyParams is non-empty the document is gated: tabs and wiring
// are withheld until the listed parameters are filled.
type WorkspaceData struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Title        string                       `json:"title"`
	Description  string                       `json:"description,omitempty"`
	Creator      string                       `json:"creator"`
	Public       bool                         `json:"public"`
	LastModified int64                        `json:"last_modified"`
	Preferences  map[string]models.Preference `json:"preferences"`
	ExtraPrefs   []models.ExtraPref           `json:"extra_prefs"`
	EmptyParams  []string                     `json:"empty_params"`
	Tabs         []TabData                    `json:"tabs"`
	Wiring       WiringData                   `json:"wiring"`
}

// TabData is the per-user form of one tab.
type TabData struct {
	ID          string                       `json:"id"`
	Name        string                       `json:"name"`
	Title       string                       `json:"title"`
	Visible     bool                         `json:"visible"`
	Preferences map[string]models.Preference `json:"preferences"`
	Widgets     []WidgetData                 `json:"widgets"`
}

// WidgetData is the per-user form of one widget instance.
type WidgetData struct {
	ID        string                         `json:"id"`
	Resource  string                         `json:"resource"`
	Title     string                         `json:"title"`
	Layout    int                            `json:"layout"`
	ReadOnly  bool                           `json:"read_only"`
	Positions []models.LayoutConfig          `json:"positions"`
	Variables map[string]models.VariableData `json:"variables"`
}

// OperatorData is the per-user form of one wiring operator.
type OperatorData struct {
	ID          string                         `json:"id"`
	Name        string                         `json:"name"`
	Preferences map[string]models.VariableData `json:"preferences"`
	Properties  map[string]models.VariableData `json:"properties"`
}

// WiringData is the per-user form of the wiring graph.
type WiringData struct {
	Version           string                     `json:"version"`
	Operators         map[string]OperatorData    `json:"operators"`
	Connections       []*models.Connection       `json:"connections"`
	VisualDescription *models.VisualDescription  `json:"visualdescription"`
}

// GlobalData assembles the workspace document for the acting user. The
// result is cached per workspace version and requesting identity.
func (w *Workspace) GlobalData(ctx context.Context, user models.User, workspaceID string, contextValues map[string]any) (*WorkspaceData, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workspace.global_data",
		attribute.String(otelhelper.WorkspaceIDKey, workspaceID),
		attribute.String(otelhelper.UserIDKey, user.ResolutionID()))
	defer span.End()

	workspace, err := w.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	key := resolver.GlobalDataCacheKey(workspace, user)

	cached, err := w.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		var data WorkspaceData
		if err := json.Unmarshal(cached, &data); err == nil {
			return &data, nil
		}
	}

	data, err := w.assembleGlobalData(ctx, workspace, user, contextValues)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace data: %w", err)
	}

	if err := w.cache.Set(ctx, key, encoded, cache.DefaultTTL); err != nil {
		return nil, err
	}

	return data, nil
}

func (w *Workspace) assembleGlobalData(ctx context.Context, workspace *models.Workspace, user models.User, contextValues map[string]any) (*WorkspaceData, error) {
	if workspace.Wiring == nil {
		workspace.Wiring = models.NewWiring()
	}

	forced := resolver.ProcessForcedValues(workspace, user, contextValues, workspace.Preferences, resolver.DefaultSubstitutor)

	data := &WorkspaceData{
		ID:           workspace.ID,
		Name:         workspace.Name,
		Title:        workspace.Title,
		Description:  workspace.Description,
		Creator:      workspace.Creator,
		Public:       workspace.Public,
		LastModified: workspace.LastModified,
		Preferences:  workspace.Preferences,
		ExtraPrefs:   forced.ExtraPrefs,
		EmptyParams:  forced.EmptyParams,
		Tabs:         []TabData{},
		Wiring: WiringData{
			Version:           workspace.Wiring.Version,
			Operators:         map[string]OperatorData{},
			Connections:       []*models.Connection{},
			VisualDescription: workspace.Wiring.VisualDescription,
		},
	}

	if len(forced.EmptyParams) > 0 {
		// Gated: the document carries only the parameter form.
		return data, nil
	}

	manager := resolver.NewCacheManager(workspace, user, resolver.Deps{
		Cache:    w.cache,
		Provider: w.provider,
		Codec:    w.codec,
	}, &forced)

	values, err := manager.VariableValues(ctx)
	if err != nil {
		return nil, err
	}

	for _, tab := range workspace.Tabs {
		tabData := TabData{
			ID:          tab.ID,
			Name:        tab.Name,
			Title:       tab.Title,
			Visible:     tab.Visible,
			Preferences: tab.Preferences,
			Widgets:     []WidgetData{},
		}

		for _, widget := range tab.Widgets {
			variables := map[string]models.VariableData{}

			for name := range values[string(models.ComponentTypeWidget)][widget.ID] {
				vd, err := manager.VariableData(ctx, models.ComponentTypeWidget, widget.ID, name)
				if err != nil {
					return nil, err
				}

				variables[name] = vd
			}

			tabData.Widgets = append(tabData.Widgets, WidgetData{
				ID:        widget.ID,
				Resource:  widget.Resource,
				Title:     widget.Title,
				Layout:    widget.Layout,
				ReadOnly:  widget.ReadOnly,
				Positions: widget.Positions,
				Variables: variables,
			})
		}

		data.Tabs = append(data.Tabs, tabData)
	}

	data.Wiring.Connections = workspace.Wiring.Connections

	for id, operator := range workspace.Wiring.Operators {
		operatorData, err := w.assembleOperator(ctx, manager, id, operator)
		if err != nil {
			return nil, err
		}

		data.Wiring.Operators[id] = operatorData
	}

	return data, nil
}

// assembleOperator splits the operator's resolved entries back into
// preferences and properties using the catalogue definitions.
func (w *Workspace) assembleOperator(ctx context.Context, manager *resolver.CacheManager, id string, operator *models.Operator) (OperatorData, error) {
	data := OperatorData{
		ID:          id,
		Name:        operator.Name,
		Preferences: map[string]models.VariableData{},
		Properties:  map[string]models.VariableData{},
	}

	info, err := w.provider.ResourceInfo(ctx, operator.Name)
	if errors.Is(err, catalogue.ErrResourceNotFound) {
		return data, nil
	} else if err != nil {
		return OperatorData{}, err
	}

	for _, def := range info.Preferences {
		vd, err := manager.VariableData(ctx, models.ComponentTypeOperator, id, def.Name)
		if err != nil {
			return OperatorData{}, err
		}

		data.Preferences[def.Name] = vd
	}

	for _, def := range info.Properties {
		vd, err := manager.VariableData(ctx, models.ComponentTypeOperator, id, def.Name)
		if err != nil {
			return OperatorData{}, err
		}

		data.Properties[def.Name] = vd
	}

	return data, nil
}
