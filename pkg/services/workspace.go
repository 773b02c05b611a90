package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mosaicdash/mosaic/pkg/cache"
	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/layout"
	"github.com/mosaicdash/mosaic/pkg/mashup"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/otelhelper"
	"github.com/mosaicdash/mosaic/pkg/persistence"
	"github.com/mosaicdash/mosaic/pkg/resolver"
	"github.com/mosaicdash/mosaic/pkg/secrets"
)

// ErrWorkspaceNotFound is returned when a workspace is not found.
var ErrWorkspaceNotFound = persistence.ErrWorkspaceNotFound

// Workspace handles workspace-related business operations: lifecycle,
// template merging, preference and layout updates and per-user data
// assembly.
type Workspace struct {
	persistence persistence.Persistence
	cache       cache.Cache
	provider    catalogue.Provider
	codec       *secrets.Codec
	engine      *mashup.Engine
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewWorkspace creates a new workspace service.
func NewWorkspace(p persistence.Persistence, c cache.Cache, provider catalogue.Provider, codec *secrets.Codec, logger *slog.Logger) *Workspace {
	return &Workspace{
		persistence: p,
		cache:       c,
		provider:    provider,
		codec:       codec,
		engine:      mashup.NewEngine(provider, logger),
		logger:      logger.With("module", "services"),
		tracer:      noop.NewTracerProvider().Tracer("mosaic"),
	}
}

// WithTracer replaces the no-op tracer. Call before serving.
func (w *Workspace) WithTracer(tracer trace.Tracer) *Workspace {
	w.tracer = tracer

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workspace) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkspaceRequest represents the request to create a new workspace.
type CreateWorkspaceRequest struct {
	Name        string
	Title       string
	Description string
	Public      bool
}

// Create creates an empty workspace owned by the acting user.
func (w *Workspace) Create(ctx context.Context, user models.User, req CreateWorkspaceRequest) (*models.Workspace, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("Create", "WORKSPACE_NAME_EMPTY", "workspace name is required", ErrWorkspaceNameEmpty)
	}

	title := req.Title
	if title == "" {
		title = name
	}

	workspace := &models.Workspace{
		ID:           uuid.NewString(),
		Name:         name,
		Title:        title,
		Description:  req.Description,
		Creator:      user.ResolutionID(),
		Public:       req.Public,
		LastModified: time.Now().UnixMilli(),
		Tabs:         []*models.Tab{},
		Preferences:  map[string]models.Preference{},
		ForcedValues: models.NewForcedValues(),
		Wiring:       models.NewWiring(),
	}

	if err := w.persistence.SaveWorkspace(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	w.logger.Info("workspace created", "workspace_id", workspace.ID, "creator", workspace.Creator)

	return workspace, nil
}

// CreateFromTemplate creates a workspace and populates it from a mashup
// template document in a single operation.
func (w *Workspace) CreateFromTemplate(ctx context.Context, user models.User, req CreateWorkspaceRequest, document []byte, contextValues map[string]any) (*models.Workspace, error) {
	tpl, err := mashup.ParseTemplate(document)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		req.Name = tpl.Title
	}

	workspace, err := w.Create(ctx, user, req)
	if err != nil {
		return nil, err
	}

	if err := w.engine.Merge(ctx, workspace, tpl, user, contextValues); err != nil {
		// The empty shell is useless without its content; roll it back.
		if deleteErr := w.persistence.DeleteWorkspace(ctx, workspace.ID); deleteErr != nil {
			w.logger.Error("failed to roll back workspace after merge error",
				"workspace_id", workspace.ID, "error", deleteErr)
		}

		return nil, err
	}

	w.touch(workspace)

	if err := w.persistence.SaveWorkspace(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to save merged workspace: %w", err)
	}

	return workspace, nil
}

// MergeTemplate merges a mashup template document into an existing
// workspace. The workspace version is bumped so every cached resolution of
// the previous version expires by construction.
func (w *Workspace) MergeTemplate(ctx context.Context, user models.User, workspaceID string, document []byte, contextValues map[string]any) (*models.Workspace, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workspace.merge_template",
		attribute.String(otelhelper.WorkspaceIDKey, workspaceID),
		attribute.String(otelhelper.UserIDKey, user.ResolutionID()))
	defer span.End()

	tpl, err := mashup.ParseTemplate(document)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TemplateNameKey, tpl.Vendor+"/"+tpl.Name+"/"+tpl.Version))

	workspace, err := w.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	staleKeys := w.cacheKeys(workspace, user)

	if err := w.engine.Merge(ctx, workspace, tpl, user, contextValues); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	w.touch(workspace)

	if err := w.persistence.SaveWorkspace(ctx, workspace); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save merged workspace: %w", err)
	}

	w.dropCacheKeys(ctx, staleKeys)

	return workspace, nil
}

// Workspaces lists every stored workspace.
func (w *Workspace) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	workspaces, err := w.persistence.Workspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	return workspaces, nil
}

// WorkspaceByID fetches one workspace.
func (w *Workspace) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	if id == "" {
		return nil, NewValidationError("WorkspaceByID", "WORKSPACE_ID_EMPTY", "workspace ID is required", ErrWorkspaceIDEmpty)
	}

	workspace, err := w.persistence.WorkspaceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return workspace, nil
}

// Delete removes a workspace. Cached resolutions of it orphan and expire.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("Delete", "WORKSPACE_ID_EMPTY", "workspace ID is required", ErrWorkspaceIDEmpty)
	}

	return w.persistence.DeleteWorkspace(ctx, id)
}

// UpdatePreferences merges preference values into the workspace. Required
// extra parameters are filled through here; the version bump unlocks any
// gated resolution.
func (w *Workspace) UpdatePreferences(ctx context.Context, user models.User, workspaceID string, preferences map[string]models.Preference) (*models.Workspace, error) {
	if len(preferences) == 0 {
		return nil, NewValidationError("UpdatePreferences", "NO_PREFERENCES", "no preferences given", ErrNoPreferencesGiven)
	}

	return w.mutate(ctx, user, workspaceID, func(workspace *models.Workspace) error {
		if workspace.Preferences == nil {
			workspace.Preferences = map[string]models.Preference{}
		}

		for name, pref := range preferences {
			workspace.Preferences[name] = pref
		}

		return nil
	})
}

// UpdateTabPreferences merges preference values into one tab.
func (w *Workspace) UpdateTabPreferences(ctx context.Context, user models.User, workspaceID, tabID string, preferences map[string]models.Preference) (*models.Workspace, error) {
	if len(preferences) == 0 {
		return nil, NewValidationError("UpdateTabPreferences", "NO_PREFERENCES", "no preferences given", ErrNoPreferencesGiven)
	}

	return w.mutate(ctx, user, workspaceID, func(workspace *models.Workspace) error {
		tab := workspace.TabByID(tabID)
		if tab == nil {
			return persistence.NewWorkspaceError("UpdateTabPreferences", workspaceID, persistence.ErrTabNotFound)
		}

		if tab.Preferences == nil {
			tab.Preferences = map[string]models.Preference{}
		}

		for name, pref := range preferences {
			tab.Preferences[name] = pref
		}

		return nil
	})
}

// UpdateWidgetLayout applies screen-size layout changes to one widget
// instance. The resulting interval set is validated as a whole; invalid
// change sets leave the workspace untouched.
func (w *Workspace) UpdateWidgetLayout(ctx context.Context, user models.User, workspaceID, tabID, widgetID string, changes []layout.ConfigChange) (*models.Workspace, error) {
	if len(changes) == 0 {
		return nil, NewValidationError("UpdateWidgetLayout", "NO_CHANGES", "no layout changes given", ErrNoLayoutChangesGiven)
	}

	return w.mutate(ctx, user, workspaceID, func(workspace *models.Workspace) error {
		tab := workspace.TabByID(tabID)
		if tab == nil {
			return persistence.NewWorkspaceError("UpdateWidgetLayout", workspaceID, persistence.ErrTabNotFound)
		}

		for _, widget := range tab.Widgets {
			if widget.ID == widgetID {
				return layout.UpdatePositions(widget, changes)
			}
		}

		return persistence.NewWorkspaceError("UpdateWidgetLayout", workspaceID, persistence.ErrWidgetNotFound)
	})
}

// ResolveVariable returns the effective runtime value of one variable for
// the acting user, with secure values decrypted. This is the entry point
// for internal consumers such as the request proxy; the result must never
// reach a display context.
func (w *Workspace) ResolveVariable(ctx context.Context, user models.User, workspaceID string, componentType models.ComponentType, componentID, variable string, contextValues map[string]any) (any, error) {
	workspace, err := w.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	manager := w.cacheManager(workspace, user, contextValues)

	return manager.Value(ctx, componentType, componentID, variable)
}

// mutate loads, edits, stamps and saves a workspace, then drops the acting
// user's cache entries for the superseded version.
func (w *Workspace) mutate(ctx context.Context, user models.User, workspaceID string, edit func(*models.Workspace) error) (*models.Workspace, error) {
	workspace, err := w.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	staleKeys := w.cacheKeys(workspace, user)

	if err := edit(workspace); err != nil {
		return nil, err
	}

	w.touch(workspace)

	if err := w.persistence.SaveWorkspace(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	w.dropCacheKeys(ctx, staleKeys)

	return workspace, nil
}

// touch bumps the modification stamp, keeping it strictly monotonic even
// under sub-millisecond successive writes.
func (w *Workspace) touch(workspace *models.Workspace) {
	now := time.Now().UnixMilli()
	if now <= workspace.LastModified {
		now = workspace.LastModified + 1
	}

	workspace.LastModified = now
}

func (w *Workspace) cacheKeys(workspace *models.Workspace, user models.User) []string {
	return []string{
		resolver.VariableValuesCacheKey(workspace, user),
		resolver.GlobalDataCacheKey(workspace, user),
	}
}

// dropCacheKeys is best-effort cleanup. Entries for other users orphan and
// expire through their TTL instead.
func (w *Workspace) dropCacheKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := w.cache.Delete(ctx, key); err != nil {
			w.logger.Warn("failed to drop cache entry", "key", key, "error", err)
		}
	}
}

func (w *Workspace) cacheManager(workspace *models.Workspace, user models.User, contextValues map[string]any) *resolver.CacheManager {
	return resolver.NewCacheManager(workspace, user, resolver.Deps{
		Cache:         w.cache,
		Provider:      w.provider,
		Codec:         w.codec,
		ContextValues: contextValues,
		Preferences:   workspace.Preferences,
		Substitutor:   resolver.DefaultSubstitutor,
	}, nil)
}
