// Package web provides HTTP handlers and REST API endpoints for workspace management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/services"
)

// Identity headers set by the authentication front. Requests without them
// resolve as the shared anonymous user.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUsername = "X-User-Name"
)

type APIHandlers struct {
	workspaceService *services.Workspace
	validator        *validator.Validate
}

func NewAPIHandlers(workspaceService *services.Workspace, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		workspaceService: workspaceService,
		validator:        validator,
	}
}

// Register mounts every workspace route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	w := app.Group("/workspaces")
	w.Get("/", h.GetWorkspaces)
	w.Post("/", h.CreateWorkspace)
	w.Post("/from-template", h.CreateWorkspaceFromTemplate)
	w.Get("/:id", h.GetWorkspace)
	w.Delete("/:id", h.DeleteWorkspace)
	w.Post("/:id/merge", h.MergeTemplate)
	w.Patch("/:id/preferences", h.UpdatePreferences)
	w.Patch("/:id/tabs/:tabId/preferences", h.UpdateTabPreferences)
	w.Put("/:id/tabs/:tabId/widgets/:widgetId/layout", h.UpdateWidgetLayout)
}

// requestUser extracts the acting identity from the trusted headers.
func requestUser(c fiber.Ctx) models.User {
	id := c.Get(HeaderUserID)
	if id == "" {
		return models.Anonymous()
	}

	username := c.Get(HeaderUsername)
	if username == "" {
		username = id
	}

	return models.User{ID: id, Username: username}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, ok := h.workspaceService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Mosaic API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Mosaic API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkspaces(c fiber.Ctx) error {
	workspaces, err := h.workspaceService.Workspaces(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workspaces":  workspaces,
		"total_count": len(workspaces),
	})
}

// GetWorkspace returns the workspace document assembled for the acting
// user: variables resolved, secure values masked, tabs withheld while
// required parameters are unfilled.
func (h *APIHandlers) GetWorkspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	data, err := h.workspaceService.GlobalData(c.Context(), requestUser(c), id, nil)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(data)
}

func (h *APIHandlers) CreateWorkspace(c fiber.Ctx) error {
	var req CreateWorkspaceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.Create(c.Context(), requestUser(c), services.CreateWorkspaceRequest{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		Public:      req.Public,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

func (h *APIHandlers) CreateWorkspaceFromTemplate(c fiber.Ctx) error {
	var req WorkspaceFromTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.CreateFromTemplate(c.Context(), requestUser(c),
		services.CreateWorkspaceRequest{Name: req.Name}, req.Template, nil)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

func (h *APIHandlers) DeleteWorkspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	if err := h.workspaceService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) MergeTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req MergeTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.MergeTemplate(c.Context(), requestUser(c), id, req.Template, nil)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) UpdatePreferences(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req UpdatePreferencesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.UpdatePreferences(c.Context(), requestUser(c), id, req.Preferences)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) UpdateTabPreferences(c fiber.Ctx) error {
	id := c.Params("id")
	tabID := c.Params("tabId")

	if id == "" || tabID == "" {
		return badRequest(c, "Workspace and tab IDs are required")
	}

	var req UpdatePreferencesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.UpdateTabPreferences(c.Context(), requestUser(c), id, tabID, req.Preferences)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) UpdateWidgetLayout(c fiber.Ctx) error {
	id := c.Params("id")
	tabID := c.Params("tabId")
	widgetID := c.Params("widgetId")

	if id == "" || tabID == "" || widgetID == "" {
		return badRequest(c, "Workspace, tab and widget IDs are required")
	}

	var req UpdateLayoutRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.UpdateWidgetLayout(c.Context(), requestUser(c), id, tabID, widgetID, req.Changes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}
