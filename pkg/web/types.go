// Package web provides HTTP request and response types for the workspace API.
package web

import (
	"encoding/json"

	"github.com/mosaicdash/mosaic/pkg/layout"
	"github.com/mosaicdash/mosaic/pkg/models"
)

// CreateWorkspaceRequest represents the request body for creating a new workspace.
type CreateWorkspaceRequest struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// WorkspaceFromTemplateRequest represents the request body for creating a
// workspace from a mashup template document. Name is optional; the
// template's title is used when absent.
type WorkspaceFromTemplateRequest struct {
	Name     string          `json:"name"`
	Template json.RawMessage `json:"template" validate:"required"`
}

// MergeTemplateRequest represents the request body for merging a mashup
// template document into an existing workspace.
type MergeTemplateRequest struct {
	Template json.RawMessage `json:"template" validate:"required"`
}

// UpdatePreferencesRequest represents the request body for updating
// workspace or tab preferences.
type UpdatePreferencesRequest struct {
	Preferences map[string]models.Preference `json:"preferences" validate:"required,min=1"`
}

// UpdateLayoutRequest represents the request body for updating a widget's
// screen-size layout configurations.
type UpdateLayoutRequest struct {
	Changes []layout.ConfigChange `json:"changes" validate:"required,min=1,dive"`
}
