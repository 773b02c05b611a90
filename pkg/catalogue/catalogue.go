// Package catalogue defines the variable definition provider boundary. The
// core never inspects widget bundles itself; it asks the catalogue for the
// processed preference and property definitions of a qualified resource.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/models"
)

// ErrResourceNotFound indicates the catalogue has no resource under the
// given qualified name.
var ErrResourceNotFound = errors.New("catalogue resource not found")

// ResourceInfo is the processed metadata for one catalogue resource.
type ResourceInfo struct {
	Name        string               `json:"name"` // qualified "vendor/name/version"
	Preferences []models.VariableDef `json:"preferences"`
	Properties  []models.VariableDef `json:"properties"`
}

// Definition returns the preference or property definition with the given
// name, or false.
func (r *ResourceInfo) Definition(name string) (models.VariableDef, bool) {
	for _, def := range r.Preferences {
		if def.Name == name {
			return def, true
		}
	}

	for _, def := range r.Properties {
		if def.Name == name {
			return def, true
		}
	}

	return models.VariableDef{}, false
}

// Provider is the catalogue boundary consumed by resolution and merge.
type Provider interface {
	// ResourceInfo returns the processed definitions for a qualified name,
	// or ErrResourceNotFound.
	ResourceInfo(ctx context.Context, name string) (*ResourceInfo, error)

	// IsAvailable reports whether the resource exists and the user may use
	// it.
	IsAvailable(ctx context.Context, user models.User, name string) bool

	// Install makes the resource available to the user, resolving it from
	// the catalogue if needed.
	Install(ctx context.Context, user models.User, name string) error
}

// SplitName splits a qualified "vendor/name/version" resource name.
func SplitName(qualified string) (vendor, name, version string, err error) {
	parts := strings.Split(qualified, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid qualified resource name: %q", qualified)
	}

	return parts[0], parts[1], parts[2], nil
}
