package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaicdash/mosaic/pkg/cache"
	"github.com/mosaicdash/mosaic/pkg/catalogue"
	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/mosaicdash/mosaic/pkg/secrets"
)

// SecureMask replaces secure non-empty values in display contexts.
const SecureMask = "********"

var (
	// ErrVariableNotFound indicates the requested (component, variable)
	// pair has no resolved entry.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrMissingParams indicates required workspace parameters are unfilled
	// and resolution is gated.
	ErrMissingParams = errors.New("required workspace parameters are not filled")
)

// ValueMap is the resolved state of one workspace for one requesting user:
// component type -> component id -> variable name -> entry.
type ValueMap map[string]map[string]map[string]models.ResolvedVariable

// Deps are the collaborators a CacheManager resolves through.
// ContextValues, Preferences and Substitutor are only consulted when the
// manager has to compute the forced-value overlay itself.
type Deps struct {
	Cache    cache.Cache
	Provider catalogue.Provider
	Codec    *secrets.Codec

	ContextValues map[string]any
	Preferences   map[string]models.Preference
	Substitutor   SubstitutorBuilder
}

// CacheManager resolves and caches the effective value map of every
// widget/operator variable in one workspace for one requesting user. It is
// read-mostly and safe for concurrent callers of the same cache key;
// simultaneous misses recompute redundantly, which is acceptable because
// recomputation is deterministic.
type CacheManager struct {
	workspace *models.Workspace
	user      models.User
	deps      Deps

	forced *models.ForcedValues
	values ValueMap
}

// NewCacheManager builds a manager with a precomputed forced-value overlay.
// Pass forced as nil to have the manager compute the overlay itself from
// the deps' context values and workspace preference values.
func NewCacheManager(workspace *models.Workspace, user models.User, deps Deps, forced *models.ForcedValues) *CacheManager {
	return &CacheManager{
		workspace: workspace,
		user:      user,
		deps:      deps,
		forced:    forced,
	}
}

// VariableValues returns the full resolved map, computing and caching it on
// first use within this manager's lifetime.
func (c *CacheManager) VariableValues(ctx context.Context) (ValueMap, error) {
	if c.values != nil {
		return c.values, nil
	}

	key := VariableValuesCacheKey(c.workspace, c.user)

	cached, err := c.deps.Cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		var values ValueMap
		if err := json.Unmarshal(cached, &values); err == nil {
			c.values = values

			return c.values, nil
		}
		// Undecodable entries are treated as misses and recomputed.
	}

	values, err := c.populate(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resolved variables: %w", err)
	}

	if err := c.deps.Cache.Set(ctx, key, encoded, cache.DefaultTTL); err != nil {
		return nil, err
	}

	c.values = values

	return c.values, nil
}

// Value resolves the effective value of one variable, decrypting secure
// entries for internal consumers such as the proxy injector.
func (c *CacheManager) Value(ctx context.Context, componentType models.ComponentType, componentID, varName string) (any, error) {
	entry, err := c.entry(ctx, componentType, componentID, varName)
	if err != nil {
		return nil, err
	}

	return c.processEntry(entry), nil
}

// VariableData returns the display form of one variable. Secure non-empty
// values are masked.
func (c *CacheManager) VariableData(ctx context.Context, componentType models.ComponentType, componentID, varName string) (models.VariableData, error) {
	entry, err := c.entry(ctx, componentType, componentID, varName)
	if err != nil {
		return models.VariableData{}, err
	}

	value := entry.Value
	if entry.Secure && value != "" && value != nil {
		value = SecureMask
	}

	return models.VariableData{
		Name:     varName,
		Secure:   entry.Secure,
		ReadOnly: entry.ReadOnly,
		Hidden:   entry.Hidden,
		Value:    value,
	}, nil
}

func (c *CacheManager) entry(ctx context.Context, componentType models.ComponentType, componentID, varName string) (models.ResolvedVariable, error) {
	values, err := c.VariableValues(ctx)
	if err != nil {
		return models.ResolvedVariable{}, err
	}

	entry, ok := values[string(componentType)][componentID][varName]
	if !ok {
		return models.ResolvedVariable{}, fmt.Errorf("%w: %s %s/%s", ErrVariableNotFound, componentType, componentID, varName)
	}

	return entry, nil
}

func (c *CacheManager) processEntry(entry models.ResolvedVariable) any {
	if !entry.Secure {
		return entry.Value
	}

	stored, _ := entry.Value.(string)

	decrypted := c.deps.Codec.Decrypt(stored)
	if text, ok := decrypted.(string); ok {
		return models.ParseFromText(models.VariableDef{Type: entry.Type}, text)
	}

	return decrypted
}

func (c *CacheManager) populate(ctx context.Context) (ValueMap, error) {
	forced := c.forced
	if forced == nil {
		computed := ProcessForcedValues(c.workspace, c.user, c.deps.ContextValues, c.deps.Preferences, c.deps.Substitutor)
		forced = &computed
		c.forced = forced
	}

	if len(forced.EmptyParams) > 0 {
		return nil, ErrMissingParams
	}

	values := ValueMap{
		string(models.ComponentTypeWidget):   {},
		string(models.ComponentTypeOperator): {},
	}

	for _, tab := range c.workspace.Tabs {
		for _, widget := range tab.Widgets {
			entries := map[string]models.ResolvedVariable{}
			values[string(models.ComponentTypeWidget)][widget.ID] = entries

			info, err := c.deps.Provider.ResourceInfo(ctx, widget.Resource)
			if errors.Is(err, catalogue.ErrResourceNotFound) {
				// The widget behind this instance is missing; its variables
				// stay unresolved.
				continue
			} else if err != nil {
				return nil, err
			}

			for _, def := range append(append([]models.VariableDef{}, info.Preferences...), info.Properties...) {
				value, ok := widget.Variables[def.Name]

				entry, err := c.resolveVariable(models.ComponentTypeWidget, widget.ID, def, valueOrNil(value, ok), forced)
				if err != nil {
					return nil, err
				}

				entries[def.Name] = entry
			}
		}
	}

	for operatorID, operator := range c.workspace.Wiring.Operators {
		entries := map[string]models.ResolvedVariable{}
		values[string(models.ComponentTypeOperator)][operatorID] = entries

		info, err := c.deps.Provider.ResourceInfo(ctx, operator.Name)
		if errors.Is(err, catalogue.ErrResourceNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}

		for _, def := range info.Preferences {
			value, ok := operator.Preferences[def.Name]

			entry, err := c.resolveVariable(models.ComponentTypeOperator, operatorID, def, valueOrNil(value, ok), forced)
			if err != nil {
				return nil, err
			}

			entries[def.Name] = entry
		}

		for _, def := range info.Properties {
			value, ok := operator.Properties[def.Name]

			entry, err := c.resolveVariable(models.ComponentTypeOperator, operatorID, def, valueOrNil(value, ok), forced)
			if err != nil {
				return nil, err
			}

			entries[def.Name] = entry
		}
	}

	return values, nil
}

// resolveVariable applies the precedence rules for one variable: forced
// override first (read-only, re-encrypted when secure), then the per-user
// store, then the catalogue default.
func (c *CacheManager) resolveVariable(componentType models.ComponentType, componentID string,
	def models.VariableDef, value *models.VariableValue, forced *models.ForcedValues) (models.ResolvedVariable, error) {
	entry := models.ResolvedVariable{
		Type:   def.Type,
		Secure: def.Secure,
	}

	if fv, ok := forced.ByComponentType(componentType)[componentID][def.Name]; ok {
		if def.Secure {
			// Forced values arrive as plaintext template output; normalize
			// them into the same encrypted-at-rest shape as user-set values.
			encrypted, err := c.deps.Codec.Encrypt(fv.Value)
			if err != nil {
				return models.ResolvedVariable{}, err
			}

			entry.Value = encrypted
		} else {
			entry.Value = models.ParseFromText(def, fv.Value)
		}

		entry.ReadOnly = true
		entry.Hidden = fv.Hidden

		return entry, nil
	}

	variableUser := c.workspace.Creator
	if def.Multiuser {
		variableUser = c.user.ResolutionID()
	}

	if value == nil || value.Users[variableUser] == nil {
		entry.Value = models.ParseFromText(def, def.Default)
	} else {
		entry.Value = value.Users[variableUser]
	}

	entry.ReadOnly = false
	entry.Hidden = false

	return entry, nil
}

func valueOrNil(value models.VariableValue, ok bool) *models.VariableValue {
	if !ok {
		return nil
	}

	return &value
}
