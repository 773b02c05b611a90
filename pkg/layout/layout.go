// Package layout validates and updates widget layout configurations. Each
// widget carries one layout rectangle per screen-width interval; the
// interval set must exactly tile [0, +inf).
package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mosaicdash/mosaic/pkg/models"
)

var (
	// ErrDuplicateLayoutID indicates the same configuration id appears twice
	// in one change set.
	ErrDuplicateLayoutID = errors.New("duplicated layout configuration id")

	// ErrInvalidAction indicates an unknown layout change action.
	ErrInvalidAction = errors.New("invalid value for action field")

	// ErrBrokenIntervals indicates the interval set does not tile [0, +inf).
	ErrBrokenIntervals = errors.New("invalid screen size intervals")
)

// Change actions accepted by UpdatePositions.
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ConfigChange is a single add/update/delete of one screen-size interval.
type ConfigChange struct {
	Action string `json:"action" validate:"oneof=update delete"`
	models.LayoutConfig
}

// CheckIntervals verifies that the configurations exactly tile [0, +inf):
// sorted by MoreOrEqual they must start at 0, be contiguous and end with
// LessOrEqual == -1 (unbounded above). The full set is always re-validated,
// never just a delta, since deleting an interval can reopen a gap.
func CheckIntervals(configs []models.LayoutConfig) error {
	if len(configs) == 0 {
		return fmt.Errorf("%w: no intervals defined", ErrBrokenIntervals)
	}

	sorted := append([]models.LayoutConfig{}, configs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MoreOrEqual < sorted[j].MoreOrEqual
	})

	if sorted[0].MoreOrEqual != 0 {
		return fmt.Errorf("%w: the first interval must start from 0", ErrBrokenIntervals)
	}

	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i].LessOrEqual+1 != sorted[i+1].MoreOrEqual {
			return fmt.Errorf("%w: intervals should not overlap nor have gaps", ErrBrokenIntervals)
		}
	}

	if sorted[len(sorted)-1].LessOrEqual != -1 {
		return fmt.Errorf("%w: the last interval must extend to infinity", ErrBrokenIntervals)
	}

	return nil
}

// UpdatePositions applies a set of layout changes to a widget instance and
// re-validates the entire resulting interval set. Nothing is mutated when
// validation fails.
func UpdatePositions(widget *models.WidgetInstance, changes []ConfigChange) error {
	seen := map[int]struct{}{}
	for _, change := range changes {
		if _, dup := seen[change.ID]; dup {
			return ErrDuplicateLayoutID
		}
		seen[change.ID] = struct{}{}
	}

	intervals := map[int]models.LayoutConfig{}
	for _, config := range widget.Positions {
		intervals[config.ID] = config
	}

	for _, change := range changes {
		switch change.Action {
		case ActionDelete:
			delete(intervals, change.ID)
		case ActionUpdate:
			if err := validateConfig(change.LayoutConfig); err != nil {
				return err
			}

			intervals[change.ID] = change.LayoutConfig
		default:
			return fmt.Errorf("%w: %s", ErrInvalidAction, change.Action)
		}
	}

	result := make([]models.LayoutConfig, 0, len(intervals))
	for _, config := range intervals {
		result = append(result, config)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MoreOrEqual < result[j].MoreOrEqual
	})

	if err := CheckIntervals(result); err != nil {
		return err
	}

	widget.Positions = result

	return nil
}

// DefaultPositions is the single unbounded interval used when a widget is
// created without an explicit layout configuration.
func DefaultPositions() []models.LayoutConfig {
	return []models.LayoutConfig{{
		ID:           0,
		MoreOrEqual:  0,
		LessOrEqual:  -1,
		Width:        1,
		Height:       1,
		TitleVisible: true,
	}}
}

func validateConfig(config models.LayoutConfig) error {
	if config.MoreOrEqual < 0 {
		return fmt.Errorf("%w: invalid value for moreOrEqual field", ErrBrokenIntervals)
	}

	if config.LessOrEqual < -1 {
		return fmt.Errorf("%w: invalid value for lessOrEqual field", ErrBrokenIntervals)
	}

	if config.Top < 0 || config.Left < 0 || config.ZIndex < 0 {
		return fmt.Errorf("%w: position fields must not be negative", ErrBrokenIntervals)
	}

	if config.Width <= 0 || config.Height <= 0 {
		return fmt.Errorf("%w: size fields must be positive", ErrBrokenIntervals)
	}

	return nil
}

// IsValidationError reports whether err belongs to the layout validation
// taxonomy.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrDuplicateLayoutID) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrBrokenIntervals)
}
