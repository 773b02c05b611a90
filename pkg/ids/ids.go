// Package ids implements identifier allocation for tabs, widget instances
// and wiring operators.
//
// Tabs and widget instances reuse the smallest unused numeric suffix of
// their parent's id space. Operator ids are allocated as max(existing)+1
// instead, so an in-flight merge can never collide with reused ids. The
// asymmetry is intentional.
package ids

import (
	"strconv"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/models"
)

// SmallestUnused returns the smallest non-negative integer not present in
// used. The empty set yields 0. O(n) time and space.
func SmallestUnused(used []int) int {
	seen := make(map[int]struct{}, len(used))
	for _, id := range used {
		if id >= 0 {
			seen[id] = struct{}{}
		}
	}

	for candidate := 0; ; candidate++ {
		if _, ok := seen[candidate]; !ok {
			return candidate
		}
	}
}

// NumericSuffix extracts the integer after the last dash of a composed id.
func NumericSuffix(id string) (int, bool) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx == len(id)-1 {
		return 0, false
	}

	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0, false
	}

	return n, true
}

// NextTabID composes the next tab id for a workspace from the smallest
// unused suffix among existing tabs.
func NextTabID(workspace *models.Workspace) string {
	used := make([]int, 0, len(workspace.Tabs))

	for _, tab := range workspace.Tabs {
		if n, ok := NumericSuffix(tab.ID); ok {
			used = append(used, n)
		}
	}

	return workspace.ID + "-" + strconv.Itoa(SmallestUnused(used))
}

// NextWidgetID composes the next widget instance id for a tab from the
// smallest unused suffix among existing widgets.
func NextWidgetID(tab *models.Tab) string {
	used := make([]int, 0, len(tab.Widgets))

	for _, widget := range tab.Widgets {
		if n, ok := NumericSuffix(widget.ID); ok {
			used = append(used, n)
		}
	}

	return tab.ID + "-" + strconv.Itoa(SmallestUnused(used))
}

// NextOperatorID allocates a workspace-scoped operator id as
// max(existing)+1. It never reuses freed ids.
func NextOperatorID(operators map[string]*models.Operator) string {
	maxID := 0

	for id := range operators {
		if n, err := strconv.Atoi(id); err == nil && n > maxID {
			maxID = n
		}
	}

	return strconv.Itoa(maxID + 1)
}
