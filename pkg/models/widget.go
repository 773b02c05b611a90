package models

// VariableValue is the per-user store behind a single widget/operator
// variable: user id -> stored value. Secure values are kept encrypted.
type VariableValue struct {
	Users map[string]any `json:"users"`
}

// LayoutConfig pairs one integer screen-width interval with the layout
// rectangle a widget uses inside that interval. LessOrEqual == -1 means
// "unbounded above".
type LayoutConfig struct {
	ID          int    `json:"id"`
	MoreOrEqual int    `json:"moreOrEqual"`
	LessOrEqual int    `json:"lessOrEqual"`
	Top         int    `json:"top"`
	Left        int    `json:"left"`
	ZIndex      int    `json:"zIndex"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Anchor      string `json:"anchor,omitempty"`

	Minimized     bool `json:"minimized"`
	FullDragboard bool `json:"fulldragboard"`
	TitleVisible  bool `json:"titlevisible"`

	// Relative-sizing flags. Ignored by fixed layouts.
	RelX      bool `json:"relx"`
	RelY      bool `json:"rely"`
	RelWidth  bool `json:"relwidth"`
	RelHeight bool `json:"relheight"`
}

// WidgetInstance is a placed, configured occurrence of a widget resource
// inside a tab. Ids follow the "tabID-n" convention.
type WidgetInstance struct {
	ID        string                   `json:"id"`
	Resource  string                   `json:"resource" validate:"required"` // qualified "vendor/name/version"
	Title     string                   `json:"title"`
	Layout    int                      `json:"layout"`
	ReadOnly  bool                     `json:"read_only"`
	Positions []LayoutConfig           `json:"positions"`
	Variables map[string]VariableValue `json:"variables"`
}

// SetVariable stores value for the given variable attributed to userID.
func (wi *WidgetInstance) SetVariable(name, userID string, value any) {
	if wi.Variables == nil {
		wi.Variables = map[string]VariableValue{}
	}

	entry, ok := wi.Variables[name]
	if !ok || entry.Users == nil {
		entry = VariableValue{Users: map[string]any{}}
	}

	entry.Users[userID] = value
	wi.Variables[name] = entry
}
