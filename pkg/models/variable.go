package models

import (
	"strconv"
	"strings"
)

// Variable types understood by the resolution layer.
const (
	VariableTypeBoolean = "boolean"
	VariableTypeNumber  = "number"
	VariableTypeString  = "string"
)

// VariableDef is the per-resource metadata for one preference or property,
// supplied by the catalogue.
type VariableDef struct {
	Name     string `json:"name"     validate:"required"`
	Type     string `json:"type"     validate:"oneof=boolean number string"`
	Default  string `json:"default"`
	Secure   bool   `json:"secure"`
	Multiuser bool  `json:"multiuser"`
	ReadOnly bool   `json:"readonly"`
}

// ResolvedVariable is the cached result of resolving one
// (component, variable, requesting user) triple.
type ResolvedVariable struct {
	Type     string `json:"type"`
	Secure   bool   `json:"secure"`
	Value    any    `json:"value"`
	ReadOnly bool   `json:"readonly"`
	Hidden   bool   `json:"hidden"`
}

// VariableData is the display form of a resolved variable. Secure non-empty
// values are masked before it reaches a display context.
type VariableData struct {
	Name     string `json:"name"`
	Secure   bool   `json:"secure"`
	ReadOnly bool   `json:"readonly"`
	Hidden   bool   `json:"hidden"`
	Value    any    `json:"value"`
}

// ParseFromText coerces a textual value to the variable's declared type.
// Booleans accept "true", "1" and "on"; numbers fall back to the definition
// default and then to 0; everything else passes through as string.
func ParseFromText(def VariableDef, value string) any {
	switch def.Type {
	case VariableTypeBoolean:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "on":
			return true
		default:
			return false
		}
	case VariableTypeNumber:
		if num, err := strconv.ParseFloat(value, 64); err == nil {
			return num
		}

		if num, err := strconv.ParseFloat(def.Default, 64); err == nil {
			return num
		}

		return float64(0)
	default:
		return value
	}
}
