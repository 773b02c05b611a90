// Package template provides the placeholder substitution used for forced
// variable values and template-supplied initial values. It replaces
// "{dotted.path}" tokens against a context built from the requesting user,
// ambient platform values and workspace parameters.
package template

import (
	"fmt"
	"regexp"

	"github.com/mosaicdash/mosaic/pkg/models"
)

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z][\w-]*(?:\.[a-zA-Z][\w-]*)*)\}`)

// Processor substitutes placeholders against a fixed context. It is a
// narrow collaborator: build one per resolution or merge and pass it in.
type Processor struct {
	context map[string]any
}

// NewProcessor builds a processor whose context exposes the user (under
// "user.id" and "user.username"), the caller-supplied ambient context
// values and the workspace parameter values (under "params.<name>").
func NewProcessor(user models.User, contextValues map[string]any, params map[string]string) *Processor {
	paramCtx := make(map[string]any, len(params))
	for name, value := range params {
		paramCtx[name] = value
	}

	context := map[string]any{
		"user": map[string]any{
			"id":       user.ResolutionID(),
			"username": user.Username,
		},
		"params": paramCtx,
	}

	for name, value := range contextValues {
		if _, reserved := context[name]; !reserved {
			context[name] = value
		}
	}

	return &Processor{context: context}
}

// Process replaces every resolvable "{dotted.path}" token in text.
// Unresolvable tokens are left verbatim.
func (p *Processor) Process(text string) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(match string) string {
		path := placeholderRE.FindStringSubmatch(match)[1]

		value, ok := lookup(p.context, splitPath(path))
		if !ok {
			return match
		}

		return stringify(value)
	})
}

func splitPath(path string) []string {
	var parts []string

	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}

	return parts
}

func lookup(context map[string]any, path []string) (any, bool) {
	var current any = context

	for _, part := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
