package mashup

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTemplate = errors.New("invalid mashup template")

// MissingDependenciesError reports catalogue resources a template needs
// that do not exist. It is raised before any workspace mutation.
type MissingDependenciesError struct {
	Missing []string
}

func (e *MissingDependenciesError) Error() string {
	return fmt.Sprintf("missing dependencies: %s", strings.Join(e.Missing, ", "))
}

// IsMissingDependencies checks if an error reports unresolvable template
// dependencies.
func IsMissingDependencies(err error) bool {
	var mde *MissingDependenciesError

	return errors.As(err, &mde)
}
