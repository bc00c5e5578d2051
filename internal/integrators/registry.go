package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/livetrain/internal/dynamo"
)

var constructors = map[string]func() dynamo.Integrator{
	"exact": func() dynamo.Integrator { return NewExact() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"euler": func() dynamo.Integrator { return NewEuler() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("integrator %q: %w", name, dynamo.ErrUnknownKind)
	}
	return ctor(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
