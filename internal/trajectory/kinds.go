package trajectory

import (
	"fmt"
	"strings"

	"github.com/san-kum/livetrain/internal/dynamo"
)

type PathType int

const (
	HermiteCubic PathType = iota
	HermiteQuintic
)

var pathNames = map[PathType]string{
	HermiteCubic:   "hermite-cubic",
	HermiteQuintic: "hermite-quintic",
}

func (p PathType) String() string {
	if name, ok := pathNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PathType(%d)", int(p))
}

func ParsePathType(name string) (PathType, error) {
	key := normalise(name)
	for t, n := range pathNames {
		if n == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("path type %q: %w", name, dynamo.ErrUnknownKind)
}

func (p PathType) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PathType) UnmarshalText(b []byte) error {
	parsed, err := ParsePathType(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type ProfileType int

const (
	Triangular ProfileType = iota
	Trapezoidal
	SCurve
)

var profileNames = map[ProfileType]string{
	Triangular:  "triangular",
	Trapezoidal: "trapezoidal",
	SCurve:      "s-curve",
}

func (p ProfileType) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ProfileType(%d)", int(p))
}

func ParseProfileType(name string) (ProfileType, error) {
	key := normalise(name)
	if key == "scurve" {
		key = "s-curve"
	}
	for t, n := range profileNames {
		if n == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("profile type %q: %w", name, dynamo.ErrUnknownKind)
}

func (p ProfileType) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ProfileType) UnmarshalText(b []byte) error {
	parsed, err := ParseProfileType(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// normalise lowercases and maps spaces and underscores to hyphens.
func normalise(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(name)
}

func PathTypes() []PathType { return []PathType{HermiteCubic, HermiteQuintic} }

func ProfileTypes() []ProfileType { return []ProfileType{Triangular, Trapezoidal, SCurve} }
