package enums

import (
	"fmt"
	"slices"
)

// set is the closed list of values of one string enum.
type set[T ~string] []T

func (s set[T]) has(v T) bool {
	return slices.Contains(s, v)
}

// parse matches raw exactly; callers normalise case first when the enum
// allows it.
func (s set[T]) parse(raw, kind string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
