package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBoundedInt parses s as an integer in [min, max]. An empty s yields def.
func ParseBoundedInt(s string, def, min, max int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%d is outside [%d, %d]", v, min, max)
	}
	return v, nil
}
