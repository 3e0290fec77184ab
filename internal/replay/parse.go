package replay

import (
	"fmt"
	"strconv"
	"strings"
)

var shaderStages = []string{"vertex", "hull", "domain", "geometry", "pixel", "compute"}

// parseStage normalizes a shader stage name.
func parseStage(stage string) (string, error) {
	lower := strings.ToLower(stage)
	for _, s := range shaderStages {
		if s == lower {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown shader stage: %s", stage)
}

// numericResourceID extracts the numeric part of a resource id, accepting
// both "ResourceId::123" and bare "123".
func numericResourceID(id string) (uint64, error) {
	part := id
	if idx := strings.LastIndex(id, "::"); idx >= 0 {
		part = id[idx+2:]
	}
	n, err := strconv.ParseUint(part, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resource id: %s", id)
	}
	return n, nil
}

// sameResource compares two resource ids numerically, so formatting
// differences between the two accepted spellings never matter.
func sameResource(a, b string) bool {
	na, err := numericResourceID(a)
	if err != nil {
		return false
	}
	nb, err := numericResourceID(b)
	if err != nil {
		return false
	}
	return na == nb
}
