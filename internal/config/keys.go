package config

import "strings"

// toolKey normalizes a tool name for the priorities map.
func toolKey(tool string) string {
	return strings.ToLower(strings.TrimSpace(tool))
}

// marketKey normalizes a market tag for the coverage map.
func marketKey(mkt string) string {
	return strings.ToUpper(strings.TrimSpace(mkt))
}
