package service

import "strings"

// Discord scheduled events have no field for the owning working group, so
// the mapping travels as a fenced line inside the event description:
//
//	```working-group-id=Mutual Aid```
//
// The line is stripped from the description on ingest and re-appended when
// pushing outbound.

const (
	groupTagPrefix = "```working-group-id="
	groupTagSuffix = "```"
)

// extractGroupTag returns the embedded working-group name (empty if no tag
// is present) and the description with the tag line removed.
func extractGroupTag(description string) (name, cleaned string) {
	lines := strings.Split(description, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if name == "" && strings.HasPrefix(trimmed, groupTagPrefix) && strings.HasSuffix(trimmed, groupTagSuffix) {
			name = strings.TrimSuffix(strings.TrimPrefix(trimmed, groupTagPrefix), groupTagSuffix)
			continue
		}
		kept = append(kept, line)
	}
	return name, strings.TrimSpace(strings.Join(kept, "\n"))
}

// appendGroupTag re-embeds the working-group name as its own fenced line.
func appendGroupTag(description, name string) string {
	if name == "" {
		return description
	}
	tag := groupTagPrefix + name + groupTagSuffix
	if description == "" {
		return tag
	}
	return description + "\n\n" + tag
}
