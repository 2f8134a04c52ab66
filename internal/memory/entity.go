package memory

import (
	"sort"
	"strings"
)

// Lookup matches extracted entity names against the index, case-insensitive.
// Entities with no match are simply absent from the result. Pure.
func Lookup(entities []string, index EntityIndex) map[string][]string {
	if len(entities) == 0 || len(index) == 0 {
		return map[string][]string{}
	}

	found := make(map[string][]string)
	for _, entity := range entities {
		key := strings.ToLower(strings.TrimSpace(entity))
		if key == "" {
			continue
		}
		if facts, ok := index[key]; ok && len(facts) > 0 {
			found[key] = facts
		}
	}
	return found
}

// FormatFacts renders looked-up facts as a flat prompt-insertable block.
// Returns an empty string when there are no facts. Entities are sorted so
// output is deterministic regardless of map iteration order.
func FormatFacts(facts map[string][]string) string {
	if len(facts) == 0 {
		return ""
	}

	names := make([]string, 0, len(facts))
	for name := range facts {
		if len(facts[name]) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Known facts:\n")
	for _, name := range names {
		for _, fact := range facts[name] {
			b.WriteString("- ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(fact)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
