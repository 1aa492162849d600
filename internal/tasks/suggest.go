package tasks

import (
	"sort"
	"strings"
)

const maxSuggestionDistance = 2

// Suggest returns invocable task names within a small edit distance of
// name, closest first.
func Suggest(r Registry, name string) []string {
	type candidate struct {
		name string
		dist int
	}
	var found []candidate
	for n, def := range r.TaskDefinitions() {
		if def.IsSubtask {
			continue
		}
		if d := editDistance(name, n); d <= maxSuggestionDistance {
			found = append(found, candidate{n, d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})

	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.name
	}
	return out
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// SuggestionSuffix formats the suggestions for name as a message suffix, or
// returns "" when there are none.
func SuggestionSuffix(r Registry, name string) string {
	found := Suggest(r, name)
	if len(found) == 0 {
		return ""
	}
	quoted := make([]string, len(found))
	for i, n := range found {
		quoted[i] = "'" + n + "'"
	}
	return ". Did you mean " + strings.Join(quoted, " or ") + "?"
}
