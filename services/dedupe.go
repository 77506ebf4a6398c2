package services

import "chefshelf/models"

// DedupeByTitle collapses recipes whose titles are exactly equal. The result
// keeps the order in which each title first appeared, holding the last record
// seen for that title. Titles that differ only in case or spacing are kept
// apart.
func DedupeByTitle(recipes []models.Recipe) []models.Recipe {
	position := make(map[string]int, len(recipes))
	out := make([]models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if i, ok := position[r.Title]; ok {
			out[i] = r
			continue
		}
		position[r.Title] = len(out)
		out = append(out, r)
	}
	return out
}
