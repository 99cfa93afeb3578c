package merinfo

import (
	"fmt"
	"sort"
	"merinfo-backend/lib/textutil"
)

// Candidate is one composed search query plus the confidence used to
// order it against other candidates. Confidence is never persisted.
type Candidate struct {
	Query      string
	Confidence float64
}

const maxStrategies = 4

// BuildStrategies turns partial identity fields into an ordered list of
// search queries, most promising first. Fields are normalized before
// composition; a field is considered present when normalization leaves
// it non-empty. All applicable compositions are generated, then sorted
// by confidence (generation order breaks ties) and capped at 4.
func BuildStrategies(q Query, referenceYear int) []Candidate {
	first := textutil.NormalizeSwedish(q.FirstName)
	last := textutil.NormalizeSwedish(q.LastName)
	city := textutil.NormalizeSwedish(q.City)
	street := textutil.NormalizeSwedish(q.Street)

	var candidates []Candidate

	if first != "" && last != "" && city != "" {
		candidates = append(candidates, Candidate{
			Query:      fmt.Sprintf("%s+%s+%s", first, last, city),
			Confidence: 1.0,
		})
	}

	if street != "" && city != "" {
		if first != "" && last != "" {
			candidates = append(candidates, Candidate{
				Query:      fmt.Sprintf("%s+%s+%s+%s", first, last, street, city),
				Confidence: 0.95,
			})
		} else if first != "" {
			candidates = append(candidates, Candidate{
				Query:      fmt.Sprintf("%s+%s+%s", first, street, city),
				Confidence: 0.8,
			})
		}
	}

	if first != "" && city != "" {
		candidates = append(candidates, Candidate{
			Query:      fmt.Sprintf("%s+%s", first, city),
			Confidence: 0.7,
		})
	}

	if last != "" && city != "" {
		candidates = append(candidates, Candidate{
			Query:      fmt.Sprintf("%s+%s", last, city),
			Confidence: 0.6,
		})
	}

	if q.Age > 0 && first != "" && last != "" {
		birthYear := referenceYear - q.Age
		candidates = append(candidates, Candidate{
			Query:      fmt.Sprintf("%s+%s+%d", first, last, birthYear),
			Confidence: 0.5,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > maxStrategies {
		candidates = candidates[:maxStrategies]
	}
	return candidates
}
