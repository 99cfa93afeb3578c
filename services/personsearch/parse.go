package personsearch

import (
	"strings"
	"merinfo-backend/lib/scrapers/merinfo"

	"github.com/antzucaro/matchr"
)

// cities recognized by the free-text tokenizer
var knownCities = []string{
	"stockholm", "göteborg", "malmö", "uppsala", "västerås", "örebro",
	"linköping", "helsingborg", "jönköping", "norrköping", "lund",
	"umeå", "gävle", "borlänge", "sundsvall", "borås", "eskilstuna",
}

const cityMatchThreshold = 0.92

// ParseQuery tokenizes a free-text question like "what cars does anna
// svensson in stockholm own" into identity fields: the first token
// recognized as a city (exactly, or fuzzily for misspellings) becomes
// the city, and up to two tokens immediately before it become first
// and last name. Everything subtler than that is the caller's problem;
// the core search contract only ever sees separated fields.
func ParseQuery(text string) merinfo.Query {
	var q merinfo.Query

	tokens := strings.Fields(strings.ToLower(text))
	for i, token := range tokens {
		city, ok := matchCity(token)
		if !ok {
			continue
		}
		q.City = city
		if i >= 2 {
			q.FirstName = tokens[i-2]
			q.LastName = tokens[i-1]
		} else if i == 1 {
			q.FirstName = tokens[0]
		}
		break
	}

	return q
}

func matchCity(token string) (string, bool) {
	for _, city := range knownCities {
		if token == city {
			return city, true
		}
	}

	bestCity := ""
	bestSimilarity := 0.0
	for _, city := range knownCities {
		similarity := matchr.JaroWinkler(token, city, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestCity = city
		}
	}
	if bestSimilarity >= cityMatchThreshold {
		return bestCity, true
	}
	return "", false
}
