package merinfo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxSuggestionValues = 5

// SearchPerson is the sole entry point: it drives the strategy list
// through fetch and extraction, scores candidate outcomes and returns
// the final verdict. Failures never escape as errors; every failure
// mode is an unsuccessful Outcome. The whole call is serialized against
// other calls on the same client.
func (c *Client) SearchPerson(ctx context.Context, q Query) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	ctx, span := tracer.Start(ctx, "client:SearchPerson")
	defer span.End()

	if q.FirstName == "" && q.LastName == "" && q.City == "" {
		span.SetStatus(codes.Error, "no search criteria")
		return Outcome{
			Persons:      []Person{},
			Vehicles:     []Vehicle{},
			Suggestions:  []string{},
			ErrorMessage: "at least one of first name, last name or city is required",
			ResponseTime: time.Since(start).Seconds(),
		}
	}

	strategies := BuildStrategies(q, c.opts.ReferenceYear)
	slog.InfoContext(ctx, "starting search", "strategies", len(strategies))

	var best *Outcome
	bestScore := 0.0

	for _, candidate := range strategies {
		slog.InfoContext(
			ctx, "trying strategy",
			"query", candidate.Query,
			"confidence", candidate.Confidence,
		)
		span.AddEvent("strategy", trace.WithAttributes(
			attribute.String("query", candidate.Query),
			attribute.Float64("confidence", candidate.Confidence),
		))

		doc, err := c.fetchDocument(ctx, c.searchURL(candidate.Query))
		if err != nil {
			slog.WarnContext(ctx, "strategy fetch failed", "query", candidate.Query, "err", err)
			continue
		}

		persons := c.extractPersons(ctx, doc)
		if len(persons) == 0 {
			slog.InfoContext(ctx, "no persons found", "query", candidate.Query)
			continue
		}

		switch {
		case len(persons) == 1:
			// single match wins immediately, remaining strategies
			// are not tried
			vehicles := c.fetchVehicles(ctx, persons[0].ProfileURL)
			if vehicles == nil {
				vehicles = []Vehicle{}
			}
			score := QualityScore(persons, vehicles)
			slog.InfoContext(ctx, "single match", "name", persons[0].Name, "vehicles", len(vehicles))
			return Outcome{
				Success:        true,
				Persons:        persons,
				Vehicles:       vehicles,
				QualityScore:   score,
				SearchStrategy: candidate.Query,
				ResponseTime:   time.Since(start).Seconds(),
				Suggestions:    []string{},
			}

		case len(persons) <= 3:
			score := QualityScore(persons, nil)
			if score > bestScore {
				best = &Outcome{
					Persons:        persons,
					Vehicles:       []Vehicle{},
					QualityScore:   score,
					ErrorMessage:   fmt.Sprintf("multiple results (%d), narrow the search", len(persons)),
					SearchStrategy: candidate.Query,
					Suggestions:    buildSuggestions(persons),
				}
				bestScore = score
			}

		default:
			slog.InfoContext(ctx, "too many results, discarding", "count", len(persons))
		}
	}

	if best != nil {
		best.ResponseTime = time.Since(start).Seconds()
		return *best
	}

	span.SetStatus(codes.Error, "strategies exhausted")
	return Outcome{
		Persons:      []Person{},
		Vehicles:     []Vehicle{},
		Suggestions:  []string{},
		ErrorMessage: "no results found",
		ResponseTime: time.Since(start).Seconds(),
	}
}

func (c *Client) searchURL(query string) string {
	return c.baseURL.String() + "/search?q=" + url.QueryEscape(query)
}

// fetchVehicles loads a person's profile page and extracts the vehicle
// table. An absent profile url or a failed fetch yields no vehicles.
func (c *Client) fetchVehicles(ctx context.Context, profileURL string) []Vehicle {
	if profileURL == "" {
		return nil
	}
	slog.InfoContext(ctx, "fetching vehicle info", "url", profileURL)

	doc, err := c.fetchDocument(ctx, profileURL)
	if err != nil {
		slog.WarnContext(ctx, "profile fetch failed", "url", profileURL, "err", err)
		return nil
	}
	return extractVehicles(ctx, doc)
}

// QualityScore rates a candidate outcome in [0, 1]: base 0.5 when any
// person was found, bonuses for a narrow match, for vehicles and for
// per-person field completeness.
func QualityScore(persons []Person, vehicles []Vehicle) float64 {
	if len(persons) == 0 {
		return 0.0
	}

	score := 0.5
	if len(persons) == 1 {
		score += 0.3
	} else if len(persons) <= 3 {
		score += 0.1
	}
	if len(vehicles) > 0 {
		score += 0.2
	}

	for _, p := range persons {
		if p.Address != "" {
			score += 0.05
		}
		if p.Age > 0 {
			score += 0.05
		}
		if p.Gender != "" {
			score += 0.05
		}
	}

	return min(1.0, score)
}

// buildSuggestions tells the caller how to narrow a multi-match query:
// the distinct streets and distinct ages observed, capped at 5 each.
func buildSuggestions(persons []Person) []string {
	suggestions := []string{}
	if len(persons) <= 1 {
		return suggestions
	}

	var streets []string
	for _, p := range persons {
		if p.Street != "" {
			streets = appendDistinct(streets, p.Street)
		}
	}
	if len(streets) > 0 {
		if len(streets) > maxSuggestionValues {
			streets = streets[:maxSuggestionValues]
		}
		suggestions = append(suggestions, "narrow by street: "+strings.Join(streets, ", "))
	}

	var ages []string
	for _, p := range persons {
		if p.Age > 0 {
			ages = appendDistinct(ages, strconv.Itoa(p.Age))
		}
	}
	if len(ages) > 0 {
		if len(ages) > maxSuggestionValues {
			ages = ages[:maxSuggestionValues]
		}
		suggestions = append(suggestions, "narrow by age: "+strings.Join(ages, ", "))
	}

	return suggestions
}

func appendDistinct(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
