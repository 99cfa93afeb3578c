package merinfo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"merinfo-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func resultCard(name, profilePath, street, postal, nationalID string) string {
	return fmt.Sprintf(`
<div class="mi-text-sm mi-bg-white mi-shadow-dark-blue-20 mi-p-0 mi-mb-6 md:mi-rounded-lg">
	<a class="mi-text-primary hover:mi-underline" href="%s">%s</a>
	<address class="mi-not-italic mi-flex mi-flex-col">
		<span>%s</span>
		<span>%s</span>
	</address>
	<span>%s</span>
</div>`, profilePath, name, street, postal, nationalID)
}

func resultPage(cards ...string) string {
	body := ""
	for _, card := range cards {
		body += card
	}
	return "<html><body>" + body + "</body></html>"
}

func TestSearchPersonSingleMatch(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	var searchHits, profileHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searchHits.Add(1)
		fmt.Fprint(w, resultPage(resultCard(
			"Anna Svensson", "/person/anna-svensson/123",
			"Storgatan 12", "114 32 Stockholm", "19850115-1234",
		)))
	})
	mux.HandleFunc("/person/anna-svensson/123", func(w http.ResponseWriter, r *http.Request) {
		profileHits.Add(1)
		fmt.Fprint(w, `<html><body><div class="vue-vehicle-table"><table><tbody>
<tr><td><span>Volvo V70</span> <span>(2015)</span></td><td>ABC123</td><td>Anna Svensson</td><td>2015</td></tr>
</tbody></table></div></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	require.True(t, outcome.Success)
	require.Equal(t, "Anna+Svensson+Stockholm", outcome.SearchStrategy)
	require.Len(t, outcome.Persons, 1)
	require.Equal(t, "Anna Svensson", outcome.Persons[0].Name)
	require.Equal(t, 40, outcome.Persons[0].Age)
	require.Len(t, outcome.Vehicles, 1)
	require.Equal(t, "Volvo V70", outcome.Vehicles[0].MakeModel)
	require.Equal(t, VehicleCar, outcome.Vehicles[0].Type)
	require.InDelta(t, 1.0, outcome.QualityScore, 1e-9)
	require.Empty(t, outcome.ErrorMessage)

	// the winning strategy stops the search after one page each
	require.EqualValues(t, 1, searchHits.Load())
	require.EqualValues(t, 1, profileHits.Load())

	// a repeat search is served entirely from cache
	again := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})
	require.True(t, again.Success)
	require.EqualValues(t, 1, searchHits.Load())
	require.EqualValues(t, 1, profileHits.Load())
}

func TestSearchPersonDisambiguation(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	var searchHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searchHits.Add(1)
		fmt.Fprint(w, resultPage(
			resultCard(
				"Anna Svensson", "/person/anna-svensson/1",
				"Storgatan 12", "114 32 Stockholm", "19850115-1234",
			),
			resultCard(
				"Anna Svensson", "/person/anna-svensson/2",
				"Kungsgatan 3", "111 43 Stockholm", "19900215-5678",
			),
		))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	require.False(t, outcome.Success)
	require.Len(t, outcome.Persons, 2)
	require.Empty(t, outcome.Vehicles)
	require.Equal(t, "multiple results (2), narrow the search", outcome.ErrorMessage)
	require.Equal(t, "Anna+Svensson+Stockholm", outcome.SearchStrategy)

	require.Len(t, outcome.Suggestions, 2)
	require.Contains(t, outcome.Suggestions[0], "narrow by street")
	require.Contains(t, outcome.Suggestions[0], "Storgatan")
	require.Contains(t, outcome.Suggestions[0], "Kungsgatan")
	require.Contains(t, outcome.Suggestions[1], "narrow by age")
	require.Contains(t, outcome.Suggestions[1], "40")
	require.Contains(t, outcome.Suggestions[1], "35")

	// all three applicable strategies ran before settling on the best
	require.EqualValues(t, 3, searchHits.Load())
}

func TestSearchPersonValidation(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{Street: "storgatan", Age: 40})

	require.False(t, outcome.Success)
	require.Equal(t, "at least one of first name, last name or city is required", outcome.ErrorMessage)
	require.NotNil(t, outcome.Persons)
	require.Empty(t, outcome.Persons)
	require.EqualValues(t, 0, hits.Load())
}

func TestSearchPersonNoResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Inga träffar</p></body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	require.False(t, outcome.Success)
	require.Equal(t, "no results found", outcome.ErrorMessage)
	require.Empty(t, outcome.Persons)

	stats := client.Stats()
	require.EqualValues(t, 3, stats.Requests)
	require.Equal(t, 0, stats.Errors)
	require.Equal(t, 3, stats.CacheSize)
	require.InDelta(t, 100.0, stats.SuccessRate, 1e-9)
}

func TestSearchPersonTooManyResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	cards := make([]string, 4)
	for i := range cards {
		cards[i] = resultCard(
			"Anna Svensson", fmt.Sprintf("/person/anna-svensson/%d", i),
			"Storgatan 12", "114 32 Stockholm", "19850115-1234",
		)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultPage(cards...))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	// broad pages never become a fallback outcome
	require.False(t, outcome.Success)
	require.Equal(t, "no results found", outcome.ErrorMessage)
	require.Empty(t, outcome.Persons)
	require.Empty(t, outcome.Suggestions)
}

func TestSearchPersonRetriesTransientFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	var searchHits atomic.Int64
	var userAgents []string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		userAgents = append(userAgents, r.Header.Get("User-Agent"))
		if searchHits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, resultPage(resultCard(
			"Anna Svensson", "/person/anna-svensson/123",
			"Storgatan 12", "114 32 Stockholm", "19850115-1234",
		)))
	})
	mux.HandleFunc("/person/anna-svensson/123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="vue-vehicle-table"><table><tbody>
<tr><td><span>Volvo V70</span> <span>(2015)</span></td><td>ABC123</td><td>Anna Svensson</td><td>2015</td></tr>
</tbody></table></div></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.opts.MaxRetries = 1
	client.opts.RotateUserAgent = true

	var backoffs []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)
		return nil
	}

	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	require.True(t, outcome.Success)
	require.Len(t, outcome.Persons, 1)
	require.EqualValues(t, 2, searchHits.Load())

	// first retry backs off for one second plus one to three of jitter
	require.Len(t, backoffs, 1)
	require.GreaterOrEqual(t, backoffs[0], time.Second*2)
	require.Less(t, backoffs[0], time.Second*4)

	// a rotated identity still sends a browser user agent
	require.Len(t, userAgents, 2)
	require.NotEmpty(t, userAgents[0])
	require.NotEmpty(t, userAgents[1])

	// the error counter is unwound by the eventual success
	stats := client.Stats()
	require.Equal(t, 0, stats.Errors)
}

func TestSearchPersonServerErrors(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/merinfo")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SearchPerson(context.Background(), Query{
		FirstName: "anna",
		LastName:  "svensson",
		City:      "stockholm",
	})

	require.False(t, outcome.Success)
	require.Equal(t, "no results found", outcome.ErrorMessage)

	stats := client.Stats()
	require.EqualValues(t, 3, stats.Requests)
	require.Equal(t, 3, stats.Errors)
	require.InDelta(t, 0.0, stats.SuccessRate, 1e-9)
}

func TestSearchURLEncoding(t *testing.T) {
	client := newTestClient(t, "https://www.merinfo.se")
	require.Equal(
		t,
		"https://www.merinfo.se/search?q=Anna%2BSvensson%2BStockholm",
		client.searchURL("Anna+Svensson+Stockholm"),
	)
}

func TestQualityScore(t *testing.T) {
	require.InDelta(t, 0.0, QualityScore(nil, nil), 1e-9)

	bare := []Person{{Name: "Anna Svensson"}}
	require.InDelta(t, 0.8, QualityScore(bare, nil), 1e-9)

	two := []Person{{Name: "Anna Svensson"}, {Name: "Anna Svensson"}}
	require.InDelta(t, 0.6, QualityScore(two, nil), 1e-9)

	complete := []Person{{
		Name:    "Anna Svensson",
		Address: "Storgatan 12, 114 32 Stockholm",
		Age:     40,
		Gender:  GenderFemale,
	}}
	vehicles := []Vehicle{{MakeModel: "Volvo V70"}}
	require.InDelta(t, 1.0, QualityScore(complete, vehicles), 1e-9)
}

func TestBuildSuggestions(t *testing.T) {
	var persons []Person
	for i := 0; i < 8; i++ {
		persons = append(persons, Person{
			Street: fmt.Sprintf("Gata %c", rune('A'+i)),
			Age:    30 + i,
		})
	}

	suggestions := buildSuggestions(persons)
	require.Len(t, suggestions, 2)
	require.Equal(t, "narrow by street: Gata A, Gata B, Gata C, Gata D, Gata E", suggestions[0])
	require.Equal(t, "narrow by age: 30, 31, 32, 33, 34", suggestions[1])

	require.Empty(t, buildSuggestions(persons[:1]))
	require.Empty(t, buildSuggestions(nil))
}
