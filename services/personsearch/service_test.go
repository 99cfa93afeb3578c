package personsearch

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"merinfo-backend/lib/scrapers/merinfo"
	"merinfo-backend/lib/searchstore"
	"merinfo-backend/lib/telemetry"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestService(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/personsearch")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="mi-text-sm mi-bg-white mi-shadow-dark-blue-20 mi-p-0 mi-mb-6 md:mi-rounded-lg">
	<a class="mi-text-primary hover:mi-underline" href="/person/anna-svensson/123">Anna Svensson</a>
	<address class="mi-not-italic mi-flex mi-flex-col">
		<span>Storgatan 12</span>
		<span>114 32 Stockholm</span>
	</address>
	<span>19850115-1234</span>
</div>
</body></html>`)
	})
	mux.HandleFunc("/person/anna-svensson/123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="vue-vehicle-table"><table><tbody>
<tr><td><span>Volvo V70</span> <span>(2015)</span></td><td>ABC123</td><td>Anna Svensson</td><td>2015</td></tr>
</tbody></table></div></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	scraper, err := merinfo.NewClient(merinfo.Options{
		BaseURL:         server.URL,
		MinDelay:        time.Millisecond,
		MaxDelay:        time.Millisecond * 2,
		RotateUserAgent: false,
		ReferenceYear:   2025,
	})
	if err != nil {
		t.Fatal(err)
	}

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sqlite.Exec(searchstore.Schema)
	if err != nil {
		t.Fatal(err)
	}
	store := searchstore.NewStore(sqlite)

	service := NewService(ServiceOptions{
		Scraper: scraper,
		Store:   &store,
	})

	ctx, cancelCtx := context.WithTimeout(context.Background(), time.Second*30)
	defer cancelCtx()

	result := service.Search(ctx, Request{Text: "anna svensson stockholm"})

	require.Equal(t, "success", result.Status)
	require.NotEmpty(t, result.Id)
	require.Equal(t, "found 1 persons", result.Message)
	require.Equal(t, 1, result.PersonCount)
	require.Len(t, result.Vehicles, 1)
	require.Equal(t, "Volvo V70", result.Vehicles[0].MakeModel)
	require.InDelta(t, 1.0, result.QualityScore, 1e-9)

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, records, 1)
	require.Equal(t, result.Id, records[0].Id)
	require.Equal(t, "anna svensson stockholm", records[0].Query)
	require.True(t, records[0].Outcome.Success)
}

func TestServiceValidationError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/personsearch")
	defer cleanup()

	scraper, err := merinfo.NewClient(merinfo.Options{
		BaseURL:  "http://127.0.0.1:1",
		MinDelay: time.Millisecond,
		MaxDelay: time.Millisecond * 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	service := NewService(ServiceOptions{Scraper: scraper})

	result := service.Search(context.Background(), Request{Text: "vem äger bilen"})
	require.Equal(t, "error", result.Status)
	require.Equal(t, 0, result.PersonCount)
	require.NotEmpty(t, result.Message)
}

func TestConservativeOptions(t *testing.T) {
	opts := ConservativeOptions()
	require.Equal(t, time.Second*5, opts.MinDelay)
	require.Equal(t, time.Second*10, opts.MaxDelay)
	require.Equal(t, 2, opts.MaxRetries)
}
