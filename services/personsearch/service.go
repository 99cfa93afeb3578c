package personsearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"merinfo-backend/lib/scrapers/merinfo"
	"merinfo-backend/lib/searchstore"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("merinfo-backend/services/personsearch")

// Service wraps one scraper client for pipeline callers: it accepts a
// free-text query or already-separated fields, runs the search and
// shapes the outcome for the pipeline. The scraper client serializes
// its own calls, so a Service is safe to share.
type Service struct {
	scraper *merinfo.Client
	store   *searchstore.Store
}

type ServiceOptions struct {
	Scraper *merinfo.Client
	// optional, searches are recorded when set
	Store *searchstore.Store
}

func NewService(opts ServiceOptions) Service {
	return Service{
		scraper: opts.Scraper,
		store:   opts.Store,
	}
}

// ConservativeOptions is the scraper tuning used when this service is
// driven by an unattended pipeline: slower pacing, fewer retries.
func ConservativeOptions() merinfo.Options {
	opts := merinfo.DefaultOptions()
	opts.MinDelay = time.Second * 5
	opts.MaxDelay = time.Second * 10
	opts.MaxRetries = 2
	return opts
}

type Request struct {
	// free text, tokenized when the separated fields are absent
	Text string `json:"text"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
	Street    string `json:"street"`
	Age       int    `json:"age"`
}

type Result struct {
	Id           string            `json:"id"`
	Status       string            `json:"status"`
	Message      string            `json:"message"`
	PersonCount  int               `json:"person_count"`
	Vehicles     []merinfo.Vehicle `json:"vehicles"`
	QualityScore float64           `json:"quality_score"`
	ResponseTime float64           `json:"response_time"`
	Suggestions  []string          `json:"suggestions"`
}

func (s Service) Search(ctx context.Context, req Request) Result {
	ctx, span := tracer.Start(ctx, "service:Search")
	defer span.End()

	q := merinfo.Query{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
		Street:    req.Street,
		Age:       req.Age,
	}
	if req.Text != "" {
		parsed := ParseQuery(req.Text)
		if q.FirstName == "" {
			q.FirstName = parsed.FirstName
		}
		if q.LastName == "" {
			q.LastName = parsed.LastName
		}
		if q.City == "" {
			q.City = parsed.City
		}
	}

	id, err := random.String(8)
	if err != nil {
		// id generation should never fail, but an id-less search
		// is still worth running
		slog.ErrorContext(ctx, "failed to generate search id", "err", err)
	}

	outcome := s.scraper.SearchPerson(ctx, q)

	if s.store != nil {
		err := s.store.Save(ctx, searchstore.Record{
			Id:      id,
			Query:   describeQuery(q),
			Outcome: outcome,
			Time:    time.Now(),
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to record search", "id", id, "err", err)
		}
	}

	status := "partial"
	if outcome.Success {
		status = "success"
	} else if len(outcome.Persons) == 0 {
		status = "error"
	}

	message := outcome.ErrorMessage
	if message == "" {
		message = fmt.Sprintf("found %d persons", len(outcome.Persons))
	}

	return Result{
		Id:           id,
		Status:       status,
		Message:      message,
		PersonCount:  len(outcome.Persons),
		Vehicles:     outcome.Vehicles,
		QualityScore: outcome.QualityScore,
		ResponseTime: outcome.ResponseTime,
		Suggestions:  outcome.Suggestions,
	}
}

func describeQuery(q merinfo.Query) string {
	out := ""
	for _, field := range []string{q.FirstName, q.LastName, q.Street, q.City} {
		if field == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += field
	}
	if q.Age > 0 {
		out += fmt.Sprintf(" (%d)", q.Age)
	}
	return out
}
