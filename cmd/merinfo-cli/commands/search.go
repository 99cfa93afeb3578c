package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
	"merinfo-backend/lib/configutil"
	"merinfo-backend/lib/scrapers/merinfo"
	"merinfo-backend/lib/searchstore"
	"merinfo-backend/lib/serviceutil"
	"merinfo-backend/lib/sqliteutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

// Config tunes the scraper, read from merinfo.json5 when present.
type Config struct {
	BaseUrl         string  `json:"base_url"`
	MinDelaySeconds float64 `json:"min_delay_seconds"`
	MaxDelaySeconds float64 `json:"max_delay_seconds"`
	MaxRetries      int     `json:"max_retries"`
	TimeoutSeconds  float64 `json:"timeout_seconds"`
	ReferenceYear   int     `json:"reference_year"`
}

func (c Config) apply(opts merinfo.Options) merinfo.Options {
	if c.BaseUrl != "" {
		opts.BaseURL = c.BaseUrl
	}
	if c.MinDelaySeconds > 0 {
		opts.MinDelay = time.Duration(c.MinDelaySeconds * float64(time.Second))
	}
	if c.MaxDelaySeconds > 0 {
		opts.MaxDelay = time.Duration(c.MaxDelaySeconds * float64(time.Second))
	}
	if c.MaxRetries > 0 {
		opts.MaxRetries = c.MaxRetries
	}
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds * float64(time.Second))
	}
	if c.ReferenceYear > 0 {
		opts.ReferenceYear = c.ReferenceYear
	}
	return opts
}

var (
	firstName *string
	lastName  *string
	city      *string
	street    *string
	age       *int
	output    *string
	historyDb *string
)

func init() {
	firstName = searchCmd.Flags().StringP("first", "f", "", "First name to search for.")
	lastName = searchCmd.Flags().StringP("last", "e", "", "Last name to search for.")
	city = searchCmd.Flags().StringP("city", "c", "", "City to search in.")
	street = searchCmd.Flags().StringP("street", "g", "", "Street for a more specific search.")
	age = searchCmd.Flags().IntP("age", "a", 0, "Age for a more specific search.")
	output = searchCmd.Flags().String("output", "", "Write the outcome as JSON to this file.")
	historyDb = searchCmd.Flags().String("db", "", "Record the search in this history database.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [--first <name>] [--last <name>] [--city <city>]",
	Short: "Searches for a person and, on a single match, their registered vehicles.",
	Run: func(cmd *cobra.Command, args []string) {
		if *firstName == "" && *lastName == "" && *city == "" {
			fmt.Fprintln(os.Stderr, "at least one of --first, --last or --city is required")
			cmd.Usage()
			os.Exit(1)
		}

		cfg, err := configutil.ReadOptional[Config]("merinfo.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		client, err := merinfo.NewClient(cfg.apply(merinfo.DefaultOptions()))
		if err != nil {
			serviceutil.Fatal("failed to initialize scraper", err)
		}

		outcome := client.SearchPerson(cmd.Context(), merinfo.Query{
			FirstName: *firstName,
			LastName:  *lastName,
			City:      *city,
			Street:    *street,
			Age:       *age,
		})

		printOutcome(outcome)

		if *output != "" {
			serialized, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				serviceutil.Fatal("failed to serialize outcome", err)
			}
			err = os.WriteFile(*output, serialized, 0o644)
			if err != nil {
				serviceutil.Fatal("failed to write outcome", err)
			}
			fmt.Printf("outcome written to %s\n", *output)
		}

		if *historyDb != "" {
			recordSearch(cmd, outcome)
		}
	},
}

func recordSearch(cmd *cobra.Command, outcome merinfo.Outcome) {
	db, err := sqliteutil.OpenDB(searchstore.Schema, *historyDb)
	if err != nil {
		serviceutil.Fatal("failed to open history db", err)
	}
	defer db.Close()

	id, err := random.String(8)
	if err != nil {
		serviceutil.Fatal("failed to generate search id", err)
	}

	store := searchstore.NewStore(db)
	err = store.Save(cmd.Context(), searchstore.Record{
		Id:      id,
		Query:   fmt.Sprintf("%s %s %s", *firstName, *lastName, *city),
		Outcome: outcome,
		Time:    time.Now(),
	})
	if err != nil {
		serviceutil.Fatal("failed to record search", err)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printOutcome(outcome merinfo.Outcome) {
	status := "no match"
	if outcome.Success {
		status = "success"
	}
	fmt.Printf(
		"status: %s   quality: %.2f   elapsed: %.2fs\n",
		status, outcome.QualityScore, outcome.ResponseTime,
	)
	if outcome.ErrorMessage != "" {
		fmt.Printf("message: %s\n", outcome.ErrorMessage)
	}

	if len(outcome.Persons) > 0 {
		t := newTable()
		t.AppendHeader(table.Row{"Name", "Age", "Gender", "Address", "National id", "Companies"})
		for _, p := range outcome.Persons {
			ageText := ""
			if p.Age > 0 {
				ageText = fmt.Sprint(p.Age)
			}
			companies := ""
			if p.HasCompanyLinks {
				companies = "yes"
			}
			t.AppendRow(table.Row{p.Name, ageText, p.Gender, p.Address, p.NationalID, companies})
		}
		t.Render()
	}

	if len(outcome.Vehicles) > 0 {
		t := newTable()
		t.AppendHeader(table.Row{"Make/model", "Year", "Type", "Owner"})
		for _, v := range outcome.Vehicles {
			t.AppendRow(table.Row{v.MakeModel, v.Year, v.Type, v.Owner})
		}
		t.Render()
	}

	for _, suggestion := range outcome.Suggestions {
		fmt.Printf("- %s\n", suggestion)
	}
}
