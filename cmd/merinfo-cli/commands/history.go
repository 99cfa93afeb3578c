package commands

import (
	"time"
	"merinfo-backend/lib/searchstore"
	"merinfo-backend/lib/serviceutil"
	"merinfo-backend/lib/sqliteutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyPath  *string
	historyLimit *int
)

func init() {
	historyPath = historyCmd.Flags().String("db", "history.db", "The history database to read.")
	historyLimit = historyCmd.Flags().Int("limit", 20, "Maximum number of searches to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path>] [--limit <n>]",
	Short: "Lists recently recorded searches.",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := sqliteutil.OpenDB(searchstore.Schema, *historyPath)
		if err != nil {
			serviceutil.Fatal("failed to open history db", err)
		}
		defer db.Close()

		store := searchstore.NewStore(db)
		records, err := store.Recent(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to list searches", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Time", "Query", "Success", "Persons", "Quality"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.Id,
				r.Time.Format(time.DateTime),
				r.Query,
				r.Outcome.Success,
				len(r.Outcome.Persons),
				r.Outcome.QualityScore,
			})
		}
		t.Render()
	},
}
