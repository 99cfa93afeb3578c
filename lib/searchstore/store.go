package searchstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
	"merinfo-backend/lib/scrapers/merinfo"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store keeps a log of finished searches so past outcomes can be
// listed without hitting the site again.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type Record struct {
	Id      string
	Query   string
	Outcome merinfo.Outcome
	Time    time.Time
}

func (s Store) Save(ctx context.Context, r Record) error {
	outcome, err := json.Marshal(r.Outcome)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO search (id, query, outcome, time) VALUES (?, ?, ?, ?)`,
		r.Id, r.Query, string(outcome), r.Time.Unix(),
	)
	return err
}

// Recent returns the most recently saved searches, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, query, outcome, time FROM search ORDER BY time DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var outcome string
		var unix int64
		err := rows.Scan(&r.Id, &r.Query, &outcome, &unix)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(outcome), &r.Outcome)
		if err != nil {
			return nil, err
		}
		r.Time = time.Unix(unix, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}
