package searchstore

const Schema = `
CREATE TABLE IF NOT EXISTS search (
    id      TEXT PRIMARY KEY,
    query   TEXT NOT NULL,
    outcome TEXT NOT NULL,
    time    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS search_time_idx ON search (time);
`
