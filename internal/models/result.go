package models

import "time"

// RunStats counts what happened to records during one run.
type RunStats struct {
	Fetched      int `json:"fetched"`
	Duplicates   int `json:"duplicates"`
	Stale        int `json:"stale"`
	Malformed    int `json:"malformed"`
	Unique       int `json:"unique"`
	Relevant     int `json:"relevant"`
	Unclassified int `json:"unclassified"`
	Drafted      int `json:"drafted"`
}

// RunResult is the output of one search-filter-classify cycle.
// Posts are in the order they were first encountered during aggregation.
type RunResult struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Cutoff    time.Time `json:"cutoff"`
	Keywords  []string  `json:"keywords"`
	Threshold float64   `json:"threshold"`
	Stats     RunStats  `json:"stats"`
	Posts     []Post    `json:"posts"`
	// QueryTime is the wall-clock duration of the run in milliseconds.
	QueryTime int64 `json:"query_time_ms"`
}
