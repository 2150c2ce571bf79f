package syncer

import "time"

// Stats are cumulative counters for one account.
type Stats struct {
	Passes     int64
	Entries    int64
	Deletes    int64
	Inserts    int64
	Updates    int64
	Skipped    int64
	IOErrors   int64
	AuthErrors int64

	Cursor      int64
	LastSuccess time.Time
	LastError   string
}

// PassResult describes one successful pass.
type PassResult struct {
	Account   string
	Pages     int
	Entries   int
	Deletions int
	Upserts   int
	Deleted   int64
	Inserted  int64
	Updated   int64
	Discarded int
	Cursor    int64
	Duration  time.Duration
}
