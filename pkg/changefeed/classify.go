package changefeed

// Disposition is what a pass does with an entry.
type Disposition int

const (
	DispositionDiscard Disposition = iota
	DispositionDelete
	DispositionUpsert
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionDelete:
		return "delete"
	case DispositionUpsert:
		return "upsert"
	default:
		return "discard"
	}
}

// Dispose classifies a single entry. Checks apply in order: tombstones are
// deletions, folders and files outside app storage are discarded, anything
// else is an upsert.
func Dispose(e Entry) Disposition {
	if e.Deleted {
		return DispositionDelete
	}
	if e.File == nil {
		return DispositionDiscard
	}
	if e.File.MimeType == FolderMimeType {
		return DispositionDiscard
	}
	if !e.File.AppScoped {
		return DispositionDiscard
	}
	return DispositionUpsert
}

// Plan is the set of writes a pass applies.
type Plan struct {
	// Deletions are remote file ids whose recipes are removed.
	Deletions []string

	// Upserts are entries whose recipes are created or updated.
	Upserts []Entry

	// Discarded counts folders and files outside app storage.
	Discarded int
}

// Classify builds a plan from entries in feed order. When a file appears
// more than once, its last entry decides whether it is deleted or upserted.
func Classify(entries []Entry) Plan {
	type decision struct {
		disposition Disposition
		entry       Entry
	}

	var (
		plan      Plan
		order     []string
		decisions = make(map[string]decision)
	)

	for _, e := range entries {
		d := Dispose(e)
		if d == DispositionDiscard {
			plan.Discarded++
			continue
		}
		if _, seen := decisions[e.FileID]; !seen {
			order = append(order, e.FileID)
		}
		decisions[e.FileID] = decision{disposition: d, entry: e}
	}

	for _, id := range order {
		d := decisions[id]
		switch d.disposition {
		case DispositionDelete:
			plan.Deletions = append(plan.Deletions, id)
		case DispositionUpsert:
			plan.Upserts = append(plan.Upserts, d.entry)
		}
	}
	return plan
}
