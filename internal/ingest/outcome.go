package ingest

// Outcome reports what one record's ingestion did to the store.
type Outcome int

const (
	// OutcomeUnknown means ingestion failed before the record's fate was
	// decided.
	OutcomeUnknown Outcome = iota

	// OutcomeInserted means this call wrote the record's rows.
	OutcomeInserted

	// OutcomeAlreadyPresent means a posts row with the record's id was
	// already stored and nothing was written.
	OutcomeAlreadyPresent
)

// String implements fmt.Stringer; the values double as metric label values.
func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}
