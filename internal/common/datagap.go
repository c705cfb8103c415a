package common

// DataGap describes a record left out of a computation because a required
// field was missing or unreadable. Gaps are logged and counted, never returned
// as errors.
type DataGap struct {
	Database string
	RecordID string
	Reason   string
}

// DataGap logs a skipped record at debug level.
func (l *Logger) DataGap(g DataGap) {
	l.Debug().
		Str("database", g.Database).
		Str("record_id", g.RecordID).
		Str("reason", g.Reason).
		Msg("Data quality gap: record skipped")
}
