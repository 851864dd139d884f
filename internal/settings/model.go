package settings

import "time"

// JournalMapping links a (feature, name) pair to a chart of account. Posting
// aborts when a required mapping is absent.
type JournalMapping struct {
	Feature          string
	Name             string
	ChartOfAccountID int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
