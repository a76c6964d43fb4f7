package txlog

import "time"

// Transaction status lifecycle: pending → completed | failed, with one
// extra state the display treats like pending: a broadcast that timed out
// is unconfirmed, not failed — only a failed *rejection* is guaranteed to
// have left chain state untouched. Unconfirmed entries are resolved
// against the indexer before they are allowed to settle as failed.
const (
	StatusPending     = "pending"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusUnconfirmed = "unconfirmed"
)

// PendingTransaction is a locally originated record, created when the
// user confirms an action and retained until cleared or superseded by
// its indexed counterpart. The id is client-generated; the hash is
// assigned once broadcast.
type PendingTransaction struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"` // micro-unit decimal string
	Denom     string    `json:"denom"`
	MarketID  string    `json:"market_id"`
	Status    string    `gorm:"index" json:"status"`
	TxHash    string    `gorm:"index" json:"tx_hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimelineEntry is one row of the merged local + indexed view.
type TimelineEntry struct {
	Hash      string    `json:"hash,omitempty"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"`
	Denom     string    `json:"denom"`
	MarketID  string    `json:"market_id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Local     bool      `json:"local"`
}
