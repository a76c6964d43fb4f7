package txlog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stonefinance/stone-sub002/internal/lending"
)

// Store is the short-lived local transaction log, a single SQLite file.
// It is not durable protocol state: everything but in-flight entries is
// rebuilt from chain and indexer reads.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore opens (or creates) the log file. ":memory:" works for tests.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open transaction log: %w", err)
	}
	if err := db.AutoMigrate(&PendingTransaction{}); err != nil {
		return nil, fmt.Errorf("migrate transaction log: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithClock overrides the clock, for deterministic tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create registers a new pending transaction and returns it.
func (s *Store) Create(action lending.Action, amountMicro, denom, marketID string) (PendingTransaction, error) {
	tx := PendingTransaction{
		ID:        uuid.NewString(),
		Action:    action.String(),
		Amount:    amountMicro,
		Denom:     denom,
		MarketID:  marketID,
		Status:    StatusPending,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.db.Create(&tx).Error; err != nil {
		return PendingTransaction{}, err
	}
	return tx, nil
}

func (s *Store) update(id string, fields map[string]interface{}) error {
	fields["updated_at"] = s.now()
	res := s.db.Model(&PendingTransaction{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkCompleted records the broadcast hash and settles the entry.
func (s *Store) MarkCompleted(id, txHash string) error {
	return s.update(id, map[string]interface{}{
		"status":  StatusCompleted,
		"tx_hash": txHash,
		"error":   "",
	})
}

// MarkFailed settles the entry with the rejection text. Failed entries
// never carry a hash.
func (s *Store) MarkFailed(id, errMsg string) error {
	return s.update(id, map[string]interface{}{
		"status":  StatusFailed,
		"tx_hash": "",
		"error":   errMsg,
	})
}

// MarkUnconfirmed records a broadcast whose confirmation timed out. The
// hash (when the wallet returned one before the deadline) lets the
// reconciler settle the entry from indexed history.
func (s *Store) MarkUnconfirmed(id, txHash string) error {
	return s.update(id, map[string]interface{}{
		"status":  StatusUnconfirmed,
		"tx_hash": txHash,
	})
}

// List returns all locally tracked transactions, newest first.
func (s *Store) List() ([]PendingTransaction, error) {
	var txs []PendingTransaction
	err := s.db.Order("created_at DESC").Find(&txs).Error
	return txs, err
}

// Unconfirmed returns entries awaiting resolution against the indexer.
func (s *Store) Unconfirmed() ([]PendingTransaction, error) {
	var txs []PendingTransaction
	err := s.db.Where("status = ?", StatusUnconfirmed).Find(&txs).Error
	return txs, err
}

// ClearSettled deletes completed and failed entries, the user-initiated
// "clear history" operation.
func (s *Store) ClearSettled() error {
	return s.db.Where("status IN ?", []string{StatusCompleted, StatusFailed}).
		Delete(&PendingTransaction{}).Error
}
