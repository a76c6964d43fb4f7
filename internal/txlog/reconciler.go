package txlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/indexer"
	"github.com/stonefinance/stone-sub002/internal/observability"
)

// Merge folds the local ledger into the indexed history: indexed entries
// whose hash a completed local entry already carries are dropped (the
// local record is authoritative for status), the rest are concatenated,
// sorted newest first, and truncated to limit. Pure function of its two
// inputs; a hash appears at most once in the result. Failed entries never
// have a hash and are therefore never deduplicated — they age out when
// the user clears history.
func Merge(local []PendingTransaction, indexed []indexer.Transaction, limit int) []TimelineEntry {
	seen := make(map[string]struct{}, len(local))
	for _, tx := range local {
		if tx.TxHash != "" {
			seen[tx.TxHash] = struct{}{}
		}
	}

	entries := make([]TimelineEntry, 0, len(local)+len(indexed))
	for _, tx := range indexed {
		if _, dup := seen[tx.Hash]; dup {
			continue
		}
		entries = append(entries, TimelineEntry{
			Hash:      tx.Hash,
			Action:    tx.Action,
			Amount:    tx.Amount,
			Denom:     tx.Denom,
			MarketID:  tx.MarketID,
			Status:    StatusCompleted,
			Timestamp: tx.Timestamp,
		})
	}
	for _, tx := range local {
		entries = append(entries, TimelineEntry{
			Hash:      tx.TxHash,
			Action:    tx.Action,
			Amount:    tx.Amount,
			Denom:     tx.Denom,
			MarketID:  tx.MarketID,
			Status:    tx.Status,
			Error:     tx.Error,
			Timestamp: tx.CreatedAt,
			Local:     true,
		})
	}

	// Stable: ties keep insertion order so repeated merges of the same
	// inputs are byte-identical.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Merger memoizes Merge on the content of its two inputs so a render
// path can call it on every tick without churning: unchanged inputs
// return the identical result slice. The memo holds copied identity
// keys, never the caller's slices, so a caller mutating its ledger in
// place still invalidates the memo.
type Merger struct {
	metrics *observability.Metrics

	mu          sync.Mutex
	lastLocal   []localKey
	lastIndexed []string
	lastLimit   int
	lastResult  []TimelineEntry
	valid       bool
}

// localKey is the slice of a local entry that affects merge output.
type localKey struct {
	id     string
	status string
	hash   string
}

func NewMerger(metrics *observability.Metrics) *Merger {
	return &Merger{metrics: metrics}
}

func (m *Merger) Merge(local []PendingTransaction, indexed []indexer.Transaction, limit int) []TimelineEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && limit == m.lastLimit && sameLocal(local, m.lastLocal) && sameIndexed(indexed, m.lastIndexed) {
		if m.metrics != nil {
			m.metrics.TimelineMemoHits.Inc()
		}
		return m.lastResult
	}

	start := time.Now()
	result := Merge(local, indexed, limit)

	if m.metrics != nil {
		m.metrics.TimelineMerges.Inc()
		m.metrics.TimelineMergeDur.Observe(time.Since(start).Seconds())
	}

	m.lastLocal = localKeys(local)
	m.lastIndexed = indexedKeys(indexed)
	m.lastLimit = limit
	m.lastResult = result
	m.valid = true
	return result
}

func localKeys(txs []PendingTransaction) []localKey {
	keys := make([]localKey, len(txs))
	for i, tx := range txs {
		keys[i] = localKey{id: tx.ID, status: tx.Status, hash: tx.TxHash}
	}
	return keys
}

func indexedKeys(txs []indexer.Transaction) []string {
	keys := make([]string, len(txs))
	for i, tx := range txs {
		keys[i] = tx.Hash
	}
	return keys
}

func sameLocal(txs []PendingTransaction, keys []localKey) bool {
	if len(txs) != len(keys) {
		return false
	}
	for i, tx := range txs {
		if tx.ID != keys[i].id || tx.Status != keys[i].status || tx.TxHash != keys[i].hash {
			return false
		}
	}
	return true
}

func sameIndexed(txs []indexer.Transaction, keys []string) bool {
	if len(txs) != len(keys) {
		return false
	}
	for i, tx := range txs {
		if tx.Hash != keys[i] {
			return false
		}
	}
	return true
}

// HistoryLookup is the slice of the indexer client the resolver needs:
// hash lookup for entries that got a hash before the deadline, account
// history for entries that did not.
type HistoryLookup interface {
	HasTransaction(ctx context.Context, hash string) (bool, error)
	Transactions(ctx context.Context, address string, limit int) ([]indexer.Transaction, error)
}

// historyLimit bounds the account-history read per reconcile pass.
const historyLimit = 50

// Resolver settles unconfirmed broadcasts against indexed history. A
// timed-out transaction may in fact have landed; only after the indexer
// has had settleAfter to observe it is the entry marked failed. Entries
// with a hash are looked up directly; hashless entries (the wallet
// never answered) are matched against the account's indexed history by
// content, since the hash was never observed locally.
type Resolver struct {
	store       *Store
	lookup      HistoryLookup
	address     string
	settleAfter time.Duration
	log         zerolog.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewResolver(store *Store, lookup HistoryLookup, address string, settleAfter time.Duration, log zerolog.Logger, metrics *observability.Metrics) *Resolver {
	if settleAfter <= 0 {
		settleAfter = 5 * time.Minute
	}
	return &Resolver{
		store:       store,
		lookup:      lookup,
		address:     address,
		settleAfter: settleAfter,
		log:         log,
		metrics:     metrics,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for deterministic tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// ResolveOnce runs one reconciliation pass. Indexer outages leave the
// entries untouched for the next pass.
func (r *Resolver) ResolveOnce(ctx context.Context) {
	pending, err := r.store.Unconfirmed()
	if err != nil {
		r.log.Error().Err(err).Msg("load unconfirmed transactions")
		return
	}
	if len(pending) == 0 {
		return
	}

	// Hashes already owned by a local entry must not be claimed again
	// by a hashless one during content matching.
	claimed, err := r.claimedHashes()
	if err != nil {
		r.log.Error().Err(err).Msg("load transaction log")
		return
	}

	// Account history is fetched at most once per pass, and only when a
	// hashless entry needs it.
	var (
		history       []indexer.Transaction
		historyLoaded bool
		historyErr    error
	)
	loadHistory := func() ([]indexer.Transaction, error) {
		if !historyLoaded {
			history, historyErr = r.lookup.Transactions(ctx, r.address, historyLimit)
			historyLoaded = true
		}
		return history, historyErr
	}

	for _, tx := range pending {
		if tx.TxHash == "" {
			// The hash was never observed locally, but the broadcast
			// may still have landed. Match the entry against indexed
			// history by content before giving up on it.
			txs, err := loadHistory()
			if err != nil {
				r.log.Warn().Err(err).Msg("reconcile history fetch failed, will retry")
				continue
			}
			if hash, ok := matchByContent(tx, txs, claimed); ok {
				if err := r.store.MarkCompleted(tx.ID, hash); err != nil {
					r.log.Error().Err(err).Str("id", tx.ID).Msg("mark completed")
					continue
				}
				claimed[hash] = struct{}{}
				r.count("completed")
				r.log.Info().Str("txhash", hash).Str("id", tx.ID).Msg("hashless broadcast matched in indexed history")
				continue
			}
			if r.now().Sub(tx.CreatedAt) > r.settleAfter {
				r.settleFailed(tx, "broadcast timed out before a hash was assigned")
			}
			continue
		}

		found, err := r.lookup.HasTransaction(ctx, tx.TxHash)
		if err != nil {
			r.log.Warn().Err(err).Str("txhash", tx.TxHash).Msg("reconcile lookup failed, will retry")
			continue
		}
		if found {
			if err := r.store.MarkCompleted(tx.ID, tx.TxHash); err != nil {
				r.log.Error().Err(err).Str("id", tx.ID).Msg("mark completed")
				continue
			}
			r.count("completed")
			r.log.Info().Str("txhash", tx.TxHash).Msg("timed-out broadcast confirmed by indexer")
			continue
		}
		if r.now().Sub(tx.CreatedAt) > r.settleAfter {
			r.settleFailed(tx, "no confirmation within the reconcile window")
		}
	}
}

// Run resolves on an interval until the context is cancelled.
func (r *Resolver) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ResolveOnce(ctx)
		}
	}
}

// matchSlack tolerates clock skew between the local ledger and the
// indexer when matching hashless entries by content.
const matchSlack = time.Minute

func matchByContent(tx PendingTransaction, history []indexer.Transaction, claimed map[string]struct{}) (string, bool) {
	for _, h := range history {
		if _, taken := claimed[h.Hash]; taken {
			continue
		}
		if h.Action != tx.Action || h.Amount != tx.Amount || h.Denom != tx.Denom || h.MarketID != tx.MarketID {
			continue
		}
		if h.Timestamp.Before(tx.CreatedAt.Add(-matchSlack)) {
			continue
		}
		return h.Hash, true
	}
	return "", false
}

func (r *Resolver) claimedHashes() (map[string]struct{}, error) {
	all, err := r.store.List()
	if err != nil {
		return nil, err
	}
	claimed := make(map[string]struct{}, len(all))
	for _, tx := range all {
		if tx.TxHash != "" {
			claimed[tx.TxHash] = struct{}{}
		}
	}
	return claimed, nil
}

func (r *Resolver) settleFailed(tx PendingTransaction, reason string) {
	if err := r.store.MarkFailed(tx.ID, reason); err != nil {
		r.log.Error().Err(err).Str("id", tx.ID).Msg("mark failed")
		return
	}
	r.count("failed")
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil {
		r.metrics.ReconcileResolutions.WithLabelValues(outcome).Inc()
	}
}
