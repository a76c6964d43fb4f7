package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/amount"
	"github.com/stonefinance/stone-sub002/internal/chain"
	"github.com/stonefinance/stone-sub002/internal/lending"
	"github.com/stonefinance/stone-sub002/internal/observability"
	"github.com/stonefinance/stone-sub002/internal/oracle"
)

// RelevantDenoms returns the denoms whose prices an action touches.
// Supply-side actions price the debt denom, collateral actions the
// collateral denom; borrow, repay, and liquidate evaluate both sides.
func RelevantDenoms(action lending.Action, m lending.Market) []string {
	switch action {
	case lending.ActionSupply, lending.ActionWithdraw:
		return []string{m.DebtDenom}
	case lending.ActionSupplyCollateral, lending.ActionWithdrawCollateral:
		return []string{m.CollateralDenom}
	case lending.ActionBorrow, lending.ActionRepay, lending.ActionLiquidate:
		if m.CollateralDenom == m.DebtDenom {
			return []string{m.DebtDenom}
		}
		return []string{m.CollateralDenom, m.DebtDenom}
	default:
		return nil
	}
}

// ShouldAttemptPriceUpdates reports whether an action's safety depends on
// the price the contract sees. Pure liquidity actions cannot
// under-collateralize a user on a stale price, so they skip the update.
func ShouldAttemptPriceUpdates(action lending.Action) bool {
	switch action {
	case lending.ActionBorrow, lending.ActionWithdrawCollateral, lending.ActionLiquidate:
		return true
	default:
		return false
	}
}

// Batch is an ordered instruction list ready for broadcast: zero or one
// price-update instruction, then the user's instruction.
type Batch struct {
	Action  lending.Action
	Updates []chain.Msg
	UserMsg chain.Msg
}

// Instructions returns the batch in submission order.
func (b Batch) Instructions() []chain.Msg {
	return append(append([]chain.Msg{}, b.Updates...), b.UserMsg)
}

// CapabilityProber answers whether the target chain can execute a
// multi-instruction transaction atomically. Satisfied by *chain.Client.
type CapabilityProber interface {
	SupportsAtomicExec(ctx context.Context) bool
}

// Bundler composes price-update instructions ahead of price-sensitive
// user operations. It is a best-effort freshness optimization, not a
// correctness boundary: the contract itself rejects unsafe operations
// against stale prices.
type Bundler struct {
	oracle  *oracle.Client
	chain   CapabilityProber
	signer  chain.Signer
	log     zerolog.Logger
	metrics *observability.Metrics

	// freshnessBudget is how old a cached quote may be before a
	// transaction-gating operation refreshes it. Tighter than the
	// display window.
	freshnessBudget time.Duration
}

func NewBundler(
	oracleClient *oracle.Client,
	chainClient CapabilityProber,
	signer chain.Signer,
	freshnessBudget time.Duration,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Bundler {
	if freshnessBudget <= 0 {
		freshnessBudget = 10 * time.Second
	}
	return &Bundler{
		oracle:          oracleClient,
		chain:           chainClient,
		signer:          signer,
		log:             log,
		metrics:         metrics,
		freshnessBudget: freshnessBudget,
	}
}

// BuildPriceUpdateMsgs fetches one signed update per denom whose cached
// quote is outside the freshness budget. An empty result is not an error:
// it means no update is needed, or the feed is unreachable and the
// contract is left as the safety backstop. The bundler never forces an
// unnecessary, fee-costing update.
func (b *Bundler) BuildPriceUpdateMsgs(ctx context.Context, denoms []string) []chain.Msg {
	var stale []string
	for _, denom := range denoms {
		if b.oracle.Fresh(denom, b.freshnessBudget) {
			if b.metrics != nil {
				b.metrics.OracleCacheSkips.WithLabelValues(denom).Inc()
			}
			continue
		}
		stale = append(stale, denom)
	}
	if len(stale) == 0 {
		return nil
	}

	quotes := b.oracle.FetchAll(ctx, stale)
	if len(quotes) == 0 {
		b.log.Warn().Strs("denoms", stale).Msg("price feed unreachable, proceeding without updates")
		if b.metrics != nil {
			b.metrics.BundleOracleBypass.Inc()
		}
		return nil
	}

	updates := make([][]byte, 0, len(quotes))
	for _, denom := range stale {
		if q, ok := quotes[denom]; ok {
			updates = append(updates, q.UpdateData)
		}
	}
	return []chain.Msg{chain.NewPriceUpdateMsg(b.signer.Address(), updates)}
}

// Prepare validates the request and builds the instruction batch for one
// user action. InvalidAmount is rejected before any network call.
// borrower is only meaningful for liquidate.
func (b *Bundler) Prepare(ctx context.Context, action lending.Action, m lending.Market, amountMicro, borrower string) (Batch, error) {
	if !amount.Valid(amountMicro) {
		return Batch{}, fmt.Errorf("%w: %q", chain.ErrInvalidAmount, amountMicro)
	}

	sender := b.signer.Address()
	denom := action.Denom(m)

	var userMsg chain.Msg
	switch action {
	case lending.ActionSupply:
		userMsg = chain.NewSupplyMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionWithdraw:
		userMsg = chain.NewWithdrawMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionSupplyCollateral:
		userMsg = chain.NewSupplyCollateralMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionWithdrawCollateral:
		userMsg = chain.NewWithdrawCollateralMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionBorrow:
		userMsg = chain.NewBorrowMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionRepay:
		userMsg = chain.NewRepayMsg(sender, m.ID, denom, amountMicro)
	case lending.ActionLiquidate:
		userMsg = chain.NewLiquidateMsg(sender, m.ID, borrower, denom, amountMicro)
	default:
		return Batch{}, fmt.Errorf("unsupported action %v", action)
	}

	batch := Batch{Action: action, UserMsg: userMsg}
	if ShouldAttemptPriceUpdates(action) {
		batch.Updates = b.BuildPriceUpdateMsgs(ctx, RelevantDenoms(action, m))
	}

	if b.metrics != nil {
		b.metrics.BundlesPrepared.WithLabelValues(action.String()).Inc()
		b.metrics.BundleUpdateMsgs.Observe(float64(len(batch.Updates)))
	}
	return batch, nil
}

// Execute broadcasts the batch. When the chain supports atomic execution
// the whole batch rides in one transaction; otherwise the update goes
// first as its own transaction and only the user transaction's rejection
// is action-relevant. Returns the user transaction's hash.
func (b *Bundler) Execute(ctx context.Context, batch Batch) (string, error) {
	if len(batch.Updates) == 0 {
		return b.signer.SignAndBroadcast(ctx, []chain.Msg{batch.UserMsg})
	}

	if b.chain.SupportsAtomicExec(ctx) {
		return b.signer.SignAndBroadcast(ctx, batch.Instructions())
	}

	// Sequential fallback: a failed price update is logged and skipped —
	// the contract still arbitrates staleness for the user instruction.
	if _, err := b.signer.SignAndBroadcast(ctx, batch.Updates); err != nil {
		b.log.Warn().Err(err).Msg("price update transaction failed, continuing with user instruction")
	}
	return b.signer.SignAndBroadcast(ctx, []chain.Msg{batch.UserMsg})
}
