package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stonefinance/stone-sub002/internal/chain"
	"github.com/stonefinance/stone-sub002/internal/faucet"
	"github.com/stonefinance/stone-sub002/internal/indexer"
	"github.com/stonefinance/stone-sub002/internal/lending"
	"github.com/stonefinance/stone-sub002/internal/risk"
	"github.com/stonefinance/stone-sub002/internal/txlog"
)

func (s *Server) handleMarkets(c *gin.Context) {
	markets, err := s.chain.Markets(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	respondOK(c, markets)
}

// positionView pairs a position with its computed risk figures.
type positionView struct {
	Position lending.Position `json:"position"`
	Risk     risk.Snapshot    `json:"risk"`
}

func (s *Server) handlePositions(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	markets, err := s.chain.Markets(ctx)
	if err != nil {
		respondError(c, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}

	views := make([]positionView, 0, len(markets))
	for _, m := range markets {
		pos, err := s.chain.Position(ctx, address, m.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("market", m.ID).Msg("position read failed")
			continue
		}
		views = append(views, positionView{
			Position: pos,
			Risk:     s.computeRisk(pos, m),
		})
	}
	respondOK(c, views)
}

func (s *Server) handleRisk(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")
	marketID := c.Param("market")

	m, err := s.chain.Market(ctx, marketID)
	if err != nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "market not found")
		return
	}
	pos, err := s.chain.Position(ctx, address, m.ID)
	if err != nil {
		respondError(c, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	respondOK(c, s.computeRisk(pos, m))
}

// computeRisk reads prices from the cache and derives the snapshot.
// Missing prices flow through as Unknown figures, never as zeros.
func (s *Server) computeRisk(pos lending.Position, m lending.Market) risk.Snapshot {
	prices := risk.PriceSet(s.prices.Prices(m.CollateralDenom, m.DebtDenom))
	snap := risk.Compute(pos, m, prices)

	if s.metrics != nil {
		s.metrics.RiskSnapshots.WithLabelValues(snap.StatusName).Inc()
		if len(prices) < 2 && m.CollateralDenom != m.DebtDenom {
			s.metrics.RiskUnknownPrices.Inc()
		}
	}
	return snap
}

func (s *Server) handleBalances(c *gin.Context) {
	balances, err := s.chain.Balances(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	respondOK(c, balances)
}

type submitRequest struct {
	Action   string `json:"action" binding:"required"`
	MarketID string `json:"market_id" binding:"required"`
	Amount   string `json:"amount" binding:"required"` // micro-unit decimal string
	Borrower string `json:"borrower"`                  // liquidate only
}

func (s *Server) handleSubmit(c *gin.Context) {
	ctx := c.Request.Context()

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	action, err := lending.ParseAction(req.Action)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	m, err := s.chain.Market(ctx, req.MarketID)
	if err != nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "market not found")
		return
	}

	batch, err := s.bundler.Prepare(ctx, action, m, req.Amount, req.Borrower)
	if err != nil {
		if errors.Is(err, chain.ErrInvalidAmount) {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidAmount, err.Error())
			return
		}
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	entry, err := s.store.Create(action, req.Amount, action.Denom(m), m.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	start := time.Now()
	hash, err := s.bundler.Execute(ctx, batch)
	s.observeBroadcast(action, err, time.Since(start))

	switch {
	case err == nil:
		if err := s.store.MarkCompleted(entry.ID, hash); err != nil {
			s.log.Error().Err(err).Str("id", entry.ID).Msg("mark completed")
		}
		entry.Status = txlog.StatusCompleted
		entry.TxHash = hash
		respondCreated(c, entry)

	case errors.Is(err, chain.ErrBroadcastTimeout):
		// Outcome unknown: the reconciler settles this entry against
		// the indexer, it is not failed yet.
		if err := s.store.MarkUnconfirmed(entry.ID, ""); err != nil {
			s.log.Error().Err(err).Str("id", entry.ID).Msg("mark unconfirmed")
		}
		entry.Status = txlog.StatusUnconfirmed
		c.JSON(http.StatusAccepted, Response{Success: true, Data: entry})

	default:
		var rejection *chain.BroadcastError
		code := ErrCodeInternalError
		status := http.StatusBadGateway
		if errors.As(err, &rejection) {
			code = ErrCodeBroadcastRejected
			status = http.StatusUnprocessableEntity
		}
		if markErr := s.store.MarkFailed(entry.ID, err.Error()); markErr != nil {
			s.log.Error().Err(markErr).Str("id", entry.ID).Msg("mark failed")
		}
		respondError(c, status, code, err.Error())
	}
}

func (s *Server) observeBroadcast(action lending.Action, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "completed"
	switch {
	case errors.Is(err, chain.ErrBroadcastTimeout):
		outcome = "timeout"
		s.metrics.BroadcastTimeouts.Inc()
	case err != nil:
		outcome = "rejected"
	}
	s.metrics.Broadcasts.WithLabelValues(action.String(), outcome).Inc()
	s.metrics.BroadcastDur.WithLabelValues(action.String()).Observe(elapsed.Seconds())
}

func (s *Server) handleTimeline(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	local, err := s.store.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	indexed, err := s.idx.Transactions(ctx, address, limit)
	if err != nil {
		// Degraded, not fatal: serve the local log alone.
		s.log.Warn().Err(err).Msg("indexer unavailable, serving local timeline")
		if s.metrics != nil && errors.Is(err, indexer.ErrUnavailable) {
			s.metrics.IndexerDegraded.Inc()
		}
		indexed = nil
	}

	respondOK(c, s.merger.Merge(local, indexed, limit))
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.store.ClearSettled(); err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondOK(c, gin.H{"cleared": true})
}

type faucetRequest struct {
	Address string `json:"address" binding:"required"`
	Denom   string `json:"denom" binding:"required"`
}

func (s *Server) handleFaucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	hash, err := s.faucet.Grant(c.Request.Context(), req.Address, req.Denom)
	if err != nil {
		var cooldown *faucet.ErrCooldown
		if errors.As(err, &cooldown) {
			respondError(c, http.StatusTooManyRequests, ErrCodeCooldownActive, err.Error())
			return
		}
		respondError(c, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	respondCreated(c, gin.H{"txhash": hash})
}
