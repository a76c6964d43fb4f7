package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stonefinance/stone-sub002/internal/bundle"
	"github.com/stonefinance/stone-sub002/internal/indexer"
	"github.com/stonefinance/stone-sub002/internal/lending"
	"github.com/stonefinance/stone-sub002/internal/observability"
	"github.com/stonefinance/stone-sub002/internal/txlog"
)

// ChainReader is the slice of the chain client the API needs.
type ChainReader interface {
	Markets(ctx context.Context) ([]lending.Market, error)
	Market(ctx context.Context, id string) (lending.Market, error)
	Position(ctx context.Context, address, marketID string) (lending.Position, error)
	Balances(ctx context.Context, address string) (map[string]string, error)
}

// IndexerReader fetches confirmed history.
type IndexerReader interface {
	Transactions(ctx context.Context, address string, limit int) ([]indexer.Transaction, error)
}

// PriceSource serves cached display prices.
type PriceSource interface {
	Prices(denoms ...string) map[string]float64
}

// TxPreparer prepares and broadcasts instruction batches.
type TxPreparer interface {
	Prepare(ctx context.Context, action lending.Action, m lending.Market, amountMicro, borrower string) (bundle.Batch, error)
	Execute(ctx context.Context, batch bundle.Batch) (string, error)
}

// Fauceteer grants test-net tokens. Nil disables the faucet routes.
type Fauceteer interface {
	Grant(ctx context.Context, address, denom string) (string, error)
}

// Server is the HTTP API consumed by the display layer.
type Server struct {
	chain   ChainReader
	idx     IndexerReader
	prices  PriceSource
	bundler TxPreparer
	store   *txlog.Store
	merger  *txlog.Merger
	faucet  Fauceteer
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger
}

type Deps struct {
	Chain   ChainReader
	Indexer IndexerReader
	Prices  PriceSource
	Bundler TxPreparer
	Store   *txlog.Store
	Merger  *txlog.Merger
	Faucet  Fauceteer
	Health  *observability.HealthChecker
	Metrics *observability.Metrics
	Log     zerolog.Logger
}

func New(deps Deps) *Server {
	return &Server{
		chain:   deps.Chain,
		idx:     deps.Indexer,
		prices:  deps.Prices,
		bundler: deps.Bundler,
		store:   deps.Store,
		merger:  deps.Merger,
		faucet:  deps.Faucet,
		health:  deps.Health,
		metrics: deps.Metrics,
		log:     deps.Log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log, s.metrics))

	if s.health != nil {
		r.GET("/healthz", gin.WrapF(s.health.LivenessHandler))
		r.GET("/readyz", gin.WrapF(s.health.ReadinessHandler))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/markets", s.handleMarkets)
		v1.GET("/positions/:address", s.handlePositions)
		v1.GET("/positions/:address/risk/:market", s.handleRisk)
		v1.GET("/balances/:address", s.handleBalances)
		v1.POST("/transactions", s.handleSubmit)
		v1.GET("/transactions/:address", s.handleTimeline)
		v1.DELETE("/transactions", s.handleClear)

		if s.faucet != nil {
			// One grant per request, and a per-IP cap on top of the
			// per-address cooldown.
			v1.POST("/faucet", ipRateLimit(rate.Limit(1), 3), s.handleFaucet)
		}
	}

	return r
}

// Run serves the API until the context is cancelled.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:    listen,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.log.Info().Str("listen", listen).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
