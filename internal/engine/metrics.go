// internal/engine/metrics.go
package engine

import (
	"context"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics is the Prometheus instrumentation of one engine. Each engine owns
// its registry so several engines (tests, the TUI and a CLI call) never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	block      prometheus.Gauge
	supply     *prometheus.GaugeVec
	reserve    prometheus.Gauge
	staked     *prometheus.GaugeVec
	liquidity  *prometheus.GaugeVec
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenfarm_operations_total",
				Help: "Engine operations by name and outcome",
			},
			[]string{"op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenfarm_operation_duration_seconds",
				Help:    "Time spent executing engine operations",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
			},
			[]string{"op"},
		),
		block: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tokenfarm_block_height",
			Help: "Current block height",
		}),
		supply: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenfarm_token_supply",
				Help: "Reward token supply in base units",
			},
			[]string{"kind"},
		),
		reserve: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tokenfarm_reward_reserve",
			Help: "Minted rewards not yet paid out, in base units",
		}),
		staked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenfarm_pool_staked",
				Help: "Staked supply per pool in base units",
			},
			[]string{"pid"},
		),
		liquidity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenfarm_pair_reserve",
				Help: "Pair reserves in base units",
			},
			[]string{"asset"},
		),
	}
	m.registry.MustRegister(m.operations, m.duration, m.block, m.supply, m.reserve, m.staked, m.liquidity)
	return m
}

// Registry exposes the collectors, e.g. to promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(ctx context.Context, op string, d time.Duration, err error) {
	status := "success"
	switch {
	case ctx.Err() != nil:
		status = "cancelled"
	case err != nil:
		status = "failed"
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// observeState refreshes the gauges. Called with the engine lock held.
func (m *Metrics) observeState(e *Engine) {
	m.block.Set(float64(e.host.BlockNumber()))
	m.supply.WithLabelValues("total").Set(toFloat(e.token.TotalSupply()))
	m.supply.WithLabelValues("circulating").Set(toFloat(e.token.CirculatingSupply()))
	m.supply.WithLabelValues("mintable").Set(toFloat(e.token.MintableSupply()))
	m.reserve.Set(toFloat(e.farm.RewardReserve()))
	for pid := 0; pid < e.farm.PoolLength(); pid++ {
		info, err := e.farm.PoolInfo(pid)
		if err != nil {
			continue
		}
		m.staked.WithLabelValues(strconv.Itoa(pid)).Set(toFloat(info.StakedSupply))
	}
	tokens, base := e.pair.Reserves()
	m.liquidity.WithLabelValues("token").Set(toFloat(tokens))
	m.liquidity.WithLabelValues("base").Set(toFloat(base))
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}
