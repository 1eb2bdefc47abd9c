// Package monitor implements the Position Monitor: for
// each entered trade it polls the price feed at a fixed cadence, drives
// a per-trade state machine (armed → tp1_hit → tp2_hit), and emits an
// exit event back to the scheduler when a take-profit or terminal
// condition fires. The
// monitor never executes trades; it only emits.
package monitor

import (
	"math/big"
	"sync"
	"time"

	safegmx "github.com/purvik6062/safegmx"
)

// PriceFeed is the Price Feed collaborator, narrowed to
// the single-symbol lookup the monitor's tick needs.
type PriceFeed interface {
	GetPrice(symbol string) (*big.Float, error)
}

// DefaultTickPeriod is the default monitor cadence.
const DefaultTickPeriod = 30 * time.Second

// DefaultTrailingRetracementPct is the default.
const DefaultTrailingRetracementPct = 2

type tradeState string

const (
	stateArmed  tradeState = "armed"
	stateTP1Hit tradeState = "tp1_hit"
	stateTP2Hit tradeState = "tp2_hit"
)

type tracked struct {
	tradeId  string
	symbol   string
	side     safegmx.Side
	tp1      *big.Float
	tp2      *big.Float
	stopLoss *big.Float
	deadline time.Time

	state        tradeState
	trailingHigh *big.Float
	trailingLow  *big.Float
}

// Config carries the startup-only policy fields of the
// configuration table that the monitor consults.
type Config struct {
	TickPeriod              time.Duration
	TrailingStopEnabled     bool
	TrailingRetracementPct  int64
}

func (c Config) withDefaults() Config {
	if c.TickPeriod <= 0 {
		c.TickPeriod = DefaultTickPeriod
	}
	if c.TrailingRetracementPct == 0 {
		c.TrailingRetracementPct = DefaultTrailingRetracementPct
	}
	return c
}

// Monitor implements safegmx.Monitor.
type Monitor struct {
	cfg  Config
	feed PriceFeed
	out  chan<- safegmx.MonitorEvent

	mu     sync.Mutex
	trades map[string]*tracked

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New wires a PriceFeed and the scheduler's exit-event channel
// (Orchestrator.ExitEvents()).
func New(cfg Config, feed PriceFeed, out chan<- safegmx.MonitorEvent) *Monitor {
	return &Monitor{
		cfg:    cfg.withDefaults(),
		feed:   feed,
		out:    out,
		trades: make(map[string]*tracked),
		stopCh: make(chan struct{}),
	}
}

// Attach implements safegmx.Monitor, deriving the watched symbol,
// price-level thresholds, and deadline from trade.
func (m *Monitor) Attach(trade *safegmx.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[trade.TradeId] = &tracked{
		tradeId:  trade.TradeId,
		symbol:   monitoredSymbol(trade),
		side:     trade.Side,
		tp1:      trade.TP1,
		tp2:      trade.TP2,
		stopLoss: trade.StopLoss,
		deadline: trade.Deadline,
		state:    stateArmed,
	}
}

// Detach implements safegmx.Monitor.
func (m *Monitor) Detach(tradeId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trades, tradeId)
}

// monitoredSymbol is the non-base side of the trade: what's bought on a
// buy, what's sold on a sell.
func monitoredSymbol(trade *safegmx.Trade) string {
	if trade.Side == safegmx.SideBuy {
		return trade.BuyBinding.Symbol
	}
	return trade.SellBinding.Symbol
}

// Run starts the periodic tick loop. It blocks until Stop is called.
func (m *Monitor) Run() {
	m.wg.Add(1)
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick(time.Now())
		}
	}
}

// Stop halts the tick loop and waits for it to return.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// tick groups all active trades by symbol and fetches each symbol's
// price once.
func (m *Monitor) tick(now time.Time) {
	m.mu.Lock()
	bySymbol := make(map[string][]*tracked)
	for _, t := range m.trades {
		bySymbol[t.symbol] = append(bySymbol[t.symbol], t)
	}
	m.mu.Unlock()

	for symbol, trades := range bySymbol {
		price, err := m.feed.GetPrice(symbol)
		if err != nil {
			continue // skip this tick for this symbol, no state change
		}
		for _, t := range trades {
			m.evaluate(t, price, now)
		}
	}
}

// evaluate applies one trade's tick, emitting at most one exit event in
// precedence order DEADLINE > STOP_LOSS > TRAILING_STOP > TP2 > TP1.
// The armed->tp1_hit->tp2_hit progression already makes
// TP1/TP2/TRAILING_STOP mutually exclusive within a single tick, so
// ordering only matters between DEADLINE/STOP_LOSS and the rest.
func (m *Monitor) evaluate(t *tracked, price *big.Float, now time.Time) {
	m.mu.Lock()
	if _, ok := m.trades[t.tradeId]; !ok {
		m.mu.Unlock()
		return // detached concurrently, e.g. by a terminal scheduler signal
	}

	kind, terminal := m.next(t, price, now)
	if kind == "" {
		m.mu.Unlock()
		return
	}
	if terminal {
		delete(m.trades, t.tradeId)
	}
	m.mu.Unlock()

	m.emit(t.tradeId, kind, price)
}

func (m *Monitor) next(t *tracked, price *big.Float, now time.Time) (safegmx.ExitKind, bool) {
	if !t.deadline.IsZero() && !now.Before(t.deadline) {
		return safegmx.ExitDeadline, true
	}

	if t.side == safegmx.SideBuy {
		return m.nextBuy(t, price)
	}
	return m.nextSell(t, price)
}

func (m *Monitor) nextBuy(t *tracked, price *big.Float) (safegmx.ExitKind, bool) {
	if t.stopLoss != nil && price.Cmp(t.stopLoss) <= 0 {
		return safegmx.ExitStopLoss, true
	}

	switch t.state {
	case stateArmed:
		if t.tp1 != nil && price.Cmp(t.tp1) >= 0 {
			t.state = stateTP1Hit
			return safegmx.ExitTP1, false
		}
	case stateTP1Hit:
		if t.tp2 != nil && price.Cmp(t.tp2) >= 0 {
			t.state = stateTP2Hit
			if m.cfg.TrailingStopEnabled {
				t.trailingHigh = new(big.Float).Set(price)
			}
			return safegmx.ExitTP2, false
		}
	case stateTP2Hit:
		if m.cfg.TrailingStopEnabled {
			if t.trailingHigh == nil || price.Cmp(t.trailingHigh) > 0 {
				t.trailingHigh = new(big.Float).Set(price)
			}
			threshold := retracementFloor(t.trailingHigh, m.cfg.TrailingRetracementPct)
			if price.Cmp(threshold) <= 0 {
				return safegmx.ExitTrailingStop, true
			}
		}
	}
	return "", false
}

func (m *Monitor) nextSell(t *tracked, price *big.Float) (safegmx.ExitKind, bool) {
	if t.stopLoss != nil && price.Cmp(t.stopLoss) >= 0 {
		return safegmx.ExitStopLoss, true
	}

	switch t.state {
	case stateArmed:
		if t.tp1 != nil && price.Cmp(t.tp1) <= 0 {
			t.state = stateTP1Hit
			return safegmx.ExitTP1, false
		}
	case stateTP1Hit:
		if t.tp2 != nil && price.Cmp(t.tp2) <= 0 {
			t.state = stateTP2Hit
			if m.cfg.TrailingStopEnabled {
				t.trailingLow = new(big.Float).Set(price)
			}
			return safegmx.ExitTP2, false
		}
	case stateTP2Hit:
		if m.cfg.TrailingStopEnabled {
			if t.trailingLow == nil || price.Cmp(t.trailingLow) < 0 {
				t.trailingLow = new(big.Float).Set(price)
			}
			threshold := retracementCeiling(t.trailingLow, m.cfg.TrailingRetracementPct)
			if price.Cmp(threshold) >= 0 {
				return safegmx.ExitTrailingStop, true
			}
		}
	}
	return "", false
}

// retracementFloor is high × (1 − pct/100), the buy-side trailing-stop
// trigger level.
func retracementFloor(high *big.Float, pct int64) *big.Float {
	factor := new(big.Float).Sub(big.NewFloat(1), new(big.Float).Quo(big.NewFloat(float64(pct)), big.NewFloat(100)))
	return new(big.Float).Mul(high, factor)
}

// retracementCeiling is low × (1 + pct/100), the sell-side trailing-stop
// trigger level.
func retracementCeiling(low *big.Float, pct int64) *big.Float {
	factor := new(big.Float).Add(big.NewFloat(1), new(big.Float).Quo(big.NewFloat(float64(pct)), big.NewFloat(100)))
	return new(big.Float).Mul(low, factor)
}

func (m *Monitor) emit(tradeId string, kind safegmx.ExitKind, price *big.Float) {
	select {
	case m.out <- safegmx.MonitorEvent{TradeId: tradeId, Kind: kind, Price: price}:
	case <-m.stopCh:
	}
}
