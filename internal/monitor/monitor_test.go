package monitor

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	safegmx "github.com/purvik6062/safegmx"
)

type fakeFeed struct {
	prices map[string]*big.Float
	err    error
}

func (f fakeFeed) GetPrice(symbol string) (*big.Float, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices[symbol], nil
}

func buyTrade() *safegmx.Trade {
	return &safegmx.Trade{
		TradeId:     "t1",
		Side:        safegmx.SideBuy,
		BuyBinding:  safegmx.TokenBinding{Symbol: "FOO"},
		SellBinding: safegmx.TokenBinding{Symbol: "USDC"},
		TP1:         big.NewFloat(110),
		TP2:         big.NewFloat(120),
		StopLoss:    big.NewFloat(90),
	}
}

func sellTrade() *safegmx.Trade {
	return &safegmx.Trade{
		TradeId:     "t2",
		Side:        safegmx.SideSell,
		BuyBinding:  safegmx.TokenBinding{Symbol: "USDC"},
		SellBinding: safegmx.TokenBinding{Symbol: "FOO"},
		TP1:         big.NewFloat(90),
		TP2:         big.NewFloat(80),
		StopLoss:    big.NewFloat(110),
	}
}

func TestAttach_DerivesSymbolFromSide(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{}, out)

	m.Attach(buyTrade())
	m.Attach(sellTrade())

	assert.Equal(t, "FOO", m.trades["t1"].symbol)
	assert.Equal(t, "FOO", m.trades["t2"].symbol)
}

func TestEvaluate_BuySide_TP1ThenTP2ThenTrailingStop(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 4)
	m := New(Config{TrailingStopEnabled: true, TrailingRetracementPct: 2}, fakeFeed{}, out)
	m.Attach(buyTrade())

	now := time.Now()

	m.evaluate(m.trades["t1"], big.NewFloat(111), now)
	ev := <-out
	assert.Equal(t, safegmx.ExitTP1, ev.Kind)
	assert.Equal(t, stateTP1Hit, m.trades["t1"].state)

	m.evaluate(m.trades["t1"], big.NewFloat(121), now)
	ev = <-out
	assert.Equal(t, safegmx.ExitTP2, ev.Kind)
	assert.Equal(t, stateTP2Hit, m.trades["t1"].state)

	// price keeps rising, trailingHigh tracks it, no emission yet
	m.evaluate(m.trades["t1"], big.NewFloat(130), now)
	select {
	case ev := <-out:
		t.Fatalf("unexpected emission while trailing high: %+v", ev)
	default:
	}

	// retrace by 2% of 130 = 127.4, below threshold triggers trailing stop
	m.evaluate(m.trades["t1"], big.NewFloat(127), now)
	ev = <-out
	assert.Equal(t, safegmx.ExitTrailingStop, ev.Kind)

	m.mu.Lock()
	_, stillTracked := m.trades["t1"]
	m.mu.Unlock()
	assert.False(t, stillTracked, "trailing stop is terminal, trade must be detached")
}

func TestEvaluate_BuySide_StopLossTakesPrecedenceOverTP(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{}, out)
	m.Attach(buyTrade())

	m.evaluate(m.trades["t1"], big.NewFloat(89), time.Now())
	ev := <-out
	assert.Equal(t, safegmx.ExitStopLoss, ev.Kind)

	m.mu.Lock()
	_, stillTracked := m.trades["t1"]
	m.mu.Unlock()
	assert.False(t, stillTracked)
}

func TestEvaluate_DeadlinePrecedesEverything(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{}, out)
	trade := buyTrade()
	trade.Deadline = time.Now().Add(-time.Minute)
	m.Attach(trade)

	// price also satisfies TP1, but deadline must win
	m.evaluate(m.trades["t1"], big.NewFloat(111), time.Now())
	ev := <-out
	assert.Equal(t, safegmx.ExitDeadline, ev.Kind)
}

func TestEvaluate_SellSide_MirrorsComparisons(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 2)
	m := New(Config{}, fakeFeed{}, out)
	m.Attach(sellTrade())

	now := time.Now()
	m.evaluate(m.trades["t2"], big.NewFloat(89), now)
	ev := <-out
	assert.Equal(t, safegmx.ExitTP1, ev.Kind)

	m.evaluate(m.trades["t2"], big.NewFloat(79), now)
	ev = <-out
	assert.Equal(t, safegmx.ExitTP2, ev.Kind)
}

func TestEvaluate_SellSide_StopLossTriggersOnRise(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{}, out)
	m.Attach(sellTrade())

	m.evaluate(m.trades["t2"], big.NewFloat(111), time.Now())
	ev := <-out
	assert.Equal(t, safegmx.ExitStopLoss, ev.Kind)
}

func TestDetach_RemovesTrade(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{}, out)
	m.Attach(buyTrade())
	require.Len(t, m.trades, 1)

	m.Detach("t1")
	assert.Len(t, m.trades, 0)
}

func TestTick_SkipsSymbolOnFeedError(t *testing.T) {
	out := make(chan safegmx.MonitorEvent, 1)
	m := New(Config{}, fakeFeed{err: assertErr{}}, out)
	m.Attach(buyTrade())

	m.tick(time.Now())
	select {
	case ev := <-out:
		t.Fatalf("unexpected emission on feed error: %+v", ev)
	default:
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "feed unavailable" }
