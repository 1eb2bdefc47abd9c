package safegmx

import (
	"container/heap"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/purvik6062/safegmx/internal/cache"
)

// signalRetention bounds how long a processed signalId's classification
// stays available for idempotent re-delivery. The
// bound itself (not the exact window) is what matters: "the
// signal-ingress dedup set is a bounded map (LRU, ≥ 10 000 entries)".
const signalRetention = 24 * time.Hour

// Resolver is the Token/Chain Resolver collaborator.
type Resolver interface {
	ResolveBindings(symbol string, active []WalletDeployment) ([]TokenBinding, error)
}

// Validator is the Wallet Validator collaborator.
type Validator interface {
	ValidateWallet(walletAddress string, network NetworkKey, active []WalletDeployment) error
}

// Sizer is the Position Sizer collaborator.
type Sizer interface {
	SizePosition(walletAddress string, network NetworkKey, sellBinding, buyBinding TokenBinding, percentRequested int64) (PositionPlan, error)
}

// Executor is the Trade Executor collaborator.
type Executor interface {
	Execute(trade *Trade, req ExecutionRequest) (txHash string, filledRaw *big.Int, err error)
}

// MonitorEvent is what the Position Monitor emits back to the scheduler.
type MonitorEvent struct {
	TradeId string
	Kind    ExitKind
	Price   *big.Float
}

// Monitor is the Position Monitor collaborator.
type Monitor interface {
	Attach(trade *Trade)
	Detach(tradeId string)
}

// Directory is the User/Wallet Directory collaborator.
type Directory interface {
	GetWallet(callerId string) (activeDeployments []WalletDeployment, err error)
}

// EventPublisher is the outbound Event Bus collaborator.
// Delivery is best-effort; the orchestrator never waits on it.
type EventPublisher interface {
	Publish(topic string, payload interface{})
}

// SchedulerConfig carries the startup-only, policy-affecting options of
// the configuration table that the scheduler itself consults.
type SchedulerConfig struct {
	PositionPercentage int64
	ExecutorFanOut     int
	TP1PartialPercent  int64 // 0 means "full exit on TP1", the default
}

// Orchestrator is the single source of truth for trade progression.
// It serializes trade-state mutations behind a per-trade lease and
// fans dispatch out to the Executor across a bounded worker pool.
type Orchestrator struct {
	cfg SchedulerConfig

	resolver  Resolver
	validator Validator
	sizer     Sizer
	executor  Executor
	monitor   Monitor
	directory Directory
	events    EventPublisher
	flow      *FlowTracker

	baseSymbol string

	mu           sync.Mutex
	trades       map[string]*Trade
	bySignal     *cache.TTLCache[string, *Trade]
	admissionErr *cache.TTLCache[string, *TradeError]
	queue        priorityQueue
	leases       map[string]bool
	seq          uint64
	notify       chan struct{}

	exitCh chan MonitorEvent

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	tradeSeq uint64
}

// NewOrchestrator wires every collaborator the scheduler depends on.
// baseSymbol is the stablecoin used as the sell side of a buy and the
// buy side of a sell.
func NewOrchestrator(cfg SchedulerConfig, baseSymbol string, resolver Resolver, validator Validator, sizer Sizer, executor Executor, monitor Monitor, directory Directory, events EventPublisher, flow *FlowTracker) *Orchestrator {
	if cfg.ExecutorFanOut <= 0 {
		cfg.ExecutorFanOut = 8
	}
	if flow == nil {
		flow = NewFlowTracker(nil)
	}
	o := &Orchestrator{
		cfg:          cfg,
		resolver:     resolver,
		validator:    validator,
		sizer:        sizer,
		executor:     executor,
		monitor:      monitor,
		directory:    directory,
		events:       events,
		flow:         flow,
		baseSymbol:   baseSymbol,
		trades:       make(map[string]*Trade),
		bySignal:     cache.NewTTLCache[string, *Trade](cache.DefaultDedupCapacity, signalRetention),
		admissionErr: cache.NewTTLCache[string, *TradeError](cache.DefaultDedupCapacity, signalRetention),
		leases:       make(map[string]bool),
		notify:       make(chan struct{}, 1),
		exitCh:       make(chan MonitorEvent, 256),
		stopCh:       make(chan struct{}),
	}
	return o
}

// Run starts the bounded worker pool and the exit-event consumer. It
// blocks until Shutdown is called.
func (o *Orchestrator) Run() {
	for i := 0; i < o.cfg.ExecutorFanOut; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	o.wg.Add(1)
	go o.consumeExitEvents()
	o.wg.Wait()
}

// Shutdown drains in-flight executor calls best-effort and fails every
// pending request.
func (o *Orchestrator) Shutdown() {
	o.stopOnce.Do(func() { close(o.stopCh) })

	o.mu.Lock()
	for o.queue.Len() > 0 {
		req := heap.Pop(&o.queue).(*ExecutionRequest)
		if t, ok := o.trades[req.TradeId]; ok && !t.State.IsTerminal() {
			t.State = TradeStateFailed
			t.UpdatedAt = time.Now()
		}
	}
	o.mu.Unlock()

	o.wg.Wait()
}

// ExitEvents returns the channel the Position Monitor should push
// MonitorEvent values into.
func (o *Orchestrator) ExitEvents() chan<- MonitorEvent { return o.exitCh }

// Trade returns a snapshot of a trade's current state, for collaborators
// such as the persistence audit sink that need the full record a
// publish topic's compact payload doesn't carry.
func (o *Orchestrator) Trade(tradeId string) (Trade, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.trades[tradeId]
	if !ok {
		return Trade{}, false
	}
	return *t, true
}

// SubmitSignal runs the signal admission algorithm. It is
// idempotent on signalId: re-delivery returns the original
// classification without reprocessing.
func (o *Orchestrator) SubmitSignal(signal Signal) (tradeId string, err error) {
	o.mu.Lock()
	if existing, ok := o.bySignal.Get(signal.SignalId); ok {
		originalErr, _ := o.admissionErr.Get(signal.SignalId)
		o.mu.Unlock()
		if originalErr != nil {
			return existing.TradeId, originalErr
		}
		return existing.TradeId, nil
	}
	o.mu.Unlock()

	o.flow.Start(signal.SignalId, "orchestrator")

	fail := func(tradeErr *TradeError) (string, error) {
		o.flow.Fail(signal.SignalId, "orchestrator", tradeErr)
		placeholder := &Trade{
			TradeId:  o.mintTradeId(),
			SignalId: signal.SignalId,
			CallerId: signal.CallerId,
			State:    TradeStateFailed,
			UpdatedAt: time.Now(),
		}
		o.mu.Lock()
		o.trades[placeholder.TradeId] = placeholder
		o.bySignal.Set(signal.SignalId, placeholder)
		o.admissionErr.Set(signal.SignalId, tradeErr)
		o.mu.Unlock()
		o.publish("signal.rejected", map[string]interface{}{"signalId": signal.SignalId, "code": tradeErr.Code})
		return placeholder.TradeId, tradeErr
	}

	// Step 1: validate shape and invariants.
	if err := signal.Validate(time.Now()); err != nil {
		return fail(err.(*TradeError))
	}

	// Active deployments come from the Directory collaborator.
	active, err := o.directory.GetWallet(signal.CallerId)
	if err != nil {
		return fail(wrapError(CodeSafeNotDeployed, KindNotFound, "caller has no wallet directory record", Context{Service: "directory", Operation: "GetWallet", SignalId: signal.SignalId}, err))
	}

	// Step 2: resolve token chains, pick the first binding whose
	// networkKey is in the caller's active deployments.
	bindings, err := o.resolver.ResolveBindings(signal.Symbol, active)
	if err != nil {
		if te, ok := err.(*TradeError); ok {
			return fail(te)
		}
		return fail(wrapError(CodeTokenNotFound, KindNotFound, "token resolution failed", Context{Service: "resolver", SignalId: signal.SignalId}, err))
	}
	if len(bindings) == 0 {
		return fail(newError(CodeTokenNotFound, KindNotFound, fmt.Sprintf("symbol %s not found on any known chain", signal.Symbol), Context{Service: "resolver", SignalId: signal.SignalId}))
	}
	binding := bindings[0]
	for _, b := range bindings {
		if hasActiveDeployment(active, b.NetworkKey) {
			binding = b
			break
		}
	}

	o.flow.Step(signal.SignalId, "orchestrator", "resolved", logrus.Fields{"networkKey": binding.NetworkKey})

	// Step 3: validate the wallet on that chain.
	if err := o.validator.ValidateWallet(signal.WalletAddress, binding.NetworkKey, active); err != nil {
		if te, ok := err.(*TradeError); ok {
			return fail(te)
		}
		return fail(wrapError(CodeSafeNotDeployed, KindNotFound, "wallet validation failed", Context{Service: "validator", SignalId: signal.SignalId, NetworkKey: binding.NetworkKey}, err))
	}

	// Step 4: compute a PositionPlan against the base stablecoin.
	baseBindings, err := o.resolver.ResolveBindings(o.baseSymbol, active)
	if err != nil || len(baseBindings) == 0 {
		return fail(newError(CodeTokenNotFound, KindNotFound, fmt.Sprintf("base symbol %s not found on %s", o.baseSymbol, binding.NetworkKey), Context{Service: "resolver", SignalId: signal.SignalId}))
	}
	var baseBinding TokenBinding
	found := false
	for _, b := range baseBindings {
		if b.NetworkKey == binding.NetworkKey {
			baseBinding = b
			found = true
			break
		}
	}
	if !found {
		return fail(newError(CodeUnsupportedNetwork, KindValidation, fmt.Sprintf("base symbol %s has no binding on %s", o.baseSymbol, binding.NetworkKey), Context{SignalId: signal.SignalId, NetworkKey: binding.NetworkKey}))
	}

	var sellBinding, buyBinding TokenBinding
	if signal.Side == SideBuy {
		sellBinding, buyBinding = baseBinding, binding
	} else {
		sellBinding, buyBinding = binding, baseBinding
	}

	plan, err := o.sizer.SizePosition(signal.WalletAddress, binding.NetworkKey, sellBinding, buyBinding, o.cfg.PositionPercentage)
	if err != nil {
		if te, ok := err.(*TradeError); ok {
			return fail(te)
		}
		return fail(wrapError(CodePositionSizeTooSmall, KindValidation, "sizing failed", Context{Service: "sizer", SignalId: signal.SignalId}, err))
	}

	// Step 5: mint a tradeId, build the Trade in pending, enqueue an
	// enter ExecutionRequest.
	trade := &Trade{
		TradeId:            o.mintTradeId(),
		SignalId:           signal.SignalId,
		CallerId:           signal.CallerId,
		WalletAddress:      signal.WalletAddress,
		NetworkKey:         binding.NetworkKey,
		SellBinding:        plan.SellBinding,
		BuyBinding:         plan.BuyBinding,
		Side:               signal.Side,
		TP1:                signal.TP1,
		TP2:                signal.TP2,
		StopLoss:           signal.StopLoss,
		Deadline:           signal.Deadline,
		EntryPriceExpected: signal.EntryPrice,
		State:              TradeStatePending,
		UpdatedAt:          time.Now(),
	}

	o.mu.Lock()
	o.trades[trade.TradeId] = trade
	o.bySignal.Set(signal.SignalId, trade)
	o.mu.Unlock()

	o.Enqueue(ExecutionRequest{
		TradeId:   trade.TradeId,
		Action:    ActionEnter,
		AmountRaw: plan.SellAmountRaw,
		Reason:    "signal admitted",
		Priority:  PriorityMedium,
	})

	o.flow.Complete(signal.SignalId, "orchestrator", logrus.Fields{"tradeId": trade.TradeId})
	o.publish("signal.accepted", map[string]interface{}{"signalId": signal.SignalId, "tradeId": trade.TradeId})

	return trade.TradeId, nil
}

func (o *Orchestrator) mintTradeId() string {
	n := atomic.AddUint64(&o.tradeSeq, 1)
	return fmt.Sprintf("trade-%d", n)
}

// hasActiveDeployment reports whether the caller has an active wallet
// deployment on network, used to prefer chains the caller can actually
// trade on over the resolver's raw source-priority ranking.
func hasActiveDeployment(active []WalletDeployment, network NetworkKey) bool {
	for _, d := range active {
		if d.Active && d.NetworkKey == network {
			return true
		}
	}
	return false
}

// Enqueue admits a request into the priority queue. High requests are
// dispatched ahead of medium ahead of low; within a class, FIFO.
func (o *Orchestrator) Enqueue(req ExecutionRequest) {
	o.mu.Lock()
	o.seq++
	req.seq = o.seq
	heap.Push(&o.queue, &req)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Drain pulls the next legal request and dispatches it to the
// executor. It returns false when there is nothing eligible to run
// right now (either the queue is empty or every head-of-queue trade is
// already leased).
func (o *Orchestrator) Drain() bool {
	o.mu.Lock()
	idx, req := o.nextDispatchableLocked()
	if req == nil {
		o.mu.Unlock()
		return false
	}
	heap.Remove(&o.queue, idx)

	trade, ok := o.trades[req.TradeId]
	if !ok || trade.State.IsTerminal() {
		o.mu.Unlock()
		return true // dropped: invalid transition, never executed
	}
	if !o.transitionIsLegalLocked(trade, req) {
		if o.flow != nil {
			o.flow.log.WithFields(logrus.Fields{"tradeId": req.TradeId, "action": req.Action, "state": trade.State}).Warn("dropping illegal execution request")
		}
		o.mu.Unlock()
		return true // dropped with an observable warning
	}
	o.leases[req.TradeId] = true
	o.mu.Unlock()

	o.dispatch(trade, *req)
	return true
}

// nextDispatchableLocked scans the heap for the highest-priority,
// earliest-sequenced request whose trade is not already leased. Callers
// must hold o.mu.
func (o *Orchestrator) nextDispatchableLocked() (int, *ExecutionRequest) {
	best := -1
	for i, req := range o.queue {
		if o.leases[req.TradeId] {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if less(o.queue[i], o.queue[best]) {
			best = i
		}
	}
	if best == -1 {
		return -1, nil
	}
	return best, o.queue[best]
}

// transitionIsLegalLocked checks the request against the trade's
// current state machine position. Callers must hold
// o.mu.
func (o *Orchestrator) transitionIsLegalLocked(trade *Trade, req *ExecutionRequest) bool {
	switch req.Action {
	case ActionEnter:
		return trade.State == TradeStatePending
	case ActionExit:
		return trade.State == TradeStateEntered || trade.State == TradeStatePartiallyExited
	default:
		return false
	}
}

// dispatch runs the request inline on the calling worker goroutine.
// Concurrency across trades is therefore bounded by the number of
// workers (cfg.ExecutorFanOut), not spawned unboundedly.
func (o *Orchestrator) dispatch(trade *Trade, req ExecutionRequest) {
	defer func() {
		o.mu.Lock()
		delete(o.leases, req.TradeId)
		o.mu.Unlock()
		select {
		case o.notify <- struct{}{}:
		default:
		}
	}()
	o.runRequest(trade, req)
}

func (o *Orchestrator) runRequest(trade *Trade, req ExecutionRequest) {
	if req.Action == ActionEnter {
		o.mu.Lock()
		trade.State = TradeStateEntering
		trade.UpdatedAt = time.Now()
		o.mu.Unlock()
	}

	txHash, filledRaw, err := o.executor.Execute(trade, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		if req.Action == ActionEnter {
			trade.State = TradeStateFailed
			trade.UpdatedAt = time.Now()
			o.publish("trade.failed", map[string]interface{}{"tradeId": trade.TradeId})
		}
		return
	}

	switch req.Action {
	case ActionEnter:
		trade.State = TradeStateEntered
		trade.EntryTxHash = txHash
		trade.EntryFilledRaw = filledRaw
		trade.UpdatedAt = time.Now()
		o.monitor.Attach(trade)
		o.publish("trade.entered", map[string]interface{}{"tradeId": trade.TradeId})
	case ActionExit:
		pct := percentageOfPosition(filledRaw, trade.EntryFilledRaw)
		trade.ExitEvents = append(trade.ExitEvents, ExitEvent{
			Kind:                exitKindFromReason(req.Reason),
			AmountRaw:           filledRaw,
			PercentageOfPosition: pct,
			TxHash:              txHash,
			At:                  time.Now(),
		})
		trade.UpdatedAt = time.Now()
		if trade.ExitedPercentage() >= 100 {
			trade.State = terminalStateForExit(exitKindFromReason(req.Reason))
			o.monitor.Detach(trade.TradeId)
			o.publish("trade.exited", map[string]interface{}{"tradeId": trade.TradeId})
		} else {
			trade.State = TradeStatePartiallyExited
		}
	}
}

func percentageOfPosition(filled, totalEntered *big.Int) int64 {
	if filled == nil || totalEntered == nil || totalEntered.Sign() == 0 {
		return 100
	}
	pct := new(big.Int).Mul(filled, big.NewInt(100))
	pct.Div(pct, totalEntered)
	return pct.Int64()
}

func exitKindFromReason(reason string) ExitKind {
	switch reason {
	case string(ExitTP1), string(ExitTP2), string(ExitStopLoss), string(ExitTrailingStop), string(ExitDeadline), string(ExitManual):
		return ExitKind(reason)
	default:
		return ExitManual
	}
}

// terminalStateForExit maps the exit kind that brought a trade's
// exited percentage to 100 onto the matching terminal state: a
// deadline exit lands in expired, a stop-loss exit in stopped_out,
// and every other exit kind (TP1, TP2, trailing stop, manual) in
// exited.
func terminalStateForExit(kind ExitKind) TradeState {
	switch kind {
	case ExitDeadline:
		return TradeStateExpired
	case ExitStopLoss:
		return TradeStateStoppedOut
	default:
		return TradeStateExited
	}
}

// consumeExitEvents converts monitor events into exit ExecutionRequests.
func (o *Orchestrator) consumeExitEvents() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopCh:
			return
		case ev := <-o.exitCh:
			priority := PriorityMedium
			if ev.Kind == ExitStopLoss || ev.Kind == ExitDeadline {
				priority = PriorityHigh
			}

			o.mu.Lock()
			trade, ok := o.trades[ev.TradeId]
			o.mu.Unlock()
			if !ok || trade.State.IsTerminal() {
				continue
			}

			amount := remainingAmount(trade, ev.Kind, o.cfg.TP1PartialPercent)
			o.Enqueue(ExecutionRequest{
				TradeId:   ev.TradeId,
				Action:    ActionExit,
				AmountRaw: amount,
				Reason:    string(ev.Kind),
				Priority:  priority,
			})
		}
	}
}

// remainingAmount computes the exit ExecutionRequest's amount: full
// exit for STOP_LOSS/DEADLINE/TRAILING_STOP, configurable partial for
// TP1 (defaults to full if not configured).
func remainingAmount(trade *Trade, kind ExitKind, tp1PartialPercent int64) *big.Int {
	remainingPct := int64(100) - trade.ExitedPercentage()
	if remainingPct <= 0 {
		return big.NewInt(0)
	}

	remaining := new(big.Int).Set(trade.EntryFilledRaw)
	if trade.ExitedPercentage() > 0 {
		remaining.Mul(remaining, big.NewInt(remainingPct))
		remaining.Div(remaining, big.NewInt(100))
	}

	if kind == ExitTP1 && tp1PartialPercent > 0 && tp1PartialPercent < 100 {
		remaining.Mul(remaining, big.NewInt(tp1PartialPercent))
		remaining.Div(remaining, big.NewInt(100))
	}
	return remaining
}

func (o *Orchestrator) publish(topic string, payload interface{}) {
	if o.events == nil {
		return
	}
	o.events.Publish(topic, payload)
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopCh:
			return
		case <-o.notify:
			for o.Drain() {
			}
		}
	}
}

// priorityQueue is a container/heap.Interface ordering high before
// medium before low, and within a class by ascending seq (FIFO).
type priorityQueue []*ExecutionRequest

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool { return less(q[i], q[j]) }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x interface{}) {
	*q = append(*q, x.(*ExecutionRequest))
}

func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func less(a, b *ExecutionRequest) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}
