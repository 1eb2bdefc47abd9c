// Command orchestrator wires every collaborator around the core
// scheduler and starts the bounded worker pool, the Position Monitor's
// tick loop, and the reference Signal Ingress HTTP surface: decrypt
// the signer key, load config, dial chains, wire collaborators, run.
package main

import (
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/collaborators/aggregator"
	"github.com/purvik6062/safegmx/collaborators/directory"
	"github.com/purvik6062/safegmx/collaborators/eventbus"
	"github.com/purvik6062/safegmx/collaborators/httpingress"
	"github.com/purvik6062/safegmx/collaborators/persistence"
	"github.com/purvik6062/safegmx/collaborators/pricefeed"
	"github.com/purvik6062/safegmx/collaborators/rpcprovider"
	"github.com/purvik6062/safegmx/collaborators/tokenregistry"
	"github.com/purvik6062/safegmx/configs"
	"github.com/purvik6062/safegmx/internal/allowance"
	"github.com/purvik6062/safegmx/internal/executor"
	"github.com/purvik6062/safegmx/internal/monitor"
	"github.com/purvik6062/safegmx/internal/resolver"
	"github.com/purvik6062/safegmx/internal/route"
	"github.com/purvik6062/safegmx/internal/sizer"
	"github.com/purvik6062/safegmx/internal/util"
	"github.com/purvik6062/safegmx/internal/validator"
	"github.com/purvik6062/safegmx/pkg/txlistener"
)

var configPath string

// walletResolverAdapter narrows rpcprovider.Provider's concrete
// *safewallet.Wallet return down to internal/executor's Wallet
// interface type, which Go's structural typing needs spelled out at
// the return-type level even though *safewallet.Wallet already
// implements every method the interface names.
type walletResolverAdapter struct{ rpc *rpcprovider.Provider }

func (a walletResolverAdapter) Wallet(walletAddress string, network safegmx.NetworkKey) (executor.Wallet, error) {
	return a.rpc.Wallet(walletAddress, network)
}

func main() {
	root := &cobra.Command{
		Use:   "orchestrator",
		Short: "Signal-driven trade orchestrator for multi-signature custodial wallets",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yml", "path to config.yml")

	root.AddCommand(runCmd(), validateConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and sanity-check config.yml without starting the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.BaseSymbol == "" {
				return fmt.Errorf("baseSymbol must be set")
			}
			if len(cfg.RPC) == 0 {
				return fmt.Errorf("at least one rpc endpoint must be configured")
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

// auditingPublisher fans every published event out to the websocket
// event bus and, when a persistence sink is configured, records the
// affected trade's current snapshot as an audit trail row.
type auditingPublisher struct {
	bus  *eventbus.Bus
	sink *persistence.Sink
	orch *safegmx.Orchestrator
	log  *logrus.Logger
}

func (p *auditingPublisher) Publish(topic string, payload interface{}) {
	p.bus.Publish(topic, payload)
	if p.sink == nil || p.orch == nil {
		return
	}
	fields, ok := payload.(map[string]interface{})
	if !ok {
		return
	}
	tradeId, ok := fields["tradeId"].(string)
	if !ok || tradeId == "" {
		return
	}
	trade, ok := p.orch.Trade(tradeId)
	if !ok {
		return
	}
	if err := p.sink.RecordTrade(&trade); err != nil {
		p.log.WithError(err).WithField("tradeId", tradeId).Warn("persistence: record trade failed")
	}
}

func run() error {
	_ = godotenv.Load()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	signerKey, err := loadSignerKey()
	if err != nil {
		return err
	}

	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ethClients, listeners, err := dialChains(cfg)
	if err != nil {
		return err
	}

	rpc := rpcprovider.New(ethClients, listeners, signerKey)

	resolverSvc := resolver.New(
		tokenregistry.NewStatic(cfg.ToStaticBindings()),
		tokenregistry.NewExternal(cfg.Collaborators.TokenRegistryURL),
		tokenregistry.NewListing(cfg.Collaborators.ListingIndexURL),
	)

	validatorSvc := validator.New(rpc, log)

	sizerCfg, err := cfg.ToSizerConfig(cfg.StableSymbolSet())
	if err != nil {
		return fmt.Errorf("build sizer config: %w", err)
	}
	aggregatorClient := aggregator.New(cfg.Collaborators.AggregatorURL)
	sizerSvc := sizer.New(sizerCfg, rpc, aggregatorClient)

	routeSvc := route.New(aggregatorClient, route.Config{DefaultSlippageBps: cfg.Policy.DefaultSlippageBps})

	allowanceSvc := allowance.New(cfg.ToAllowanceConfig(cfg.PermitContracts), rpc, rpc)

	executorSvc := executor.New(cfg.ToExecutorConfig(nil), routeSvc, allowanceSvc, rpc, walletResolverAdapter{rpc})

	exitEventsCh := make(chan safegmx.MonitorEvent, 256)
	priceFeedClient := pricefeed.New(cfg.Collaborators.PriceFeedURL)
	monitorSvc := monitor.New(cfg.ToMonitorConfig(), priceFeedClient, exitEventsCh)

	directoryClient := directory.New(cfg.Collaborators.DirectoryURL)

	bus := eventbus.New(log)

	var sink *persistence.Sink
	if cfg.Collaborators.PersistenceDSN != "" {
		sink, err = persistence.New(cfg.Collaborators.PersistenceDSN)
		if err != nil {
			return fmt.Errorf("connect persistence sink: %w", err)
		}
		defer sink.Close()
	}

	flow := safegmx.NewFlowTracker(log)
	pub := &auditingPublisher{bus: bus, sink: sink, log: log}

	orch := safegmx.NewOrchestrator(
		safegmx.SchedulerConfig{
			PositionPercentage: cfg.Policy.PositionPercentage,
			ExecutorFanOut:     cfg.Policy.ExecutorFanOut,
		},
		cfg.BaseSymbol,
		resolverSvc,
		validatorSvc,
		sizerSvc,
		executorSvc,
		monitorSvc,
		directoryClient,
		pub,
		flow,
	)
	pub.orch = orch

	go monitorSvc.Run()
	go relayExitEvents(exitEventsCh, orch)

	ingress := httpingress.New(orch, log)
	mux := http.NewServeMux()
	mux.Handle("/", ingress)
	mux.Handle("/events", bus)

	addr := cfg.Collaborators.HTTPIngressAddr
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		log.WithField("addr", addr).Info("signal ingress listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("http ingress stopped")
		}
	}()

	orch.Run()
	return nil
}

func loadSignerKey() (*ecdsa.PrivateKey, error) {
	encryptedPK := os.Getenv("ENC_PK")
	if encryptedPK == "" {
		return nil, fmt.Errorf("ENC_PK not set")
	}
	key := os.Getenv("KEY")
	if key == "" {
		return nil, fmt.Errorf("KEY not set")
	}
	return util.DecryptPrivateKey([]byte(key), encryptedPK)
}

func dialChains(cfg *configs.Config) (map[safegmx.NetworkKey]*ethclient.Client, map[safegmx.NetworkKey]*txlistener.TxListener, error) {
	ethClients := make(map[safegmx.NetworkKey]*ethclient.Client, len(cfg.RPC))
	listeners := make(map[safegmx.NetworkKey]*txlistener.TxListener, len(cfg.RPC))

	for network, rpcURL := range cfg.RPC {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", network, err)
		}
		ethClients[safegmx.NetworkKey(network)] = client
		listeners[safegmx.NetworkKey(network)] = txlistener.NewTxListener(
			client,
			txlistener.WithPollInterval(3*time.Second),
			txlistener.WithTimeout(cfg.ReceiptWait()),
		)
	}
	return ethClients, listeners, nil
}

// relayExitEvents forwards Position Monitor output into the
// orchestrator's exit-event channel. The monitor is constructed before
// the orchestrator (the orchestrator's constructor takes the monitor as
// a collaborator), so it cannot write directly to orch.ExitEvents();
// this goroutine closes that wiring loop.
func relayExitEvents(in <-chan safegmx.MonitorEvent, orch *safegmx.Orchestrator) {
	out := orch.ExitEvents()
	for ev := range in {
		out <- ev
	}
}
