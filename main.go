package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/balance"
	"github.com/speedrun-hq/gofast-relayer/pkg/chainclient"
	"github.com/speedrun-hq/gofast-relayer/pkg/circuitbreaker"
	"github.com/speedrun-hq/gofast-relayer/pkg/config"
	"github.com/speedrun-hq/gofast-relayer/pkg/contracts"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/dedup"
	"github.com/speedrun-hq/gofast-relayer/pkg/health"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/relayer"
	"github.com/speedrun-hq/gofast-relayer/pkg/resolver"
	"github.com/speedrun-hq/gofast-relayer/pkg/settlement"
	"github.com/speedrun-hq/gofast-relayer/pkg/signer"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
	"github.com/speedrun-hq/gofast-relayer/pkg/watcher"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var lg logger.Logger
	if cfg.LoggerConfig.Format == config.LogFormatJSON {
		lg = logger.NewJSONLogger(os.Stdout, cfg.LoggerConfig.Level)
	} else {
		lg = logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
	}

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		lg.Info("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	source, err := chainclient.New(ctx, cfg.Source.ChainID, cfg.Source.RPCURL, cfg.Source.WSURL, lg)
	if err != nil {
		log.Fatalf("Failed to connect to source chain: %v", err)
	}
	defer source.Close()

	dest := cosmos.NewClient(cfg.Destination.RESTURL, lg)
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	nodeInfo, err := dest.NodeInfo(startupCtx)
	if err != nil {
		log.Fatalf("Failed to reach destination node: %v", err)
	}
	if nodeInfo.Network != cfg.Destination.ChainID {
		log.Fatalf("Destination node serves %s, expected %s", nodeInfo.Network, cfg.Destination.ChainID)
	}

	sig := signer.New(cfg.Signer.URL, lg)
	solver, err := sig.Resolve(startupCtx, cfg.Signer.Address)
	startupCancel()
	if err != nil {
		log.Fatalf("Failed to resolve signer: %v", err)
	}
	lg.InfoWithChain(int(cfg.Destination.Domain), "Filling from %s on %s", solver, cfg.Destination.ChainID)

	sequences := cosmos.NewSequenceManager(lg)
	sequences.SetTransactionTimeout(2 * cfg.Destination.TxConfirmTimeout)
	fills := submitter.New(dest, sig, sequences, submitter.Config{
		ChainID:        cfg.Destination.ChainID,
		Domain:         cfg.Destination.Domain,
		Bech32Prefix:   cfg.Destination.Bech32Prefix,
		GasPrice:       cfg.Destination.GasPrice,
		GasMultiplier:  cfg.Destination.GasMultiplier,
		Settlers:       cfg.Settlers,
		ConfirmTimeout: cfg.Destination.TxConfirmTimeout,
	}, lg)

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		lg,
	)

	w := watcher.New(source, watcher.Config{
		ChainID:            cfg.Source.ChainID,
		Address:            cfg.Source.SettlerAddress,
		Topics:             [][]common.Hash{{contracts.OpenEventID()}},
		MaxBlockRange:      cfg.Source.MaxBlockRange,
		ConfirmationBlocks: cfg.Source.ConfirmationBlocks,
		PollInterval:       cfg.Source.PollingInterval,
		StartBlock:         cfg.Source.StartBlock,
		Subscribe:          source.SupportsSubscriptions(),
	}, lg)

	denoms := cfg.Assets.Denoms(cfg.Destination.Domain)
	denoms = append(denoms, cfg.Destination.GasPrice.Denom)
	monitor := balance.NewMonitor(ctx, dest, solver, denoms, int(cfg.Destination.Domain), cfg.BalanceMonitor, lg)

	res, err := resolver.New(cfg.Assets, cfg.AssetFallback)
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	deps := relayer.Deps{
		Watcher:   w,
		Resolver:  res,
		Guard:     dedup.NewGuard(),
		Validator: balance.NewValidator(dest, solver),
		Submitter: fills,
		Breaker:   breaker,
		Balances:  monitor,
		Logger:    lg,
	}

	if cfg.Settlement.Enabled {
		tracker, err := settlement.NewTracker(source, cfg.Source.MailboxAddress, cfg.Source.ChainID,
			cfg.Settlement.LookbackBlocks, cfg.Source.MaxBlockRange, lg)
		if err != nil {
			log.Fatalf("Failed to create settlement tracker: %v", err)
		}
		deps.Settler = settlement.NewSettler(dest, fills, tracker, settlement.Config{
			ChainID:          int(cfg.Destination.Domain),
			Gateway:          cfg.Settlement.GatewayAddress,
			RepaymentAddress: cfg.Settlement.RepaymentAddress,
			Fee:              cfg.Settlement.Fee,
		}, lg)
	}

	r, err := relayer.New(deps, relayer.Config{
		SourceChainID:      cfg.Source.ChainID,
		DestinationChainID: int(cfg.Destination.Domain),
		Domain:             cfg.Destination.Domain,
		WorkerCount:        cfg.WorkerCount,
		MaxRetries:         cfg.MaxRetries,
		FillTimeout:        cfg.FillTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create relayer: %v", err)
	}

	healthServer := health.NewServer(cfg.MetricsPort, r, func(ctx context.Context) error {
		_, err := dest.NodeInfo(ctx)
		return err
	}, cfg.MetricsAPIKey, lg)
	go func() {
		if err := healthServer.Start(ctx); err != nil {
			lg.Error("%v", err)
		}
	}()

	lg.Info("Starting the relayer...")
	if err := r.Start(ctx); err != nil {
		log.Fatalf("Relayer stopped with error: %v", err)
	}
}
