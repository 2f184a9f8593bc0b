package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	evbus "ToxicTide/internal/bus"
	"ToxicTide/internal/domain/repository"
	"ToxicTide/internal/handler/api"
	internalrepo "ToxicTide/internal/repository"
	"ToxicTide/internal/service/feed"
	"ToxicTide/internal/services/analytics"
	"ToxicTide/internal/services/execution"
	"ToxicTide/internal/services/features"
	"ToxicTide/internal/services/position"
	"ToxicTide/internal/services/regime"
	"ToxicTide/internal/services/risk"
	"ToxicTide/internal/services/strategy"
	"ToxicTide/internal/usecase"
	pkgch "ToxicTide/pkg/clickhouse"
	"ToxicTide/pkg/config"
	xhttp "ToxicTide/pkg/http"
	pkgkafka "ToxicTide/pkg/kafka"
	applogger "ToxicTide/pkg/logger"
	"ToxicTide/pkg/metrics"
	"ToxicTide/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideBus creates the in-process event bus.
func ProvideBus(l *applogger.Logger) *evbus.Bus {
	return evbus.New(l)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	return metrics.New(cfg.Market.Symbol)
}

// ProvideMarketFeed selects the configured market data source.
func ProvideMarketFeed(cfg *config.Config, l *applogger.Logger) (repository.MarketFeed, error) {
	switch cfg.Feed.Type {
	case "binance":
		return feed.NewBinanceCollector(feed.BinanceConfig{
			Symbol:         cfg.Feed.Binance.Symbol,
			WebsocketURL:   cfg.Feed.Binance.WebSocketURL,
			Depth:          cfg.Market.OrderbookDepth,
			ReconnectDelay: cfg.Feed.Binance.ReconnectDelay,
			PingInterval:   cfg.Feed.Binance.PingInterval,
		}, l), nil
	case "sim":
		return feed.NewSimCollector(feed.SimConfig{
			Symbol:     cfg.Market.Symbol,
			Seed:       cfg.Feed.Sim.Seed,
			StartPrice: cfg.Feed.Sim.StartPrice,
			Levels:     cfg.Feed.Sim.Levels,
			Interval:   cfg.Engine.TickInterval,
		}, l), nil
	default:
		return nil, fmt.Errorf("unknown feed type %q", cfg.Feed.Type)
	}
}

// ProvidePipeline assembles the per-tick decision stages.
func ProvidePipeline(cfg *config.Config, l *applogger.Logger) usecase.Pipeline {
	strat := strategy.Config{
		Enabled:         cfg.Strategy.Enabled,
		BaseNotionalUSD: cfg.Strategy.BaseNotionalUSD,
	}
	strat.Breakout.Lookback = cfg.Strategy.TrendBreakout.Lookback
	strat.Breakout.BreakoutPct = cfg.Strategy.TrendBreakout.BreakoutPct
	strat.Breakout.StopPct = cfg.Strategy.TrendBreakout.StopPct
	strat.Breakout.TakeProfitPct = cfg.Strategy.TrendBreakout.TakeProfitPct
	strat.Breakout.Confidence = cfg.Strategy.TrendBreakout.Confidence
	strat.Breakout.TTL = cfg.Strategy.TrendBreakout.TTL
	strat.MeanRevert.Lookback = cfg.Strategy.RangeMeanRevert.Lookback
	strat.MeanRevert.EntrySigma = cfg.Strategy.RangeMeanRevert.EntrySigma
	strat.MeanRevert.StopPct = cfg.Strategy.RangeMeanRevert.StopPct
	strat.MeanRevert.Confidence = cfg.Strategy.RangeMeanRevert.Confidence
	strat.MeanRevert.TTL = cfg.Strategy.RangeMeanRevert.TTL

	return usecase.Pipeline{
		Features: features.NewEngine(features.Config{
			ImpactSizeUSD:   cfg.Features.ImpactSizeUSD,
			AggregationSpan: cfg.Features.AggregationSpan,
			TapeWindow:      cfg.Market.TapeWindow,
		}, l),
		OAD: analytics.NewOrderbookDetector(analytics.OADConfig{
			WindowSize:        cfg.Detectors.WindowSize,
			MinSamples:        cfg.Detectors.MinSamples,
			ZWarn:             cfg.Detectors.OAD.ZWarn,
			ZDanger:           cfg.Detectors.OAD.ZDanger,
			SpreadGrowthRatio: cfg.Detectors.OAD.SpreadGrowthRatio,
			LiquidityGapFrac:  cfg.Detectors.OAD.LiquidityGapFrac,
			ThinImpactBps:     cfg.Risk.ImpactEntryCapBps,
			ToxicImpactBps:    cfg.Risk.ImpactHardCapBps,
			ToxicDangerRatio:  cfg.Detectors.VAD.ToxicDanger,
		}, l),
		VAD: analytics.NewVolumeDetector(analytics.VADConfig{
			WindowSize:  cfg.Detectors.WindowSize,
			MinSamples:  cfg.Detectors.MinSamples,
			ZWarn:       cfg.Detectors.VAD.ZWarn,
			ZDanger:     cfg.Detectors.VAD.ZDanger,
			ToxicWarn:   cfg.Detectors.VAD.ToxicWarn,
			ToxicDanger: cfg.Detectors.VAD.ToxicDanger,
		}, l),
		Regime: regime.NewClassifier(regime.Config{
			ShortWindow:  cfg.Regime.ShortWindow,
			LongWindow:   cfg.Regime.LongWindow,
			TrendBandPct: cfg.Regime.TrendBandPct,
			VolCalm:      cfg.Regime.VolCalm,
			VolExtreme:   cfg.Regime.VolExtreme,
			FlowBand:     cfg.Regime.FlowBand,
		}, l),
		Strategy: strategy.NewEngine(strat, l),
		Guardian: risk.NewGuardian(risk.Config{
			MaxDailyLossPct:        cfg.Risk.MaxDailyLossPct,
			MaxPositionNotionalUSD: cfg.Risk.MaxPositionNotionalUSD,
			MaxTradesPerHour:       cfg.Risk.MaxTradesPerHour,
			ImpactEntryCapBps:      cfg.Risk.ImpactEntryCapBps,
			ImpactHardCapBps:       cfg.Risk.ImpactHardCapBps,
			StalenessThreshold:     cfg.Risk.StalenessThreshold,
			LossStreakLimit:        cfg.Risk.LossStreakLimit,
			CooldownDuration:       cfg.Risk.CooldownDuration,
			StressWarnFraction:     cfg.Risk.StressWarnFraction,
			MaxSlippageCapBps:      cfg.Risk.MaxSlippageCapBps,
			ToxicWarn:              cfg.Detectors.VAD.ToxicWarn,
			ToxicDanger:            cfg.Detectors.VAD.ToxicDanger,
		}, l),
		Planner: execution.NewPlanner(execution.Config{
			TakerToxicThreshold: cfg.Execution.TakerToxicThreshold,
			SlicingThresholdBps: cfg.Execution.SlicingThresholdBps,
			SliceCount:          cfg.Execution.SliceCount,
			SliceInterval:       cfg.Execution.SliceInterval,
		}, l),
	}
}

// ProvideExecutionAdapter creates the execution venue. Only paper trading
// is wired; live mode is rejected until a live adapter exists.
func ProvideExecutionAdapter(cfg *config.Config, l *applogger.Logger) (repository.ExecutionAdapter, error) {
	if cfg.Execution.Mode != "paper" {
		return nil, fmt.Errorf("execution mode %q not supported", cfg.Execution.Mode)
	}
	return execution.NewPaperAdapter(execution.PaperConfig{
		StartingBalanceUSD: cfg.Execution.Paper.StartingBalanceUSD,
		MinSlippageBps:     cfg.Execution.Paper.MinSlippageBps,
		MaxSlippageBps:     cfg.Execution.Paper.MaxSlippageBps,
		FeeBps:             cfg.Execution.Paper.FeeBps,
		Seed:               cfg.Feed.Sim.Seed,
	}, l), nil
}

// ProvidePositionManager creates the position book.
func ProvidePositionManager(l *applogger.Logger) *position.Manager {
	return position.NewManager(l)
}

// ProvidePositionMonitor creates the exit monitor over the position book.
func ProvidePositionMonitor(mgr *position.Manager, l *applogger.Logger) *position.Monitor {
	return position.NewMonitor(mgr, l)
}

// ProvideLedger opens the append-only decision ledger.
func ProvideLedger(cfg *config.Config, l *applogger.Logger) (repository.LedgerSink, error) {
	return internalrepo.NewJSONLLedger(cfg.Ledger.Path, l)
}

// ProvideClickHouseClient creates a ClickHouse client when enabled and
// initializes the decision table. Returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.RecordSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRecordStorage creates ClickHouse record storage. Nil when the
// client is disabled.
func ProvideRecordStorage(chClient *pkgch.Client, l *applogger.Logger) repository.RecordStorage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewCHRecordStorage(chClient, l)
}

// ProvideRecordPublisher creates the Kafka record publisher. Nil when
// Kafka is disabled.
func ProvideRecordPublisher(cfg *config.Config, l *applogger.Logger) (repository.RecordPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaRecordPublisher(producer, cfg.Kafka.Topic, l), nil
}

// ProvideRedisBridge attaches a Redis fan-out to the event bus when
// enabled. Returns nil otherwise.
func ProvideRedisBridge(cfg *config.Config, b *evbus.Bus, l *applogger.Logger) *internalrepo.RedisEventBridge {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	bridge := internalrepo.NewRedisEventBridge(client, cfg.Redis.Channel, l)
	bridge.Attach(b)
	return bridge
}

// ProvideOrchestrator assembles the tick loop.
func ProvideOrchestrator(
	cfg *config.Config,
	p usecase.Pipeline,
	marketFeed repository.MarketFeed,
	adapter repository.ExecutionAdapter,
	positions *position.Manager,
	monitor *position.Monitor,
	ledger repository.LedgerSink,
	publisher repository.RecordPublisher,
	storage repository.RecordStorage,
	m repository.Metrics,
	b *evbus.Bus,
	l *applogger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(
		usecase.TickConfig{Interval: cfg.Engine.TickInterval},
		p,
		usecase.Deps{
			Feed:      marketFeed,
			Adapter:   adapter,
			Positions: positions,
			Monitor:   monitor,
			Ledger:    ledger,
			Publisher: publisher,
			Storage:   storage,
			Metrics:   m,
			Bus:       b,
		},
		l,
	)
}

// ProvideControlHandler exposes the operator HTTP surface.
func ProvideControlHandler(
	cfg *config.Config,
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	positions *position.Manager,
) xhttp.Handler {
	return api.NewControlHandler(l, orch, positions, cfg.Market.Symbol)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	marketFeed repository.MarketFeed,
	ledger repository.LedgerSink,
	publisher repository.RecordPublisher,
	storage repository.RecordStorage,
	bridge *internalrepo.RedisEventBridge,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, orch, marketFeed, ledger, publisher, storage, bridge, handler)
}
