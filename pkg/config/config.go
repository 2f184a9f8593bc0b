package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"oneof=dev test prod"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		TickInterval time.Duration `yaml:"tick_interval" default:"1s" validate:"gt=0"`
	} `yaml:"engine"`
	Market struct {
		Symbol         string        `yaml:"symbol" default:"ETH-PERP" validate:"required"`
		OrderbookDepth int           `yaml:"orderbook_depth" default:"20" validate:"gte=5,lte=100"`
		TapeWindow     time.Duration `yaml:"tape_window" default:"5m" validate:"gte=1m"`
	} `yaml:"market"`
	Features struct {
		ImpactSizeUSD   float64       `yaml:"impact_size_usd" default:"1000" validate:"gt=0"`
		AggregationSpan time.Duration `yaml:"aggregation_span" default:"1m" validate:"gt=0"`
	} `yaml:"features"`
	Detectors struct {
		WindowSize int `yaml:"window_size" default:"240" validate:"gte=30,lte=5000"`
		MinSamples int `yaml:"min_samples" default:"20" validate:"gte=2"`
		OAD        struct {
			ZWarn             float64 `yaml:"z_warn" default:"4" validate:"gt=0"`
			ZDanger           float64 `yaml:"z_danger" default:"6" validate:"gt=0"`
			SpreadGrowthRatio float64 `yaml:"spread_growth_ratio" default:"3" validate:"gt=1"`
			LiquidityGapFrac  float64 `yaml:"liquidity_gap_frac" default:"0.5" validate:"gt=0,lt=1"`
		} `yaml:"oad"`
		VAD struct {
			ZWarn       float64 `yaml:"z_warn" default:"4" validate:"gt=0"`
			ZDanger     float64 `yaml:"z_danger" default:"6" validate:"gt=0"`
			ToxicWarn   float64 `yaml:"toxic_warn" default:"0.6" validate:"gte=0,lte=1"`
			ToxicDanger float64 `yaml:"toxic_danger" default:"0.75" validate:"gte=0,lte=1"`
		} `yaml:"vad"`
	} `yaml:"detectors"`
	Regime struct {
		ShortWindow  int     `yaml:"short_window" default:"10" validate:"gte=2"`
		LongWindow   int     `yaml:"long_window" default:"30" validate:"gte=5"`
		TrendBandPct float64 `yaml:"trend_band_pct" default:"0.2" validate:"gt=0"`
		VolCalm      float64 `yaml:"vol_calm" default:"0.2" validate:"gt=0"`
		VolExtreme   float64 `yaml:"vol_extreme" default:"0.5" validate:"gt=0"`
		FlowBand     float64 `yaml:"flow_band" default:"0.2" validate:"gt=0,lt=1"`
	} `yaml:"regime"`
	Strategy struct {
		Enabled         []string `yaml:"enabled" default:"[\"trend_breakout\",\"range_mean_revert\"]"`
		BaseNotionalUSD float64  `yaml:"base_notional_usd" default:"1000" validate:"gt=0"`
		TrendBreakout   struct {
			Lookback      int           `yaml:"lookback" default:"20" validate:"gte=5"`
			BreakoutPct   float64       `yaml:"breakout_pct" default:"0.1" validate:"gt=0"`
			StopPct       float64       `yaml:"stop_pct" default:"0.5" validate:"gt=0"`
			TakeProfitPct float64       `yaml:"take_profit_pct" default:"1.0" validate:"gt=0"`
			Confidence    float64       `yaml:"confidence" default:"0.7" validate:"gt=0,lte=1"`
			TTL           time.Duration `yaml:"ttl" default:"5m" validate:"gt=0"`
		} `yaml:"trend_breakout"`
		RangeMeanRevert struct {
			Lookback   int           `yaml:"lookback" default:"30" validate:"gte=5"`
			EntrySigma float64       `yaml:"entry_sigma" default:"1.5" validate:"gt=0"`
			StopPct    float64       `yaml:"stop_pct" default:"0.2" validate:"gt=0"`
			Confidence float64       `yaml:"confidence" default:"0.6" validate:"gt=0,lte=1"`
			TTL        time.Duration `yaml:"ttl" default:"10m" validate:"gt=0"`
		} `yaml:"range_mean_revert"`
	} `yaml:"strategy"`
	Risk struct {
		MaxDailyLossPct        float64       `yaml:"max_daily_loss_pct" default:"1.0" validate:"gt=0,lte=100"`
		MaxPositionNotionalUSD float64       `yaml:"max_position_notional_usd" default:"3000" validate:"gt=0"`
		MaxTradesPerHour       int           `yaml:"max_trades_per_hour" default:"6" validate:"gt=0"`
		ImpactEntryCapBps      float64       `yaml:"impact_entry_cap_bps" default:"10" validate:"gt=0"`
		ImpactHardCapBps       float64       `yaml:"impact_hard_cap_bps" default:"20" validate:"gt=0"`
		StalenessThreshold     time.Duration `yaml:"staleness_threshold" default:"10s" validate:"gt=0"`
		LossStreakLimit        int           `yaml:"loss_streak_limit" default:"3" validate:"gt=0"`
		CooldownDuration       time.Duration `yaml:"cooldown_duration" default:"5m" validate:"gt=0"`
		StressWarnFraction     float64       `yaml:"stress_warn_fraction" default:"0.5" validate:"gt=0,lte=1"`
		MaxSlippageCapBps      float64       `yaml:"max_slippage_cap_bps" default:"15" validate:"gt=0"`
	} `yaml:"risk"`
	Execution struct {
		Mode                string        `yaml:"mode" default:"paper" validate:"oneof=paper live"`
		TakerToxicThreshold float64       `yaml:"taker_toxic_threshold" default:"0.6" validate:"gte=0,lte=1"`
		SlicingThresholdBps float64       `yaml:"slicing_threshold_bps" default:"10" validate:"gt=0"`
		SliceCount          int           `yaml:"slice_count" default:"5" validate:"gt=0"`
		SliceInterval       time.Duration `yaml:"slice_interval" default:"10s" validate:"gt=0"`
		Paper               struct {
			StartingBalanceUSD float64 `yaml:"starting_balance_usd" default:"10000" validate:"gt=0"`
			MinSlippageBps     float64 `yaml:"min_slippage_bps" default:"1" validate:"gte=0"`
			MaxSlippageBps     float64 `yaml:"max_slippage_bps" default:"5" validate:"gte=0"`
			FeeBps             float64 `yaml:"fee_bps" default:"2" validate:"gte=0"`
		} `yaml:"paper"`
	} `yaml:"execution"`
	Feed struct {
		Type    string `yaml:"type" default:"sim" validate:"oneof=sim binance"`
		Binance struct {
			WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/ws"`
			Symbol         string        `yaml:"symbol" default:"ethusdt"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		} `yaml:"binance"`
		Sim struct {
			Seed       int64   `yaml:"seed" default:"42"`
			StartPrice float64 `yaml:"start_price" default:"2000" validate:"gt=0"`
			Levels     int     `yaml:"levels" default:"20" validate:"gte=5"`
		} `yaml:"sim"`
	} `yaml:"feed"`
	Ledger struct {
		Path string `yaml:"path" default:"ledger.jsonl" validate:"required"`
	} `yaml:"ledger"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"toxictide.records"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"toxictide"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel" default:"toxictide.events"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Load reads a YAML configuration file, fills defaults, and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration with every field at its default value.
func Default() (*Config, error) {
	return Parse(nil)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("TOXICTIDE_SYMBOL"); v != "" {
		c.Market.Symbol = v
	}
	if v := os.Getenv("TOXICTIDE_FEED"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("TOXICTIDE_EXECUTION_MODE"); v != "" {
		c.Execution.Mode = v
	}
	if v := os.Getenv("TOXICTIDE_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks field constraints and cross-field threshold ordering.
// Invalid orderings (a WARN threshold at or above its DANGER threshold)
// are rejected here so they can never reach the decision chain.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Detectors.OAD.ZDanger <= c.Detectors.OAD.ZWarn {
		return fmt.Errorf("detectors.oad: z_danger (%.2f) must be greater than z_warn (%.2f)",
			c.Detectors.OAD.ZDanger, c.Detectors.OAD.ZWarn)
	}
	if c.Detectors.VAD.ZDanger <= c.Detectors.VAD.ZWarn {
		return fmt.Errorf("detectors.vad: z_danger (%.2f) must be greater than z_warn (%.2f)",
			c.Detectors.VAD.ZDanger, c.Detectors.VAD.ZWarn)
	}
	if c.Detectors.VAD.ToxicDanger <= c.Detectors.VAD.ToxicWarn {
		return fmt.Errorf("detectors.vad: toxic_danger (%.2f) must be greater than toxic_warn (%.2f)",
			c.Detectors.VAD.ToxicDanger, c.Detectors.VAD.ToxicWarn)
	}
	if c.Risk.ImpactHardCapBps <= c.Risk.ImpactEntryCapBps {
		return fmt.Errorf("risk: impact_hard_cap_bps (%.2f) must be greater than impact_entry_cap_bps (%.2f)",
			c.Risk.ImpactHardCapBps, c.Risk.ImpactEntryCapBps)
	}
	if c.Regime.LongWindow <= c.Regime.ShortWindow {
		return fmt.Errorf("regime: long_window (%d) must be greater than short_window (%d)",
			c.Regime.LongWindow, c.Regime.ShortWindow)
	}
	if c.Regime.VolExtreme <= c.Regime.VolCalm {
		return fmt.Errorf("regime: vol_extreme (%.2f) must be greater than vol_calm (%.2f)",
			c.Regime.VolExtreme, c.Regime.VolCalm)
	}
	if c.Detectors.MinSamples > c.Detectors.WindowSize {
		return fmt.Errorf("detectors: min_samples (%d) cannot exceed window_size (%d)",
			c.Detectors.MinSamples, c.Detectors.WindowSize)
	}
	if c.Execution.Paper.MaxSlippageBps < c.Execution.Paper.MinSlippageBps {
		return fmt.Errorf("execution.paper: max_slippage_bps (%.2f) must be at least min_slippage_bps (%.2f)",
			c.Execution.Paper.MaxSlippageBps, c.Execution.Paper.MinSlippageBps)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers cannot be empty when enabled")
	}
	return nil
}
