package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

// BinanceConfig configures the live futures collector.
type BinanceConfig struct {
	Symbol         string // exchange symbol, e.g. ETHUSDT
	WebsocketURL   string // base URL, e.g. wss://fstream.binance.com
	Depth          int
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// BinanceCollector maintains a combined depth+trade stream and exposes the
// latest book plus the prints accumulated since the previous Snapshot call.
// The read loop owns the connection; Snapshot only copies buffered state.
type BinanceCollector struct {
	cfg BinanceConfig
	log *logger.Logger

	mu       sync.Mutex
	book     *models.MarketSnapshot
	trades   []models.Trade
	msgCount int

	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBinanceCollector(cfg BinanceConfig, log *logger.Logger) *BinanceCollector {
	if cfg.WebsocketURL == "" {
		cfg.WebsocketURL = "wss://fstream.binance.com"
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 20
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &BinanceCollector{cfg: cfg, log: log}
}

// Start connects and runs the read loop until the context ends. Reconnects
// with a fixed delay on any stream error.
func (c *BinanceCollector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	if err := c.connect(ctx); err != nil {
		cancel()
		close(c.done)
		return err
	}

	go c.run(ctx)
	return nil
}

func (c *BinanceCollector) streamURL() string {
	sym := strings.ToLower(c.cfg.Symbol)
	return fmt.Sprintf("%s/stream?streams=%s@depth%d@100ms/%s@trade",
		c.cfg.WebsocketURL, sym, c.cfg.Depth, sym)
}

func (c *BinanceCollector) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.log.Info("binance stream connected", logger.String("url", c.streamURL()))
	return nil
}

func (c *BinanceCollector) run(ctx context.Context) {
	defer close(c.done)

	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("binance read error, reconnecting",
				logger.Error(err),
				logger.Duration("delay", c.cfg.ReconnectDelay),
			)
			c.conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			if err := c.connect(ctx); err != nil {
				c.log.Error("binance reconnect failed", logger.Error(err))
				continue
			}
			continue
		}
		c.handleFrame(raw)
	}
}

type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type depthFrame struct {
	Event    string     `json:"e"`
	UpdateID uint64     `json:"u"`
	Bids     [][]string `json:"b"`
	Asks     [][]string `json:"a"`
}

type tradeFrame struct {
	Event      string `json:"e"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeTime  int64  `json:"T"`
	BuyerMaker bool   `json:"m"`
}

func (c *BinanceCollector) handleFrame(raw []byte) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame.Data) == 0 {
		return
	}

	var probe struct {
		Event string `json:"e"`
	}
	if err := json.Unmarshal(frame.Data, &probe); err != nil {
		return
	}

	c.mu.Lock()
	c.msgCount++
	c.mu.Unlock()

	switch probe.Event {
	case "depthUpdate":
		var d depthFrame
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			c.log.Warn("binance depth parse error", logger.Error(err))
			return
		}
		c.applyDepth(&d)
	case "trade":
		var t tradeFrame
		if err := json.Unmarshal(frame.Data, &t); err != nil {
			c.log.Warn("binance trade parse error", logger.Error(err))
			return
		}
		c.applyTrade(&t)
	}
}

func (c *BinanceCollector) applyDepth(d *depthFrame) {
	bids := parseLevels(d.Bids)
	asks := parseLevels(d.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if len(bids) > c.cfg.Depth {
		bids = bids[:c.cfg.Depth]
	}
	if len(asks) > c.cfg.Depth {
		asks = asks[:c.cfg.Depth]
	}

	c.mu.Lock()
	c.book = &models.MarketSnapshot{
		Timestamp: time.Now().UTC(),
		Symbol:    c.cfg.Symbol,
		Seq:       d.UpdateID,
		Bids:      bids,
		Asks:      asks,
	}
	c.mu.Unlock()
}

func (c *BinanceCollector) applyTrade(t *tradeFrame) {
	price, err1 := strconv.ParseFloat(t.Price, 64)
	size, err2 := strconv.ParseFloat(t.Quantity, 64)
	if err1 != nil || err2 != nil || price <= 0 || size <= 0 {
		return
	}
	// m=true means the buyer was the maker, so the aggressor sold.
	side := models.SideBuy
	if t.BuyerMaker {
		side = models.SideSell
	}
	trade := models.Trade{
		Timestamp: time.UnixMilli(t.TradeTime).UTC(),
		Price:     price,
		Size:      size,
		Side:      side,
	}

	c.mu.Lock()
	c.trades = append(c.trades, trade)
	c.mu.Unlock()
}

// Snapshot returns the latest book plus the trades buffered since the
// previous call. Returns an error until the first depth frame arrives.
func (c *BinanceCollector) Snapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.book == nil {
		return nil, fmt.Errorf("binance: no depth received yet")
	}

	snap := *c.book
	snap.Trades = c.trades
	snap.MsgCount = c.msgCount
	c.trades = nil
	c.msgCount = 0
	return &snap, nil
}

func (c *BinanceCollector) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	if c.done != nil {
		<-c.done
	}
	return err
}

func parseLevels(raw [][]string) []models.BookLevel {
	out := make([]models.BookLevel, 0, len(raw))
	for _, lv := range raw {
		if len(lv) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(lv[0], 64)
		size, err2 := strconv.ParseFloat(lv[1], 64)
		if err1 != nil || err2 != nil || price <= 0 || size <= 0 {
			continue
		}
		out = append(out, models.BookLevel{Price: price, Size: size})
	}
	return out
}
