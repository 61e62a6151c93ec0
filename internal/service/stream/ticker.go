package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

// DefaultURL is the Binance BTC/USDT trade stream.
const DefaultURL = "wss://stream.binance.com:9443/ws/btcusdt@trade"

// Option configures Ticker.
type Option func(*Ticker)

// WithURL overrides the stream endpoint.
func WithURL(u string) Option {
	return func(t *Ticker) {
		if u != "" {
			t.url = u
		}
	}
}

// WithReconnect sets the reconnect backoff range.
func WithReconnect(min, max time.Duration) Option {
	return func(t *Ticker) {
		if min > 0 {
			t.reconnectMin = min
		}
		if max >= min {
			t.reconnectMax = max
		}
	}
}

// WithPingInterval sets how often a ping frame is written.
func WithPingInterval(d time.Duration) Option {
	return func(t *Ticker) {
		if d > 0 {
			t.pingInterval = d
		}
	}
}

// Ticker keeps the last traded price from a websocket trade stream.
type Ticker struct {
	url          string
	reconnectMin time.Duration
	reconnectMax time.Duration
	pingInterval time.Duration
	dialer       *websocket.Dialer
	log          *logger.Logger

	mu    sync.RWMutex
	price float64
	at    time.Time
	conn  *websocket.Conn
}

// New creates a Ticker. Run must be called to connect.
func New(log *logger.Logger, opts ...Option) *Ticker {
	t := &Ticker{
		url:          DefaultURL,
		reconnectMin: time.Second,
		reconnectMax: time.Minute,
		pingInterval: 30 * time.Second,
		dialer:       websocket.DefaultDialer,
		log:          log.With(logger.String("component", "price_stream")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Last returns the most recent trade price and its exchange timestamp.
func (t *Ticker) Last() (float64, time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.price, t.at, t.price > 0
}

// Connected reports whether a stream connection is open.
func (t *Ticker) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil
}

// Run connects and reads until ctx is cancelled, reconnecting with backoff.
func (t *Ticker) Run(ctx context.Context) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.reconnectMin
	eb.MaxInterval = t.reconnectMax
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(eb, ctx)

	for {
		connected, err := t.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			policy.Reset()
		}
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		t.log.Warn("price stream disconnected", logger.Error(err), logger.Duration("retry_in_ms", wait))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (t *Ticker) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", t.url, err)
	}
	t.setConn(conn)
	defer t.setConn(nil)
	t.log.Info("price stream connected", logger.String("url", t.url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(t.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// unblocks ReadMessage
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					t.log.Debug("price stream ping", logger.Error(err))
				}
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		price, at, ok := parseTrade(b)
		if !ok {
			continue
		}
		t.mu.Lock()
		t.price, t.at = price, at
		t.mu.Unlock()
	}
}

func (t *Ticker) setConn(c *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c == nil && t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = c
}

type tradeFrame struct {
	Event     string `json:"e"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// parseTrade decodes a trade frame. Non-trade frames are skipped.
func parseTrade(b []byte) (float64, time.Time, bool) {
	var f tradeFrame
	if err := json.Unmarshal(b, &f); err != nil || f.Event != "trade" {
		return 0, time.Time{}, false
	}
	p, err := strconv.ParseFloat(f.Price, 64)
	if err != nil || p <= 0 {
		return 0, time.Time{}, false
	}
	return p, time.UnixMilli(f.TradeTime).UTC(), true
}
