// Package bus is a small synchronous event bus for decoupling the
// pipeline's stages from their observers. Handlers run inline on the
// publisher's goroutine, so subscribers must be cheap; a panicking
// handler is isolated and does not stop the fan-out.
package bus

import (
	"sync"

	"ToxicTide/pkg/logger"
)

// Standard topics, one per pipeline stage artifact.
const (
	TopicMarketBook   = "market.book"
	TopicMarketTrades = "market.trades"
	TopicFeatures     = "features"
	TopicOAD          = "oad"
	TopicVAD          = "vad"
	TopicStress       = "stress"
	TopicRegime       = "regime"
	TopicSignal       = "signal"
	TopicRisk         = "risk"
	TopicPlan         = "plan"
	TopicFill         = "fill"
	TopicLedger       = "ledger"
	TopicPositions    = "positions"
	TopicAccount      = "account"
)

// Handler receives one published payload.
type Handler func(payload any)

// Bus fans published events out to topic subscribers synchronously.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	published   uint64
	log         *logger.Logger
}

func New(log *logger.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
		log:         log,
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], h)
}

// Publish delivers the payload to every subscriber of the topic in
// subscription order and returns the number of handlers invoked.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	handlers := b.subscribers[topic]
	b.mu.RUnlock()

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch(topic, h, payload)
	}
	return len(handlers)
}

// Published reports the total number of publish calls.
func (b *Bus) Published() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published
}

func (b *Bus) dispatch(topic string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				logger.String("topic", topic),
				logger.Any("panic", r),
			)
		}
	}()
	h(payload)
}
