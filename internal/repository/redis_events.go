package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"ToxicTide/internal/bus"
	applogger "ToxicTide/pkg/logger"
)

// RedisEventBridge mirrors internal bus events onto Redis pub/sub channels
// so dashboards and other processes can watch the pipeline live. Publishing
// is fire-and-forget; a Redis outage never stalls the tick loop.
type RedisEventBridge struct {
	client *redis.Client
	prefix string
	l      *applogger.Logger
}

func NewRedisEventBridge(client *redis.Client, prefix string, l *applogger.Logger) *RedisEventBridge {
	if prefix == "" {
		prefix = "toxictide"
	}
	return &RedisEventBridge{client: client, prefix: prefix, l: l}
}

// Attach subscribes the bridge to the pipeline topics worth observing
// externally.
func (b *RedisEventBridge) Attach(evbus *bus.Bus) {
	for _, topic := range []string{
		bus.TopicFeatures,
		bus.TopicStress,
		bus.TopicRegime,
		bus.TopicSignal,
		bus.TopicRisk,
		bus.TopicPlan,
		bus.TopicFill,
		bus.TopicPositions,
		bus.TopicAccount,
	} {
		topic := topic
		evbus.Subscribe(topic, func(payload any) {
			b.forward(topic, payload)
		})
	}
}

func (b *RedisEventBridge) forward(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if b.l != nil {
			b.l.Error("redis event marshal error",
				applogger.String("topic", topic),
				applogger.Error(err),
			)
		}
		return
	}
	channel := b.prefix + "." + topic
	if err := b.client.Publish(context.Background(), channel, data).Err(); err != nil {
		if b.l != nil {
			b.l.Warn("redis event publish error",
				applogger.String("channel", channel),
				applogger.Error(err),
			)
		}
	}
}

func (b *RedisEventBridge) Close() error {
	return b.client.Close()
}
