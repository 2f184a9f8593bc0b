package repository

import (
	"context"
	"strconv"

	"ToxicTide/internal/domain/models"
	pkgkafka "ToxicTide/pkg/kafka"
	applogger "ToxicTide/pkg/logger"
)

// KafkaRecordPublisher implements RecordPublisher on a Kafka topic. Records
// are keyed by sequence number so a partitioned topic still preserves
// per-key ordering.
type KafkaRecordPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaRecordPublisher(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaRecordPublisher {
	return &KafkaRecordPublisher{producer: producer, topic: topic, l: l}
}

// Publish forwards one ledger record. Errors are returned to the caller;
// the pipeline treats the ledger file as the source of truth and publish
// failures as degraded, not fatal.
func (p *KafkaRecordPublisher) Publish(ctx context.Context, record *models.LedgerRecord) error {
	key := []byte(strconv.FormatUint(record.Seq, 10))
	if err := p.producer.Publish(ctx, p.topic, key, record); err != nil {
		if p.l != nil {
			p.l.Error("kafka record publish error",
				applogger.String("topic", p.topic),
				applogger.Int64("seq", int64(record.Seq)),
				applogger.Error(err),
			)
		}
		return err
	}
	return nil
}

func (p *KafkaRecordPublisher) Close() error {
	return p.producer.Close()
}
