package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/usopp-send/rpc-race/internal/config"
	"github.com/usopp-send/rpc-race/internal/race"
)

// KafkaReporter publishes the finished-race view to a topic, keyed by
// run id so replays of the same run land in one partition.
type KafkaReporter struct {
	topic string
	sp    sarama.SyncProducer
}

func NewKafkaReporter(brokersCSV, topic string) (*KafkaReporter, error) {
	if topic == "" {
		return nil, errors.New("topic empty")
	}
	brokers := config.SplitCSV(brokersCSV)
	if len(brokers) == 0 {
		return nil, errors.New("no brokers")
	}

	cfg := sarama.NewConfig()

	// Reliability-oriented defaults
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 10
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond

	// SyncProducer must have Return.Successes=true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	cfg.Version = sarama.V2_1_0_0

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaReporter{topic: topic, sp: sp}, nil
}

func (k *KafkaReporter) Close() error {
	if k.sp != nil {
		return k.sp.Close()
	}
	return nil
}

// Report sends the result and waits for broker ACK (sync).
func (k *KafkaReporter) Report(ctx context.Context, res race.Result) error {
	payload, err := json.Marshal(View(res))
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(res.RunID),
		Value: sarama.ByteEncoder(payload),
	}

	// sarama SyncProducer doesn't accept context directly; check ctx
	// before and after the blocking send.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, _, err = k.sp.SendMessage(msg); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}
