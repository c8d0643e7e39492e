package producer

import (
	"context"
	"fmt"

	confluent "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer is the thin surface the outbox dispatcher needs from Kafka.
type Producer interface {
	Produce(message *confluent.Message, deliveryChan chan confluent.Event) error
	Close()
}

type producer struct {
	producer *confluent.Producer
	log      *zap.Logger
}

func newProducer(conf Config, log *zap.Logger) (*producer, error) {
	p, err := confluent.NewProducer(&confluent.ConfigMap{
		"bootstrap.servers":  conf.Brokers,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &producer{producer: p, log: log}, nil
}

// waitForBrokers blocks until metadata can be fetched, so readiness is not
// reported with an unreachable cluster.
func (p *producer) waitForBrokers(ctx context.Context, conf Config) error {
	ctx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()

	timeoutMs := int(conf.ConnectTimeout.Milliseconds())
	done := make(chan error, 1)
	go func() {
		_, err := p.producer.GetMetadata(nil, true, timeoutMs)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("kafka brokers unreachable: %w", err)
		}
		p.log.Info("connected to kafka", zap.String("brokers", conf.Brokers))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka brokers unreachable: %w", ctx.Err())
	}
}

func (p *producer) Produce(message *confluent.Message, deliveryChan chan confluent.Event) error {
	if err := p.producer.Produce(message, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", message.TopicPartition, err)
	}
	return nil
}

func (p *producer) Close() {
	p.producer.Close()
}
