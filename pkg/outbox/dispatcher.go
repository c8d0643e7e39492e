package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/messaging/producer"
	confluent "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	confirmBatchSize  = 100
	confirmFlushEvery = 2 * time.Second
	idleSleep         = 2 * time.Second
	errorSleep        = 5 * time.Second
)

// Dispatcher drains the outbox: it claims pending entities, produces them to
// Kafka, and marks them sent once delivery is confirmed. A delivery whose
// confirmation is lost is re-claimed after the lock expires and sent again,
// so consumers must tolerate duplicates.
type Dispatcher struct {
	store    Store
	producer producer.Producer
	limiter  *rate.Limiter
	log      *zap.Logger

	deliveryChan chan confluent.Event
	wg           sync.WaitGroup
}

func NewDispatcher(store Store, p producer.Producer, conf Config, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:        store,
		producer:     p,
		limiter:      rate.NewLimiter(rate.Limit(conf.DispatchRate), conf.DispatchBurst),
		log:          log.With(zap.String("component", "outbox-dispatcher")),
		deliveryChan: make(chan confluent.Event, 1000),
	}
}

// Run drives the fetch/send loop until ctx is canceled. Confirmation
// handling runs in its own goroutine so slow Mongo updates never stall
// production.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.wg.Add(1)
	go d.confirmLoop(ctx)

	for {
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}

		entity, err := d.store.FetchAndLock(ctx)
		if errors.Is(err, errEntityNotFound) {
			d.sleep(ctx, idleSleep)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			d.log.Error("failed to fetch outbox entity", zap.Error(err))
			d.sleep(ctx, errorSleep)
			continue
		}

		if err := d.send(entity); err != nil {
			d.log.Error("failed to produce outbox entity",
				zap.String("id", entity.ID.Hex()), zap.Error(err))
		}
	}

	d.wg.Wait()
	return nil
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(dur):
	}
}

func (d *Dispatcher) send(entity outboxEntity) error {
	return d.producer.Produce(&confluent.Message{
		TopicPartition: confluent.TopicPartition{Topic: &entity.Topic, Partition: confluent.PartitionAny},
		Key:            []byte(entity.Key),
		Value:          []byte(entity.Payload),
		Opaque:         entity.ID,
	}, d.deliveryChan)
}

// confirmLoop batches delivery reports and marks them sent in one update.
func (d *Dispatcher) confirmLoop(ctx context.Context) {
	defer d.wg.Done()

	batch := make([]confluent.Event, 0, confirmBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		d.confirm(batch)
		batch = batch[:0]
	}

	ticker := time.NewTicker(confirmFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case ev := <-d.deliveryChan:
			batch = append(batch, ev)
			if len(batch) == confirmBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *Dispatcher) confirm(events []confluent.Event) {
	ids := make([]primitive.ObjectID, 0, len(events))
	for _, ev := range events {
		msg, ok := ev.(*confluent.Message)
		if !ok {
			d.log.Warn("skipping confirmation of unexpected event type",
				zap.String("got", fmt.Sprintf("%T", ev)))
			continue
		}
		if msg.TopicPartition.Error != nil {
			// Leave the row pending, the lock expiry will retry it.
			d.log.Warn("delivery failed, leaving entity for retry",
				zap.Error(msg.TopicPartition.Error),
				zap.Any("opaque", msg.Opaque))
			continue
		}
		id, ok := msg.Opaque.(primitive.ObjectID)
		if !ok {
			d.log.Warn("skipping confirmation without entity id",
				zap.String("opaque", fmt.Sprintf("%#v", msg.Opaque)))
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return
	}

	// Detached context: confirmations must still land during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.store.MarkSentByIDs(ctx, ids); err != nil {
		d.log.Error("failed to mark outbox entities as sent", zap.Error(err))
	}
}
