package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
)

// RedpandaBackendConfig configures the Redpanda/Kafka exporter.
type RedpandaBackendConfig struct {
	Brokers []string
	Topic   string
	Logger  hclog.Logger

	// Opts are appended to the client options, mainly for tests.
	Opts []kgo.Opt
}

// RedpandaBackend exports change events to a Redpanda/Kafka topic.
// Records are keyed by collection address so events for one collection stay
// ordered within a partition.
type RedpandaBackend struct {
	client *kgo.Client
	topic  string
	logger hclog.Logger
}

// NewRedpandaBackend creates a new exporter.
func NewRedpandaBackend(cfg RedpandaBackendConfig) (*RedpandaBackend, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),

		// Wait for all in-sync replicas to acknowledge
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),

		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(10),

		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.ProducerBatchMaxBytes(1 << 20),
	}
	opts = append(opts, cfg.Opts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &RedpandaBackend{
		client: client,
		topic:  cfg.Topic,
		logger: cfg.Logger.Named("redpanda"),
	}, nil
}

// Name returns the backend identifier
func (b *RedpandaBackend) Name() string {
	return "redpanda"
}

// Handle produces the event asynchronously. Delivery failures are logged.
func (b *RedpandaBackend) Handle(ctx context.Context, event *notifications.ChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return NewBackendError(b.Name(), "encode", false,
			fmt.Errorf("failed to marshal change event: %w", err))
	}

	record := &kgo.Record{
		Topic: b.topic,
		Key:   []byte(event.PartitionKey()),
		Value: value,
	}

	// The write that produced the event has already committed, so the
	// record must outlive the caller's context.
	b.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			b.logger.Error("failed to publish change event",
				"event_id", event.ID,
				"address", event.Address.String(),
				"error", err,
			)
			return
		}
		b.logger.Trace("published change event",
			"event_id", event.ID,
			"partition", r.Partition,
			"offset", r.Offset,
		)
	})
	return nil
}

// Flush waits until every buffered record is acknowledged.
func (b *RedpandaBackend) Flush(ctx context.Context) error {
	if err := b.client.Flush(ctx); err != nil {
		return NewBackendError(b.Name(), "flush", true, err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (b *RedpandaBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := b.Flush(ctx)
	b.client.Close()
	return err
}
