//go:build integration

package backends

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

// createKafkaTopic creates a Kafka topic for testing
func createKafkaTopic(t *testing.T, ctx context.Context, brokers string, topicName string) {
	adminClient, err := kgo.NewClient(
		kgo.SeedBrokers(brokers),
	)
	require.NoError(t, err)
	defer adminClient.Close()

	createTopicsReq := kmsg.NewCreateTopicsRequest()
	createTopicsReq.Topics = []kmsg.CreateTopicsRequestTopic{
		{
			Topic:             topicName,
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}
	_, err = adminClient.Request(ctx, &createTopicsReq)
	require.NoError(t, err)
}

func TestRedpandaBackend_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "test",
		Level: hclog.Debug,
	})

	redpandaContainer, err := redpanda.Run(ctx,
		"docker.redpanda.com/redpandadata/redpanda:latest",
	)
	require.NoError(t, err)
	defer func() {
		_ = redpandaContainer.Terminate(ctx)
	}()

	brokers, err := redpandaContainer.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	topic := "test.recipebox-changes"
	createKafkaTopic(t, ctx, brokers, topic)

	backend, err := NewRedpandaBackend(RedpandaBackendConfig{
		Brokers: []string{brokers},
		Topic:   topic,
		Logger:  logger,
	})
	require.NoError(t, err)
	defer backend.Close()

	hub := notifications.NewHub(logger, backend)
	addr := resource.ItemAddress(resource.Recipes, 3)
	sent := hub.Notify(ctx, notifications.OperationInsert, addr, 1)

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, backend.Flush(flushCtx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, pollCancel := context.WithTimeout(ctx, 15*time.Second)
	defer pollCancel()

	var records []*kgo.Record
	for len(records) == 0 {
		fetches := consumer.PollFetches(pollCtx)
		require.NoError(t, pollCtx.Err(), "timed out waiting for change event")
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}

	require.Len(t, records, 1)
	assert.Equal(t, "content://com.hashicorp.recipebox/recipes", string(records[0].Key))

	var got notifications.ChangeEvent
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, notifications.OperationInsert, got.Operation)
	assert.Equal(t, addr, got.Address)
}
