//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"taskhub/internal/platform/config"
	"taskhub/internal/platform/kafka"
	id "taskhub/pkg/domain"
	"taskhub/pkg/testutil/containers"
)

func TestKafkaSinkProducesJSON(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "taskhub.audit.sink-it"
	producer, err := kafka.New(ctx, config.KafkaConfig{Brokers: []string{broker.Broker}, AuditTopic: topic})
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1))

	project := id.NewProjectID()
	sink := NewKafkaSink(producer, topic)
	require.NoError(t, sink.Write(ctx, []Event{{
		Timestamp: time.Now().UTC(),
		Action:    ActionProjectCreated,
		ProjectID: project,
	}}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, ActionProjectCreated, got.Action)
	assert.Equal(t, project, got.ProjectID)
	assert.Equal(t, []byte(project.String()), records[0].Key)
}
