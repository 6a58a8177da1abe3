package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces each event as a JSON record keyed by project (or user)
// id.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink returns a sink producing to topic.
func NewKafkaSink(client *kgo.Client, topic string) *KafkaSink {
	return &KafkaSink{client: client, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, events []Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   e.key(),
			Value: payload,
			Headers: []kgo.RecordHeader{
				{Key: "action", Value: []byte(e.Action)},
			},
		})
	}
	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}

// LogSink writes events as structured log lines. Used when no broker is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, e := range events {
		attrs := []any{
			"log_type", "audit",
			"action", string(e.Action),
			"timestamp", e.Timestamp,
		}
		if !e.ActorID.IsNil() {
			attrs = append(attrs, "actor_id", e.ActorID.String())
		}
		if !e.ProjectID.IsNil() {
			attrs = append(attrs, "project_id", e.ProjectID.String())
		}
		if !e.TaskID.IsNil() {
			attrs = append(attrs, "task_id", e.TaskID.String())
		}
		if !e.TargetUserID.IsNil() {
			attrs = append(attrs, "target_user_id", e.TargetUserID.String())
		}
		if e.RequestID != "" {
			attrs = append(attrs, "request_id", e.RequestID)
		}
		for k, v := range e.Attributes {
			attrs = append(attrs, k, v)
		}
		s.logger.InfoContext(ctx, "audit event", attrs...)
	}
	return nil
}

// MemorySink keeps delivered events for tests and local inspection.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
