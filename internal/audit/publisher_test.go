package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "taskhub/pkg/domain"
	"taskhub/pkg/requestcontext"
)

type failingSink struct {
	calls int
}

func (s *failingSink) Write(context.Context, []Event) error {
	s.calls++
	return errors.New("broker unavailable")
}

type PublisherSuite struct {
	suite.Suite
	sink    *MemorySink
	metrics *Metrics
	pub     *Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.sink = NewMemorySink()
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.pub = NewPublisher(s.sink,
		WithMetrics(s.metrics),
		WithBatchSize(2),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
}

func (s *PublisherSuite) TestEmitEnrichesFromContext() {
	actor := id.NewUserID()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActor(context.Background(), id.Actor{UserID: actor})
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl/8", "curl")

	s.Require().NoError(s.pub.Emit(ctx, Event{Action: ActionProjectCreated}))
	s.pub.Flush(context.Background())

	events := s.sink.Events()
	s.Require().Len(events, 1)
	e := events[0]
	s.Equal(actor, e.ActorID)
	s.Equal("req-1", e.RequestID)
	s.Equal(now, e.Timestamp)
	s.Equal("10.0.0.1", e.ClientIP)
	s.Equal("curl", e.Device)
}

func (s *PublisherSuite) TestEmitKeepsExplicitFields() {
	explicit := id.NewUserID()
	ctx := requestcontext.WithActor(context.Background(), id.Actor{UserID: id.NewUserID()})

	s.Require().NoError(s.pub.Emit(ctx, Event{Action: ActionUserDeleted, ActorID: explicit}))
	s.pub.Flush(context.Background())

	s.Equal(explicit, s.sink.Events()[0].ActorID)
}

func (s *PublisherSuite) TestFlushDeliversInBatches() {
	ctx := context.Background()
	for range 5 {
		s.Require().NoError(s.pub.Emit(ctx, Event{Action: ActionTaskCreated}))
	}
	s.pub.Flush(ctx)

	s.Len(s.sink.Events(), 5)
	s.Zero(s.pub.Pending())
	s.Equal(float64(5), testutil.ToFloat64(s.metrics.Delivered))
	s.Equal(float64(5), testutil.ToFloat64(s.metrics.Emitted))
}

func (s *PublisherSuite) TestFailedBatchIsDiscarded() {
	sink := &failingSink{}
	pub := NewPublisher(sink, WithMetrics(s.metrics), WithBatchSize(2),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	ctx := context.Background()
	for range 3 {
		s.Require().NoError(pub.Emit(ctx, Event{Action: ActionTaskDeleted}))
	}

	pub.Flush(ctx)

	s.Equal(2, sink.calls)
	s.Zero(pub.Pending())
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.SinkFailures))
}

func (s *PublisherSuite) TestOverflowCountsDrops() {
	pub := NewPublisher(s.sink, WithMetrics(s.metrics), WithBufferSize(1),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	ctx := context.Background()
	s.Require().NoError(pub.Emit(ctx, Event{Action: ActionTaskCreated}))
	s.Require().NoError(pub.Emit(ctx, Event{Action: ActionTaskDeleted}))

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Dropped))
	pub.Flush(ctx)
	s.Require().Len(s.sink.Events(), 1)
	s.Equal(ActionTaskDeleted, s.sink.Events()[0].Action)
}

func TestRunFlushesOnShutdown(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, WithFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionCommentAdded}))
	require.Eventually(t, func() bool { return len(sink.Events()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop")
	}
	// events emitted after shutdown are held but not delivered
	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionCommentAdded}))
	assert.Equal(t, 1, pub.Pending())
}

func TestLogSinkWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	project := id.NewProjectID()

	err := sink.Write(context.Background(), []Event{{
		Action:     ActionProjectDeleted,
		ProjectID:  project,
		Attributes: map[string]string{"name": "apollo"},
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"log_type":"audit"`)
	assert.Contains(t, out, `"action":"project_deleted"`)
	assert.Contains(t, out, project.String())
	assert.Contains(t, out, `"name":"apollo"`)
}

func TestEventKey(t *testing.T) {
	project := id.NewProjectID()
	user := id.NewUserID()
	assert.Equal(t, []byte(project.String()), Event{ProjectID: project, TargetUserID: user}.key())
	assert.Equal(t, []byte(user.String()), Event{TargetUserID: user}.key())
	assert.Nil(t, Event{}.key())
}
