package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// memorySink запоминает опубликованные сообщения.
type memorySink struct {
	mu    sync.Mutex
	keys  []RoutingKey
	msgs  []*Message
	block chan struct{}
	err   error
}

func (s *memorySink) Publish(_ context.Context, key RoutingKey, msg *Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestEventPublisher_PublishesRunLifecycle(t *testing.T) {
	sink := &memorySink{}
	p := NewEventPublisher(sink, 16, nil)

	runID := uuid.New()
	now := time.Now()
	p.RunStarted(&domain.RunResult{RunID: runID, Chain: "ci", StepIDs: []string{"build"}})
	p.StepStarted(engine.NewStep("build", nil), now)
	p.StepFinished(domain.Outcome{StepID: "build", State: domain.StepStateSucceeded, StartedAt: &now, FinishedAt: &now})
	require.NoError(t, p.RecordRun(context.Background(), &domain.RunResult{
		RunID:      runID,
		Chain:      "ci",
		Status:     domain.RunStatusSuccess,
		StepIDs:    []string{"build"},
		StartedAt:  now,
		FinishedAt: now.Add(1500 * time.Millisecond),
	}))

	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, []RoutingKey{
		RoutingKeyRunStarted, RoutingKeyStepStarted, RoutingKeyStepFinished, RoutingKeyRunFinished,
	}, sink.keys)

	ids := map[string]bool{}
	for _, msg := range sink.msgs {
		assert.Equal(t, runID, msg.RunID)
		assert.False(t, ids[msg.ID], "message IDs are unique")
		ids[msg.ID] = true
	}

	finished, ok := sink.msgs[3].Payload.(RunFinishedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.RunStatusSuccess, finished.Status)
	assert.Equal(t, int64(1500), finished.DurationMs)
}

func TestEventPublisher_DropsWhenBufferFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	p := NewEventPublisher(sink, 1, nil)

	for range 10 {
		p.StepFinished(domain.NewSkippedOutcome("x", domain.ErrorKindFailFast, "stop"))
	}

	close(sink.block)
	require.NoError(t, p.Close(context.Background()))

	assert.Less(t, len(sink.msgs), 10)
	assert.NotEmpty(t, sink.msgs)
}

func TestEventPublisher_SinkErrorDoesNotStopLoop(t *testing.T) {
	sink := &memorySink{err: errors.New("broker down")}
	p := NewEventPublisher(sink, 4, nil)

	p.StepFinished(domain.NewSkippedOutcome("a", domain.ErrorKindFailFast, "stop"))
	p.StepFinished(domain.NewSkippedOutcome("b", domain.ErrorKindFailFast, "stop"))
	require.NoError(t, p.Close(context.Background()))

	assert.Len(t, sink.msgs, 2)
}

func TestEventPublisher_CloseIsIdempotent(t *testing.T) {
	p := NewEventPublisher(&memorySink{}, 0, nil)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	p.StepFinished(domain.NewSkippedOutcome("late", domain.ErrorKindCancelled, "run cancelled"))
}

func TestEventPublisher_CloseHonoursContext(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	defer close(sink.block)

	p := NewEventPublisher(sink, 4, nil)
	p.StepFinished(domain.NewSkippedOutcome("a", domain.ErrorKindFailFast, "stop"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}

func TestMessage_JSON(t *testing.T) {
	runID := uuid.New()
	msg := NewMessage(MessageTypeStepFinished, runID, domain.NewSkippedOutcome("deploy", domain.ErrorKindUpstreamFailed, "dependency build failed"))

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "step.finished", decoded["type"])
	assert.Equal(t, runID.String(), decoded["run_id"])

	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "SKIPPED", payload["state"])
	assert.Equal(t, "UPSTREAM_FAILED", payload["error"].(map[string]any)["kind"])
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo(DefaultExchange, "smartchainflow.audit")
	assert.Contains(t, info, "smartchainflow.events (topic)")
	assert.Contains(t, info, "smartchainflow.audit [routing: #]")
	assert.NotContains(t, TopologyInfo(DefaultExchange, ""), "└──")
}

func TestConnection_StoreAfterCloseIsRejected(t *testing.T) {
	c := &Connection{closedCh: make(chan struct{}), logger: slog.New(slog.DiscardHandler)}

	assert.True(t, c.store(nil, nil))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// Подключение, завершившееся после Close, не должно оживить Connection.
	assert.False(t, c.store(&amqp.Connection{}, &amqp.Channel{}))
	assert.Nil(t, c.conn)
	assert.Nil(t, c.channel)
	assert.False(t, c.reconnect(), "reconnect stops once closed")

	err := c.WithChannel(context.Background(), func(*amqp.Channel) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)
}
