package mq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// DefaultBufferSize — размер очереди событий по умолчанию.
const DefaultBufferSize = 256

// publishTimeout — таймаут публикации одного сообщения.
const publishTimeout = 5 * time.Second

type envelope struct {
	key RoutingKey
	msg *Message
}

// EventPublisher публикует события run асинхронно.
//
// Реализует scheduler.Observer, orchestrator.RunObserver и
// orchestrator.RunRecorder. Методы наблюдателя только ставят сообщение
// в буфер и не блокируют планировщик: при переполнении буфера событие
// отбрасывается. Close дожидается отправки всего буфера.
type EventPublisher struct {
	sink   Sink
	logger *slog.Logger

	mu      sync.Mutex
	runID   uuid.UUID
	closed  bool
	dropped int

	queue chan envelope
	done  chan struct{}
}

// NewEventPublisher создаёт EventPublisher и запускает горутину отправки.
func NewEventPublisher(sink Sink, bufferSize int, logger *slog.Logger) *EventPublisher {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &EventPublisher{
		sink:   sink,
		logger: logger,
		queue:  make(chan envelope, bufferSize),
		done:   make(chan struct{}),
	}

	go p.loop()

	return p
}

// loop отправляет сообщения из буфера, пока его не закроют.
func (p *EventPublisher) loop() {
	defer close(p.done)

	for env := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.sink.Publish(ctx, env.key, env.msg); err != nil {
			p.logger.Warn("failed to publish event",
				"type", env.msg.Type,
				"message_id", env.msg.ID,
				"error", err,
			)
		}
		cancel()
	}
}

// enqueue ставит сообщение в буфер без блокировки.
func (p *EventPublisher) enqueue(key RoutingKey, msgType MessageType, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	env := envelope{key: key, msg: NewMessage(msgType, p.runID, payload)}
	select {
	case p.queue <- env:
	default:
		p.dropped++
	}
}

// RunStarted запоминает run ID и публикует run.started.
func (p *EventPublisher) RunStarted(result *domain.RunResult) {
	p.mu.Lock()
	p.runID = result.RunID
	p.mu.Unlock()

	p.enqueue(RoutingKeyRunStarted, MessageTypeRunStarted, RunStartedPayload{
		Chain:   result.Chain,
		StepIDs: result.StepIDs,
	})
}

// StepStarted публикует step.started.
func (p *EventPublisher) StepStarted(step *engine.Step, at time.Time) {
	p.enqueue(RoutingKeyStepStarted, MessageTypeStepStarted, StepStartedPayload{
		StepID:    step.ID,
		DependsOn: step.DependsOn,
		StartedAt: at,
	})
}

// StepFinished публикует step.finished с Outcome шага.
func (p *EventPublisher) StepFinished(outcome domain.Outcome) {
	p.enqueue(RoutingKeyStepFinished, MessageTypeStepFinished, outcome)
}

// RecordRun публикует run.finished.
func (p *EventPublisher) RecordRun(_ context.Context, result *domain.RunResult) error {
	p.mu.Lock()
	p.runID = result.RunID
	p.mu.Unlock()

	p.enqueue(RoutingKeyRunFinished, MessageTypeRunFinished, RunFinishedPayload{
		Chain:      result.Chain,
		Status:     result.Status,
		Summary:    result.Summary(),
		BuildError: result.BuildErrorMessage,
		DurationMs: result.Duration().Milliseconds(),
	})
	return nil
}

// Close закрывает буфер и ждёт отправки оставшихся сообщений,
// но не дольше, чем живёт ctx.
func (p *EventPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	dropped := p.dropped
	p.mu.Unlock()

	if dropped > 0 {
		p.logger.Warn("events dropped: buffer full", "dropped", dropped)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
