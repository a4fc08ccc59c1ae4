package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/SmartChainFlow/internal/config"
	"github.com/shaiso/SmartChainFlow/internal/mq"
	"github.com/shaiso/SmartChainFlow/internal/orchestrator"
	"github.com/shaiso/SmartChainFlow/internal/repo"
	"github.com/shaiso/SmartChainFlow/internal/scheduler"
	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

// closeTimeout — сколько ждать отправки событий и закрытия соединений.
const closeTimeout = 10 * time.Second

// sinks — получатели событий и итога run: метрики, RabbitMQ, архив.
//
// Метрики есть всегда. RabbitMQ и PostgreSQL подключаются, только если
// заданы в конфигурации; ошибка подключения логируется, run продолжается
// без этого получателя.
type sinks struct {
	logger *slog.Logger

	metrics *telemetry.Metrics
	events  *mq.EventPublisher
	conn    *mq.Connection
	pool    *pgxpool.Pool

	stopMetrics context.CancelFunc

	observers []scheduler.Observer
	recorders []orchestrator.RunRecorder
}

// openSinks подключает получателей по конфигурации.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) *sinks {
	s := &sinks{
		logger:  logger,
		metrics: telemetry.NewMetrics(),
	}
	s.observers = append(s.observers, s.metrics)
	s.recorders = append(s.recorders, s.metrics)

	if cfg.Metrics.Addr != "" {
		serveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopMetrics = cancel
		go func() {
			if err := s.metrics.Serve(serveCtx, cfg.Metrics.Addr, logger); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	if cfg.Events.AMQPURL != "" {
		s.openEvents(ctx, cfg.Events)
	}

	if cfg.History.DatabaseURL != "" {
		s.openHistory(ctx, cfg.History)
	}

	return s
}

// openEvents подключает публикацию событий в RabbitMQ.
func (s *sinks) openEvents(ctx context.Context, cfg config.EventsConfig) {
	conn, err := mq.NewConnection(cfg.AMQPURL, s.logger)
	if err != nil {
		s.logger.Warn("events disabled: cannot connect to RabbitMQ", "error", err)
		return
	}

	exchange := mq.Exchange(cfg.Exchange)
	if err := mq.SetupTopology(ctx, conn, exchange, cfg.Queue); err != nil {
		s.logger.Warn("events disabled: cannot declare topology", "error", err)
		conn.Close()
		return
	}
	s.logger.Debug("event topology ready", "topology", mq.TopologyInfo(exchange, cfg.Queue))

	s.conn = conn
	s.events = mq.NewEventPublisher(mq.NewPublisher(conn, exchange, s.logger), cfg.BufferSize, s.logger)
	s.observers = append(s.observers, s.events)
	s.recorders = append(s.recorders, s.events)
}

// openHistory подключает архив истории в PostgreSQL.
func (s *sinks) openHistory(ctx context.Context, cfg config.HistoryConfig) {
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		s.logger.Warn("history disabled: cannot connect to database", "error", err)
		return
	}

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		s.logger.Warn("history disabled", "error", err)
		pool.Close()
		return
	}

	s.pool = pool
	s.recorders = append(s.recorders, repo.NewRunRepo(pool))
}

// writeMetrics сбрасывает метрики в textfile, если путь задан.
func (s *sinks) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}

// close дожидается отправки событий и закрывает соединения.
func (s *sinks) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if s.events != nil {
		if err := s.events.Close(ctx); err != nil {
			s.logger.Warn("not all events were published", "error", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("failed to close RabbitMQ connection", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.stopMetrics != nil {
		s.stopMetrics()
	}
}
