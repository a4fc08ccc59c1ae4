package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrNotConnected — канал недоступен (соединение потеряно или закрыто).
	ErrNotConnected = errors.New("amqp channel not available")

	// ErrConnectionClosed — Close вызван раньше, чем завершилось подключение.
	ErrConnectionClosed = errors.New("amqp connection closed")
)

// maxReconnectDelay — верхняя граница задержки между попытками reconnect.
const maxReconnectDelay = 30 * time.Second

// Connection — обёртка над AMQP соединением с автоматическим reconnect.
//
// Пока соединение восстанавливается, WithChannel возвращает
// ErrNotConnected: события run в это время теряются, но run продолжается.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}
}

// NewConnection устанавливает соединение с RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:      url,
		logger:   logger,
		closedCh: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watchConnection()

	return c, nil
}

// connect устанавливает соединение и открывает канал.
func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if !c.store(conn, ch) {
		conn.Close()
		return ErrConnectionClosed
	}

	c.logger.Debug("connected to RabbitMQ")

	return nil
}

// store сохраняет соединение и канал. Возвращает false, если Close
// уже вызван: тогда вызывающий сам закрывает conn.
func (c *Connection) store(conn *amqp.Connection, ch *amqp.Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.conn = conn
	c.channel = ch
	return true
}

// dropChannel забывает текущий канал: до восстановления WithChannel
// возвращает ErrNotConnected.
func (c *Connection) dropChannel() {
	c.mu.Lock()
	c.channel = nil
	c.mu.Unlock()
}

// watchConnection следит за соединением и каналом.
// Закрытый брокером канал открывается заново на том же соединении,
// потерянное соединение восстанавливается целиком.
func (c *Connection) watchConnection() {
	for {
		c.mu.RLock()
		conn, ch := c.conn, c.channel
		c.mu.RUnlock()

		connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
		chanClose := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return

		case err := <-chanClose:
			if err != nil {
				c.logger.Warn("amqp channel closed", "error", err)
			}
			c.dropChannel()

			if c.reopenChannel(conn) {
				continue
			}
			if !c.reconnect() {
				return
			}

		case err := <-connClose:
			if err != nil {
				c.logger.Warn("amqp connection lost", "error", err)
			}
			c.dropChannel()

			if !c.reconnect() {
				return
			}
		}
	}
}

// reopenChannel открывает новый канал на живом соединении.
// Возвращает false, если соединение тоже потеряно или Close уже вызван.
func (c *Connection) reopenChannel(conn *amqp.Connection) bool {
	delay := time.Second

	for !conn.IsClosed() {
		ch, err := conn.Channel()
		if err == nil {
			if !c.store(conn, ch) {
				ch.Close()
				return false
			}
			c.logger.Info("amqp channel reopened")
			return true
		}

		c.logger.Warn("reopen channel failed", "error", err)

		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}

	return false
}

// reconnect пытается переподключиться с экспоненциальной задержкой.
// Возвращает false, если соединение закрыли во время ожидания.
func (c *Connection) reconnect() bool {
	delay := time.Second

	for {
		c.logger.Info("attempting to reconnect", "delay", delay)

		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}

		err := c.connect()
		if errors.Is(err, ErrConnectionClosed) {
			return false
		}
		if err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")
		return true
	}
}

// WithChannel выполняет функцию с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil {
		return ErrNotConnected
	}

	return fn(ch)
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.closedCh)

	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
