// Package config загружает настройки SmartChainFlow через Viper.
//
// Приоритет (от высшего к низшему):
//  1. Флаги командной строки (если флаг явно задан)
//  2. Переменные окружения с префиксом SMARTCHAINFLOW_ ("log.level" → SMARTCHAINFLOW_LOG_LEVEL)
//  3. Конфигурационный файл: --config, SMARTCHAINFLOW_CONFIG или ./smartchainflow.yaml
//  4. [Default]
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig — недопустимое значение настройки.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config — настройки запуска.
type Config struct {
	// Concurrency — максимум одновременно выполняемых шагов. По умолчанию 1.
	Concurrency int `mapstructure:"concurrency"`

	// FailFast — не запускать новые шаги после первой ошибки.
	FailFast bool `mapstructure:"fail_fast"`

	// StepTimeout — таймаут шага по умолчанию. 0 — без ограничения.
	StepTimeout time.Duration `mapstructure:"step_timeout"`

	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Events  EventsConfig  `mapstructure:"events"`
	History HistoryConfig `mapstructure:"history"`
}

// LogConfig — настройки логирования.
type LogConfig struct {
	// Level — DEBUG, INFO, WARN или ERROR.
	Level string `mapstructure:"level"`

	// Format — "text" или "json".
	Format string `mapstructure:"format"`
}

// MetricsConfig — настройки Prometheus метрик.
type MetricsConfig struct {
	// File — путь textfile для node-exporter. Пусто — не писать.
	File string `mapstructure:"file"`

	// Addr — адрес /metrics на время run (например ":9090"). Пусто — не слушать.
	Addr string `mapstructure:"addr"`
}

// EventsConfig — публикация событий в RabbitMQ.
type EventsConfig struct {
	// AMQPURL — адрес брокера. Пусто — события не публикуются.
	AMQPURL string `mapstructure:"amqp_url"`

	// Exchange — topic exchange для событий.
	Exchange string `mapstructure:"exchange"`

	// Queue — durable очередь, привязанная ко всем событиям. Пусто — не объявлять.
	Queue string `mapstructure:"queue"`

	// BufferSize — размер буфера асинхронной публикации.
	BufferSize int `mapstructure:"buffer_size"`
}

// HistoryConfig — архив истории run в PostgreSQL.
type HistoryConfig struct {
	// DatabaseURL — DSN PostgreSQL. Пусто — архив выключен.
	DatabaseURL string `mapstructure:"database_url"`
}

// Default возвращает настройки по умолчанию.
func Default() *Config {
	return &Config{
		Concurrency: 1,
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Events: EventsConfig{
			Exchange:   "smartchainflow.events",
			BufferSize: 256,
		},
	}
}

// Validate проверяет значения настроек.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.StepTimeout < 0 {
		return fmt.Errorf("%w: step_timeout must not be negative, got %s", ErrInvalidConfig, c.StepTimeout)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("%w: events.buffer_size must not be negative", ErrInvalidConfig)
	}
	return nil
}
