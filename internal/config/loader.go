package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix — префикс переменных окружения.
	EnvPrefix = "SMARTCHAINFLOW"

	// ConfigPathEnv — переменная окружения с путём к конфигурационному файлу.
	ConfigPathEnv = "SMARTCHAINFLOW_CONFIG"

	// DefaultConfigFile — файл, который читается, если путь не задан.
	DefaultConfigFile = "smartchainflow.yaml"
)

// Loader загружает Config из файла, окружения и флагов.
type Loader struct {
	v *viper.Viper
}

// NewLoader создаёт Loader с настройками по умолчанию.
func NewLoader() *Loader {
	v := viper.New()

	def := Default()
	v.SetDefault("concurrency", def.Concurrency)
	v.SetDefault("fail_fast", def.FailFast)
	v.SetDefault("step_timeout", def.StepTimeout)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("metrics.file", def.Metrics.File)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("events.amqp_url", def.Events.AMQPURL)
	v.SetDefault("events.exchange", def.Events.Exchange)
	v.SetDefault("events.queue", def.Events.Queue)
	v.SetDefault("events.buffer_size", def.Events.BufferSize)
	v.SetDefault("history.database_url", def.History.DatabaseURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Viper возвращает экземпляр viper (для BindPFlag).
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load читает конфигурационный файл и возвращает итоговый Config.
//
// path — явный путь (--config). Если пуст, используется SMARTCHAINFLOW_CONFIG,
// затем ./smartchainflow.yaml. Явно заданный файл обязан существовать;
// отсутствие файла по умолчанию не ошибка.
func (l *Loader) Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path = DefaultConfigFile
		explicit = false
	}

	if err := l.readFile(path, explicit); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readFile читает файл в viper.
func (l *Loader) readFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
