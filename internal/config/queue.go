package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultQueueExchange       = "pool-ledger.events"
	defaultQueuePublishTimeout = 5 * time.Second
)

// QueueConfig points the outbox relay at a RabbitMQ broker.
type QueueConfig struct {
	Url            string        `mapstructure:"url"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Exchange       string        `mapstructure:"exchange"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return fmt.Errorf("missing queue url")
	}
	if cfg.User == "" {
		return fmt.Errorf("missing queue user")
	}
	if cfg.Password == "" {
		return fmt.Errorf("missing queue password")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = defaultQueueExchange
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultQueuePublishTimeout
	}
	return nil
}

// AmqpURI builds the broker uri, Url is "host:port" without scheme.
func (cfg *QueueConfig) AmqpURI() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Url,
	}
	return u.String()
}
