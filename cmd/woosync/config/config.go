package config

import "time"

// Config holds application configuration.
type Config struct {
	DatabaseURL string        `env:"DATABASE_URL"`
	ListenAddr  string        `env:"LISTEN_ADDR" envDefault:":8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	Shop     Shop
	RabbitMQ RabbitMQ
	SMTP     SMTP
}

// Shop holds WooCommerce shop credentials.
type Shop struct {
	URL            string `env:"SHOP_URL"`
	ConsumerKey    string `env:"SHOP_CONSUMER_KEY"`
	ConsumerSecret string `env:"SHOP_CONSUMER_SECRET"`
}

// RabbitMQ holds RabbitMQ configuration.
type RabbitMQ struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"woosync-ex"`
	Queue    string `env:"RABBITMQ_QUEUE" envDefault:"woosync.commands"`
}

// SMTP holds outbound mail configuration for notifications.
type SMTP struct {
	Addr     string `env:"SMTP_ADDR"`
	From     string `env:"SMTP_FROM"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}
