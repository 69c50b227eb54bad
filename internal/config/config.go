// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	ValKey     ValKey     `yaml:"valkey"`
	Catalog    Catalog    `yaml:"catalog"`
	Telegram   Telegram   `yaml:"telegram"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"storefront"`
	// SessionTTL expires idle conversations. Zero keeps them forever.
	SessionTTL time.Duration `yaml:"sessionTTL" default:"720h"`
	// DisableCache turns off client side caching for servers without CLIENT TRACKING.
	DisableCache bool `yaml:"disableCache"`
}

// Catalog configures the Strapi content API holding products and carts.
type Catalog struct {
	BaseURL         string              `yaml:"baseURL" default:"http://localhost:1337/"`
	Token           commoncfg.SourceRef `yaml:"token"`
	Timeout         time.Duration       `yaml:"timeout" default:"10s"`
	ProductCacheTTL time.Duration       `yaml:"productCacheTTL" default:"1m"`
	PictureCacheTTL time.Duration       `yaml:"pictureCacheTTL" default:"1h"`
	Breaker         Breaker             `yaml:"breaker"`
}

type Breaker struct {
	// MaxRequests is the number of trial requests while half-open.
	MaxRequests uint32 `yaml:"maxRequests" default:"1"`
	// Interval resets the failure counts while closed. Zero never resets them.
	Interval time.Duration `yaml:"interval" default:"1m"`
	// Timeout is how long the breaker stays open.
	Timeout time.Duration `yaml:"timeout" default:"30s"`
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32 `yaml:"consecutiveFailures" default:"5"`
}

type Telegram struct {
	Token commoncfg.SourceRef `yaml:"token"`
	// APIEndpoint is the Bot API endpoint format, with placeholders for the token and the method.
	APIEndpoint string        `yaml:"apiEndpoint" default:"https://api.telegram.org/bot%s/%s"`
	PollTimeout time.Duration `yaml:"pollTimeout" default:"30s"`
	// SendRate limits outgoing messages per second across all chats.
	SendRate  float64 `yaml:"sendRate" default:"25"`
	SendBurst int     `yaml:"sendBurst" default:"5"`
	Debug     bool    `yaml:"debug" default:"false"`
}

// Dispatcher configures per user event serialization. Events of one user always
// run on the same shard, in arrival order.
type Dispatcher struct {
	Shards    int `yaml:"shards" default:"16"`
	QueueSize int `yaml:"queueSize" default:"64"`
}
