package config

import (
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// ValKeyClientOption resolves the valkey secrets into client options.
func ValKeyClientOption(conf ValKey) (valkey.ClientOption, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey password: %w", err)
	}

	return valkey.ClientOption{
		InitAddress:  []string{strings.TrimSpace(string(host))},
		Username:     strings.TrimSpace(string(user)),
		Password:     string(password),
		DisableCache: conf.DisableCache,
	}, nil
}

func CatalogToken(conf Catalog) (string, error) {
	token, err := commoncfg.LoadValueFromSourceRef(conf.Token)
	if err != nil {
		return "", fmt.Errorf("loading catalog token: %w", err)
	}

	return strings.TrimSpace(string(token)), nil
}

func TelegramToken(conf Telegram) (string, error) {
	token, err := commoncfg.LoadValueFromSourceRef(conf.Token)
	if err != nil {
		return "", fmt.Errorf("loading telegram token: %w", err)
	}

	t := strings.TrimSpace(string(token))
	if t == "" {
		return "", fmt.Errorf("telegram token is empty")
	}

	return t, nil
}

// BreakerSettings converts the breaker config for the named breaker.
func BreakerSettings(name string, conf Breaker) gobreaker.Settings {
	threshold := conf.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: conf.MaxRequests,
		Interval:    conf.Interval,
		Timeout:     conf.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}
