//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/fishshop/storefront-bot/internal/catalog/strapi/strapitest"
	"github.com/fishshop/storefront-bot/internal/config"
	"github.com/fishshop/storefront-bot/internal/dbtest/valkeytest"
	"github.com/fishshop/storefront-bot/internal/telegram/telegramtest"
)

const (
	strapiToken   = "strapi-token"
	telegramToken = "123:telegram-token"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config
	Strapi         *strapitest.Server
	Telegram       *telegramtest.Server

	closeFuncs []closeFunc
}

func embedded(v string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "embedded", Value: v}
}

func initInfra(t *testing.T, exeName string) (istat infraStat) {
	t.Helper()

	// Since the config is read from the file $PWD/config.yaml,
	// we're running a process in a subdirectory so that we aren't interferring with the other tests.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, exeName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	// Prepare a directory for the test
	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	return istat
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.ValKey.Host = embedded(net.JoinHostPort("localhost", vkPort.Port()))
	istat.Cfg.ValKey.User = embedded("")
	istat.Cfg.ValKey.Password = embedded("")
}

// PrepareRemotes starts the fake catalog and chat APIs the process talks to.
func (istat *infraStat) PrepareRemotes(t *testing.T) {
	t.Helper()

	istat.Strapi = strapitest.NewServer(t, strapiToken)
	istat.Telegram = telegramtest.NewServer(t, telegramToken)

	istat.Cfg.Catalog.BaseURL = istat.Strapi.URL
	istat.Cfg.Catalog.Token = embedded(strapiToken)
	istat.Cfg.Telegram.Token = embedded(telegramToken)
	istat.Cfg.Telegram.APIEndpoint = istat.Telegram.Endpoint()
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	data, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, data, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
