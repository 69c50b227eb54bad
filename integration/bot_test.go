//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishshop/storefront-bot/internal/catalog/strapi/strapitest"
)

const cmdName = "bot"

// startBot runs the bot binary from the process directory until the test ends.
func startBot(t *testing.T, istat *infraStat) {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	t.Chdir(istat.Procdir)

	commandCtx, cancelCommand := context.WithTimeout(t.Context(), 30*time.Second)
	t.Cleanup(cancelCommand)

	cmd := exec.CommandContext(commandCtx, filepath.Join(currdir, binary), cmdName)

	cmdOut, err := os.Create(filepath.Join(currdir, t.Name()+".log"))
	require.NoError(t, err, "failed to create a log file")
	t.Cleanup(func() { cmdOut.Close() })

	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut

	require.NoError(t, cmd.Start(), "could not start command")

	// stop gracefully so that coverprofiles are written
	t.Cleanup(func() {
		_ = syscall.Kill(cmd.Process.Pid, syscall.SIGTERM)
		_ = cmd.Wait()
	})
}

func prepare(t *testing.T) *infraStat {
	t.Helper()

	istat := initInfra(t, cmdName)
	t.Cleanup(func() { istat.Close(context.Background()) })

	istat.PrepareValKey(t)
	istat.PrepareRemotes(t)
	istat.PrepareConfig(t)

	return &istat
}

func TestStatusServer(t *testing.T) {
	istat := prepare(t)
	startBot(t, istat)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://localhost:8888/probe/liveness")
		if err != nil {
			return false
		}
		resp.Body.Close()

		return true
	}, 10*time.Second, 100*time.Millisecond, "could not connect to the status server")

	for _, endpoint := range []string{"version", "probe/readiness", "probe/liveness"} {
		t.Run(endpoint, func(t *testing.T) {
			resp, err := http.Get("http://localhost:8888/" + endpoint)
			require.NoError(t, err)
			defer resp.Body.Close()

			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode, "response: %s", got)

			var js json.RawMessage
			assert.NoError(t, json.Unmarshal(got, &js), "response is not valid json: %s", got)
		})
	}
}

func TestConversation(t *testing.T) {
	istat := prepare(t)
	istat.Strapi.AddProduct(strapitest.Product{DocumentID: "carp", Title: "Carp", Description: "Live", Price: 80}, []byte("carp-png"))

	startBot(t, istat)

	chat := &tgbotapi.Chat{ID: 7}
	waitFor := func(method string, n int) {
		t.Helper()
		require.Eventually(t, func() bool {
			return len(istat.Telegram.Calls(method)) >= n
		}, 20*time.Second, 50*time.Millisecond, "waiting for %d %s calls", n, method)
	}

	istat.Telegram.Push(tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		MessageID: 1,
		Text:      "/start",
		Chat:      chat,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Length: 6}},
	}})
	waitFor("sendMessage", 1)
	assert.Equal(t, "Choose a product:", istat.Telegram.Calls("sendMessage")[0].Get("text"))

	istat.Telegram.Push(tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb-1", Data: "carp", Message: &tgbotapi.Message{MessageID: 1, Chat: chat},
	}})
	waitFor("sendPhoto", 1)

	istat.Telegram.Push(tgbotapi.Update{UpdateID: 3, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb-2", Data: "2$$carp", Message: &tgbotapi.Message{MessageID: 2, Chat: chat},
	}})
	waitFor("sendMessage", 2)

	lines := istat.Strapi.CartLines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].AmountKg)
	assert.Equal(t, map[string]string{lines[0].CartID: "7"}, istat.Strapi.Carts())
}
