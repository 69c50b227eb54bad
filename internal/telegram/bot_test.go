package telegram_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishshop/storefront-bot/internal/conversation"
	"github.com/fishshop/storefront-bot/internal/telegram"
)

type fakeAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	config   tgbotapi.UpdateConfig
	stopped  bool
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	reqErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.config = config

	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}

	f.sent = append(f.sent, c)

	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)
	if f.reqErr != nil {
		return nil, f.reqErr
	}

	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeEngine struct {
	reply conversation.Reply
	err   error
	got   []conversation.Event
}

func (f *fakeEngine) Handle(_ context.Context, ev conversation.Event) (conversation.Reply, error) {
	f.got = append(f.got, ev)
	return f.reply, f.err
}

var menu = conversation.Reply{
	Kind: conversation.ReplyOptions,
	Text: "Choose a product:",
	Rows: [][]conversation.Option{{{Label: "Salmon", Token: "p1"}}, {{Label: "My cart", Token: "cart"}}},
}

func callbackInbound() telegram.Inbound {
	return telegram.Inbound{
		Event:      conversation.CallbackEvent("77", "cart"),
		ChatID:     77,
		MessageID:  12,
		CallbackID: "cb-1",
	}
}

func TestBot_HandleInbound_Callback(t *testing.T) {
	api := newFakeAPI()
	engine := &fakeEngine{reply: menu}

	err := telegram.NewBot(api, engine).HandleInbound(t.Context(), callbackInbound())
	require.NoError(t, err)

	require.Len(t, engine.got, 1)
	assert.Equal(t, "cart", engine.got[0].Payload)

	require.Len(t, api.requests, 2)
	assert.Equal(t, tgbotapi.NewCallback("cb-1", ""), api.requests[0])
	assert.Equal(t, tgbotapi.NewDeleteMessage(77, 12), api.requests[1])

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "Choose a product:", msg.Text)
	assert.Equal(t, int64(77), msg.ChatID)
}

func TestBot_HandleInbound_Text(t *testing.T) {
	api := newFakeAPI()
	engine := &fakeEngine{reply: menu}

	in := telegram.Inbound{Event: conversation.TextEvent("77", "/start"), ChatID: 77}
	require.NoError(t, telegram.NewBot(api, engine).HandleInbound(t.Context(), in))

	assert.Empty(t, api.requests, "text messages have nothing to acknowledge or delete")
	assert.Len(t, api.sent, 1)
}

func TestBot_HandleInbound_EngineFailure(t *testing.T) {
	api := newFakeAPI()
	errRemote := errors.New("catalog unavailable")
	engine := &fakeEngine{err: errRemote}

	err := telegram.NewBot(api, engine).HandleInbound(t.Context(), callbackInbound())
	require.ErrorIs(t, err, errRemote)

	assert.Equal(t, []tgbotapi.Chattable{tgbotapi.NewCallback("cb-1", "")}, api.requests)
	assert.Empty(t, api.sent, "no message is sent when handling fails")
}

func TestBot_HandleInbound_CleanupFailuresAreIgnored(t *testing.T) {
	api := newFakeAPI()
	api.reqErr = errors.New("message can't be deleted")

	err := telegram.NewBot(api, &fakeEngine{reply: menu}).HandleInbound(t.Context(), callbackInbound())
	require.NoError(t, err)
	assert.Len(t, api.sent, 1)
}

func TestBot_HandleInbound_SendFailure(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = errors.New("bot was blocked by the user")

	err := telegram.NewBot(api, &fakeEngine{reply: menu}).HandleInbound(t.Context(), callbackInbound())
	require.ErrorIs(t, err, api.sendErr)
}

func TestBot_Poll(t *testing.T) {
	api := newFakeAPI()
	bot := telegram.NewBot(api, &fakeEngine{}, telegram.WithPollTimeout(10*time.Second), telegram.WithSendLimit(30, 5))

	api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 5}}}
	api.updates <- tgbotapi.Update{UpdateID: 2, EditedMessage: &tgbotapi.Message{Text: "edit", Chat: &tgbotapi.Chat{ID: 5}}}
	api.updates <- tgbotapi.Update{UpdateID: 3, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb", Data: "back", Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 5}},
	}}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var got []telegram.Inbound
	submit := func(_ context.Context, in telegram.Inbound) error {
		got = append(got, in)
		if len(got) == 2 {
			cancel()
		}

		return nil
	}

	require.NoError(t, bot.Poll(ctx, submit))

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Event.ID)
	assert.Equal(t, "3", got[1].Event.ID)
	assert.True(t, api.stopped)
	assert.Equal(t, 10, api.config.Timeout)
	assert.Equal(t, []string{"message", "callback_query"}, api.config.AllowedUpdates)
}

func TestBot_Poll_SubmitFailure(t *testing.T) {
	api := newFakeAPI()
	api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 5}}}

	errClosed := errors.New("closed")
	err := telegram.NewBot(api, &fakeEngine{}).Poll(t.Context(), func(context.Context, telegram.Inbound) error {
		return errClosed
	})

	require.ErrorIs(t, err, errClosed)
	assert.True(t, api.stopped)
}

func TestBot_Poll_ChannelClosed(t *testing.T) {
	api := newFakeAPI()
	close(api.updates)

	err := telegram.NewBot(api, &fakeEngine{}).Poll(t.Context(), func(context.Context, telegram.Inbound) error {
		return nil
	})
	require.NoError(t, err)
}
