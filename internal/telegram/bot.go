package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/oops"
	"golang.org/x/time/rate"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/conversation"
)

// API is the part of the Bot API client the transport uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Engine interface {
	Handle(ctx context.Context, ev conversation.Event) (conversation.Reply, error)
}

type BotOption func(*Bot)

// WithPollTimeout sets the long polling timeout of getUpdates.
func WithPollTimeout(d time.Duration) BotOption {
	return func(b *Bot) {
		b.pollTimeout = d
	}
}

// WithSendLimit limits outgoing Bot API calls to r per second with the given burst.
func WithSendLimit(r float64, burst int) BotOption {
	return func(b *Bot) {
		b.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
	}
}

// Bot connects the conversation engine to a Telegram chat.
type Bot struct {
	api         API
	engine      Engine
	limiter     *rate.Limiter
	pollTimeout time.Duration
}

func NewBot(api API, engine Engine, opts ...BotOption) *Bot {
	b := &Bot{
		api:         api,
		engine:      engine,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		pollTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Poll receives updates until ctx is cancelled and passes them to submit.
func (b *Bot) Poll(ctx context.Context, submit func(context.Context, Inbound) error) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout.Seconds())
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	slogctx.Info(ctx, "Polling for chat updates", "timeout", b.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			slogctx.Info(ctx, "Stopped polling for chat updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			in, ok := FromUpdate(update)
			if !ok {
				slogctx.Debug(ctx, "Skipping update", "update_id", update.UpdateID)
				continue
			}

			if err := submit(ctx, in); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return oops.In("telegram").
					With("update_id", update.UpdateID).
					Wrapf(err, "submitting update")
			}
		}
	}
}

// HandleInbound runs one event through the engine and delivers the reply. When the
// engine fails the user gets no message, only the button press is acknowledged.
func (b *Bot) HandleInbound(ctx context.Context, in Inbound) error {
	ctx = slogctx.With(ctx,
		"user_id", in.Event.UserID,
		"update_id", in.Event.ID,
		"event_kind", in.Event.Kind.String(),
	)

	reply, err := b.engine.Handle(ctx, in.Event)

	// Answering the callback stops the loading indicator on the button.
	if in.CallbackID != "" {
		if ackErr := b.request(ctx, tgbotapi.NewCallback(in.CallbackID, "")); ackErr != nil {
			slogctx.Warn(ctx, "Failed to answer callback query", "error", ackErr)
		}
	}

	if err != nil {
		return err
	}

	if in.MessageID != 0 {
		if delErr := b.request(ctx, tgbotapi.NewDeleteMessage(in.ChatID, in.MessageID)); delErr != nil {
			slogctx.Warn(ctx, "Failed to delete previous message", "error", delErr)
		}
	}

	if err := b.wait(ctx); err != nil {
		return err
	}

	if _, err := b.api.Send(Render(in.ChatID, reply)); err != nil {
		return oops.In("telegram").
			With("chat_id", in.ChatID, "reply_kind", reply.Kind.String()).
			Wrapf(err, "sending reply")
	}

	return nil
}

func (b *Bot) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.wait(ctx); err != nil {
		return err
	}

	if _, err := b.api.Request(c); err != nil {
		return fmt.Errorf("calling bot api: %w", err)
	}

	return nil
}

func (b *Bot) wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.Join(errors.New("waiting for send limiter"), err)
	}

	return nil
}
