package business

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/catalog/strapi"
	"github.com/fishshop/storefront-bot/internal/config"
	"github.com/fishshop/storefront-bot/internal/conversation"
	"github.com/fishshop/storefront-bot/internal/dispatch"
	"github.com/fishshop/storefront-bot/internal/telegram"
	sessionvalkey "github.com/fishshop/storefront-bot/pkg/session/valkey"
)

// telegramRequestSlack is added to the poll timeout for the Bot API HTTP client.
const telegramRequestSlack = 10 * time.Second

// Main runs the storefront bot until ctx is cancelled.
func Main(ctx context.Context, cfg *config.Config) error {
	valkeyOpts, err := config.ValKeyClientOption(cfg.ValKey)
	if err != nil {
		return fmt.Errorf("making valkey client options from config: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return fmt.Errorf("creating a new valkey client: %w", err)
	}
	defer valkeyClient.Close()

	sessions := sessionvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix, cfg.ValKey.SessionTTL)

	catalogClient, err := newCatalogClient(cfg)
	if err != nil {
		return fmt.Errorf("creating the catalog client: %w", err)
	}

	api, err := newBotAPI(cfg)
	if err != nil {
		return fmt.Errorf("creating the telegram client: %w", err)
	}

	slogctx.Info(ctx, "Authorised on telegram", "bot", api.Self.UserName)

	bot := telegram.NewBot(api,
		conversation.NewEngine(sessions, catalogClient),
		telegram.WithPollTimeout(cfg.Telegram.PollTimeout),
		telegram.WithSendLimit(cfg.Telegram.SendRate, cfg.Telegram.SendBurst),
	)

	dispatcher, err := dispatch.New(ctx, cfg, inboundKey, bot.HandleInbound)
	if err != nil {
		return fmt.Errorf("creating the event dispatcher: %w", err)
	}

	return serve(ctx, bot, dispatcher)
}

// serve polls for updates and hands them to the dispatcher. When polling stops
// the dispatcher finishes the queued events before serve returns.
func serve(ctx context.Context, bot *telegram.Bot, dispatcher *dispatch.Dispatcher[telegram.Inbound]) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		defer dispatcher.Close()
		return bot.Poll(gctx, dispatcher.Submit)
	})

	if err := g.Wait(); err != nil {
		slogctx.Error(ctx, "Shutting down the bot", "error", err)
		return err
	}

	slogctx.Info(ctx, "Bot stopped")

	return nil
}

func inboundKey(in telegram.Inbound) string {
	return in.Event.UserID
}

func newCatalogClient(cfg *config.Config) (*strapi.Client, error) {
	token, err := config.CatalogToken(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	return strapi.NewClient(cfg.Catalog.BaseURL, token,
		strapi.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		strapi.WithBreakerSettings(config.BreakerSettings("strapi", cfg.Catalog.Breaker)),
		strapi.WithProductCacheTTL(cfg.Catalog.ProductCacheTTL),
		strapi.WithPictureCacheTTL(cfg.Catalog.PictureCacheTTL),
	)
}

func newBotAPI(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	token, err := config.TelegramToken(cfg.Telegram)
	if err != nil {
		return nil, err
	}

	// Long polling requests must outlive the poll timeout.
	client := &http.Client{Timeout: cfg.Telegram.PollTimeout + telegramRequestSlack}

	api, err := tgbotapi.NewBotAPIWithClient(token, cfg.Telegram.APIEndpoint, client)
	if err != nil {
		return nil, err
	}

	api.Debug = cfg.Telegram.Debug

	return api, nil
}
