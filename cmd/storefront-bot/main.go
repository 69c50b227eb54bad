package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/cmd/storefront-bot/bot"
)

const (
	appName        = "storefront-bot"
	versionCmdName = "version"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	gracefulShutdown time.Duration
)

const rootLong = `Fish shop storefront on Telegram.

Customers browse the product catalog kept in Strapi, pick a product and a
quantity in kilograms, review their cart and leave an email to check out.
The conversation state of every chat lives in valkey, so the bot can be
restarted without losing where a customer was.

Run "storefront-bot bot" to start polling Telegram. The configuration is read
from config.yaml in /etc/storefront-bot, $HOME/.storefront-bot or the working
directory.`

func versionCmd(buildInfo string) *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: "Print the build information of the storefront bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := utils.ExtractFromComplexValue(buildInfo)
			if err != nil {
				return fmt.Errorf("reading build info: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), appName, value)

			return err
		},
	}
}

func rootCmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          appName,
		Short:        "Telegram storefront for a Strapi product catalog",
		Long:         rootLong,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 1*time.Second,
		"time to wait after the bot stops before the process exits")

	cmd.AddCommand(
		versionCmd(buildInfo),
		bot.Cmd(buildInfo),
	)

	return cmd
}

// waitsOnShutdown reports whether the executed command ran a long lived service.
func waitsOnShutdown(cmd *cobra.Command) bool {
	return cmd != nil && cmd.Runnable() && cmd.Name() != versionCmdName
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelOnSignal()

	executed, err := rootCmd(BuildInfo).ExecuteContextC(ctx)
	if err != nil {
		slogctx.Error(ctx, "failed to start the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if waitsOnShutdown(executed) {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
