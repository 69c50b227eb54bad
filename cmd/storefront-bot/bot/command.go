package bot

import (
	"github.com/spf13/cobra"

	"github.com/fishshop/storefront-bot/internal/business"
	"github.com/fishshop/storefront-bot/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"bot",
		"Storefront Telegram bot",
		"Storefront Telegram bot serves the product catalog, the cart and the checkout in a chat.",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
