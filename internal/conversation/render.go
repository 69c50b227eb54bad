package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fishshop/storefront-bot/internal/catalog"
)

const (
	currency = "RUB"

	labelMyCart   = "My cart"
	labelMainMenu = "Main menu"
	labelPay      = "Pay"

	textMenu        = "Choose a product:"
	textEmptyCart   = "Your cart is empty."
	textEmailPrompt = "Please enter your email:"
)

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + currency
}

func menuReply(products []catalog.Product, notice string) Reply {
	rows := make([][]Option, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []Option{{Label: p.Title, Token: p.ID}})
	}

	rows = append(rows, []Option{{Label: labelMyCart, Token: TokenCart}})

	text := textMenu
	if notice != "" {
		text = notice + "\n\n" + textMenu
	}

	return Reply{Kind: ReplyOptions, Text: text, Rows: rows}
}

func productReply(p catalog.Product, picture []byte) Reply {
	text := fmt.Sprintf("%s\n\n%s per kg\n\n%s", p.Title, formatPrice(p.Price), p.Description)

	var rows [][]Option
	for i := 0; i < len(QuantityPresets); i += 2 {
		var row []Option
		for _, qty := range QuantityPresets[i:min(i+2, len(QuantityPresets))] {
			row = append(row, Option{
				Label: fmt.Sprintf("Add %d kg to cart", qty),
				Token: AddToken(qty, p.ID),
			})
		}

		rows = append(rows, row)
	}

	rows = append(rows, []Option{
		{Label: labelMyCart, Token: TokenCart},
		{Label: labelMainMenu, Token: TokenBack},
	})

	return Reply{Kind: ReplyDetail, Text: text, Image: picture, Rows: rows}
}

func cartReply(lines []catalog.CartLine) Reply {
	if len(lines) == 0 {
		return Reply{
			Kind: ReplyOptions,
			Text: textEmptyCart,
			Rows: [][]Option{{{Label: labelMainMenu, Token: TokenBack}}},
		}
	}

	var sb strings.Builder
	rows := make([][]Option, 0, len(lines)+1)
	for _, l := range lines {
		fmt.Fprintf(&sb, "%s\n%s\n%s per kg\n%d kg in cart for %s\n\n",
			l.Product.Title, l.Product.Description, formatPrice(l.Product.Price), l.Quantity, formatPrice(l.Subtotal()))

		rows = append(rows, []Option{{
			Label: fmt.Sprintf("Remove %s %d kg", l.Product.Title, l.Quantity),
			Token: l.ID,
		}})
	}

	fmt.Fprintf(&sb, "Total: %s", formatPrice(catalog.Total(lines)))

	rows = append(rows, []Option{
		{Label: labelMainMenu, Token: TokenBack},
		{Label: labelPay, Token: TokenPay},
	})

	return Reply{Kind: ReplyOptions, Text: sb.String(), Rows: rows}
}

func emailPromptReply(notice string) Reply {
	text := textEmailPrompt
	if notice != "" {
		text = notice + "\n" + textEmailPrompt
	}

	return Reply{
		Kind: ReplyPrompt,
		Text: text,
		Rows: [][]Option{{{Label: labelMainMenu, Token: TokenBack}}},
	}
}
