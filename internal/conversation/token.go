package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

// Markers carried by navigation buttons.
const (
	TokenCart = "cart"
	TokenBack = "back"
	TokenPay  = "pay"
)

const quantitySeparator = "$$"

// QuantityPresets are the amounts, in kg, offered on the product view.
var QuantityPresets = []int{1, 2, 5, 10}

// AddToken encodes an "add quantity of product" button.
func AddToken(quantity int, productID string) string {
	return strconv.Itoa(quantity) + quantitySeparator + productID
}

// ParseAddToken decodes a token built by AddToken. The quantity must be a
// positive integer and the product id must not be empty.
func ParseAddToken(token string) (int, string, error) {
	rawQty, productID, ok := strings.Cut(token, quantitySeparator)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q is not a quantity token", serviceerr.ErrMalformedEvent, token)
	}

	qty, err := strconv.Atoi(rawQty)
	if err != nil {
		return 0, "", fmt.Errorf("%w: quantity %q is not a number", serviceerr.ErrMalformedEvent, rawQty)
	}

	if qty <= 0 {
		return 0, "", fmt.Errorf("%w: quantity %d is not positive", serviceerr.ErrMalformedEvent, qty)
	}

	if productID == "" {
		return 0, "", fmt.Errorf("%w: %q has no product id", serviceerr.ErrMalformedEvent, token)
	}

	return qty, productID, nil
}
