package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

const textInvalidEmail = "That does not look like a valid email address."

func (e *Engine) handleMenu(ctx context.Context, ev Event) (transition, error) {
	token, err := callbackToken(ev)
	if err != nil {
		return transition{}, err
	}

	if token == TokenCart {
		return e.showCart(ctx, ev.UserID)
	}

	return e.showProduct(ctx, token)
}

func (e *Engine) handleProduct(ctx context.Context, ev Event) (transition, error) {
	token, err := callbackToken(ev)
	if err != nil {
		return transition{}, err
	}

	switch token {
	case TokenBack:
		return e.showMenu(ctx, "")
	case TokenCart:
		return e.showCart(ctx, ev.UserID)
	}

	qty, productID, err := ParseAddToken(token)
	if err != nil {
		return transition{}, err
	}

	cartID, err := e.carts.getOrCreate(ctx, ev.UserID)
	if err != nil {
		return transition{}, err
	}

	if err := e.carts.addQuantity(ctx, cartID, productID, qty, ev.UserID); err != nil {
		return transition{}, err
	}

	slogctx.Info(ctx, "Added product to cart", "cart_id", cartID, "product_id", productID, "quantity", qty)

	return e.showMenu(ctx, fmt.Sprintf("Added %d kg to your cart.", qty))
}

func (e *Engine) handleCart(ctx context.Context, ev Event) (transition, error) {
	token, err := callbackToken(ev)
	if err != nil {
		return transition{}, err
	}

	switch token {
	case TokenBack:
		return e.showMenu(ctx, "")
	case TokenPay:
		return transition{next: StateAwaitingEmail, reply: emailPromptReply("")}, nil
	}

	if err := e.removeLine(ctx, ev.UserID, token); err != nil {
		return transition{}, err
	}

	return e.showCart(ctx, ev.UserID)
}

func (e *Engine) handleEmail(ctx context.Context, ev Event) (transition, error) {
	if ev.Kind == EventCallback {
		if ev.Payload == TokenBack {
			return e.showMenu(ctx, "")
		}

		return transition{}, fmt.Errorf("%w: unexpected button %q", serviceerr.ErrMalformedEvent, ev.Payload)
	}

	email := strings.TrimSpace(ev.Payload)
	if err := e.validate.Var(email, "required,email"); err != nil {
		return transition{}, fmt.Errorf("%w: invalid email: %w", serviceerr.ErrMalformedEvent, err)
	}

	if err := e.catalog.RegisterClientEmail(ctx, ev.UserID, email); err != nil {
		return transition{}, fmt.Errorf("registering email: %w", err)
	}

	slogctx.Info(ctx, "Registered checkout email")

	return e.showMenu(ctx, fmt.Sprintf("Thank you! We will contact you at %s.", email))
}

// removeLine deletes a line of the user's cart. Ids not in the cart are
// rejected so a user can only remove their own lines.
func (e *Engine) removeLine(ctx context.Context, userID, lineID string) error {
	lines, err := e.catalog.ListCartLines(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing cart lines: %w", err)
	}

	owned := false
	for _, l := range lines {
		if l.ID == lineID {
			owned = true
			break
		}
	}

	if !owned {
		return fmt.Errorf("%w: %q is not a line of the cart", serviceerr.ErrMalformedEvent, lineID)
	}

	err = e.catalog.DeleteCartLine(ctx, lineID)
	switch {
	case errors.Is(err, serviceerr.ErrNotFound):
		return fmt.Errorf("%w: cart line %q is already gone: %w", serviceerr.ErrMalformedEvent, lineID, err)
	case err != nil:
		return fmt.Errorf("deleting cart line: %w", err)
	}

	slogctx.Info(ctx, "Removed cart line", "line_id", lineID)

	return nil
}

func (e *Engine) showMenu(ctx context.Context, notice string) (transition, error) {
	products, err := e.catalog.ListProducts(ctx)
	if err != nil {
		return transition{}, fmt.Errorf("listing products: %w", err)
	}

	return transition{next: StateBrowsingMenu, reply: menuReply(products, notice)}, nil
}

// showProduct renders a product. Unknown products come from stale keyboards
// and are reported as malformed events.
func (e *Engine) showProduct(ctx context.Context, productID string) (transition, error) {
	if productID == "" {
		return transition{}, fmt.Errorf("%w: no product selected", serviceerr.ErrMalformedEvent)
	}

	product, err := e.catalog.GetProduct(ctx, productID)
	switch {
	case errors.Is(err, serviceerr.ErrNotFound):
		return transition{}, fmt.Errorf("%w: unknown product %q: %w", serviceerr.ErrMalformedEvent, productID, err)
	case err != nil:
		return transition{}, fmt.Errorf("getting product: %w", err)
	}

	var picture []byte
	if product.PictureURL != "" {
		picture, err = e.catalog.FetchPicture(ctx, product.PictureURL)
		switch {
		case errors.Is(err, serviceerr.ErrNotFound):
			slogctx.Warn(ctx, "Product picture is missing", "product_id", productID, "error", err)
		case err != nil:
			return transition{}, fmt.Errorf("fetching picture: %w", err)
		}
	}

	return transition{
		next:      StateViewingProduct,
		productID: product.ID,
		reply:     productReply(product, picture),
	}, nil
}

func (e *Engine) showCart(ctx context.Context, userID string) (transition, error) {
	lines, err := e.catalog.ListCartLines(ctx, userID)
	if err != nil {
		return transition{}, fmt.Errorf("listing cart lines: %w", err)
	}

	return transition{next: StateViewingCart, reply: cartReply(lines)}, nil
}

func callbackToken(ev Event) (string, error) {
	if ev.Kind != EventCallback {
		return "", fmt.Errorf("%w: expected a button press, got %s", serviceerr.ErrMalformedEvent, ev.Kind)
	}

	if ev.Payload == "" {
		return "", fmt.Errorf("%w: empty callback token", serviceerr.ErrMalformedEvent)
	}

	return ev.Payload, nil
}
