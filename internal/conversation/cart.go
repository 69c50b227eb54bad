package conversation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/catalog"
	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

// carts implements cart lookup and line reconciliation on top of the catalog.
type carts struct {
	catalog catalog.Repository
	group   singleflight.Group
}

// getOrCreate returns the cart of userID, creating it only when the user has none.
// Concurrent calls for the same user share a single lookup. The shared lookup
// ignores the cancellation of whichever caller started it.
func (c *carts) getOrCreate(ctx context.Context, userID string) (string, error) {
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := c.group.Do(userID, func() (any, error) {
		ctx := flightCtx

		cartID, found, err := c.catalog.FindCart(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("finding cart: %w", err)
		}

		if found {
			return cartID, nil
		}

		cartID, err = c.catalog.CreateCart(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("creating cart: %w", err)
		}

		slogctx.Info(ctx, "Created cart", "cart_id", cartID)

		return cartID, nil
	})
	if err != nil {
		return "", err
	}

	//nolint:forcetypeassert
	return v.(string), nil
}

// addQuantity keeps at most one line per product: an existing line grows by
// delta, otherwise a new line is created. The read and the write are not atomic.
func (c *carts) addQuantity(ctx context.Context, cartID, productID string, delta int, userID string) error {
	lines, err := c.catalog.ListCartLines(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing cart lines: %w", err)
	}

	for _, l := range lines {
		if l.Product.ID != productID {
			continue
		}

		if l.Quantity > math.MaxInt-delta {
			return fmt.Errorf("%w: cart line %s holds %d kg and cannot grow by %d",
				serviceerr.ErrMalformedEvent, l.ID, l.Quantity, delta)
		}

		if err := c.catalog.UpdateCartLineQuantity(ctx, l.ID, l.Quantity+delta); err != nil {
			return fmt.Errorf("updating cart line %s: %w", l.ID, err)
		}

		return nil
	}

	if _, err := c.catalog.CreateCartLine(ctx, cartID, productID, delta); err != nil {
		return fmt.Errorf("creating cart line: %w", err)
	}

	return nil
}
