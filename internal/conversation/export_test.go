package conversation

import "context"

func GetOrCreateCart(ctx context.Context, e *Engine, userID string) (string, error) {
	return e.carts.getOrCreate(ctx, userID)
}

func AddQuantity(ctx context.Context, e *Engine, cartID, productID string, delta int, userID string) error {
	return e.carts.addQuantity(ctx, cartID, productID, delta, userID)
}
