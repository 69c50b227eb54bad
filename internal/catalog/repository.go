package catalog

import "context"

// Repository is the remote catalog and cart store. Failures match
// serviceerr.ErrRemoteUnavailable or serviceerr.ErrRemoteRejected. Lookups of
// missing documents additionally match serviceerr.ErrNotFound.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	FetchPicture(ctx context.Context, pictureURL string) ([]byte, error)

	// FindCart returns the id of the first cart of the user and whether one exists.
	FindCart(ctx context.Context, userID string) (string, bool, error)
	CreateCart(ctx context.Context, userID string) (string, error)

	ListCartLines(ctx context.Context, userID string) ([]CartLine, error)
	CreateCartLine(ctx context.Context, cartID, productID string, quantity int) (string, error)
	UpdateCartLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteCartLine(ctx context.Context, lineID string) error

	RegisterClientEmail(ctx context.Context, userID, email string) error
}
