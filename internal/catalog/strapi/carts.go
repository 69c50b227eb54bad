package strapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/samber/oops"

	"github.com/fishshop/storefront-bot/internal/catalog"
	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

const (
	cartsPath     = "api/carts/"
	cartLinesPath = "api/product-carts/"
	clientsPath   = "api/clients/"
)

func (c *Client) FindCart(ctx context.Context, userID string) (string, bool, error) {
	var resp envelope[[]cartDoc]
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   cartsPath,
		query:  url.Values{"filters[tg_user_id][$eq]": {userID}},
	}, &resp)
	if err != nil {
		return "", false, err
	}

	if len(resp.Data) == 0 {
		return "", false, nil
	}

	return resp.Data[0].DocumentID, true, nil
}

func (c *Client) CreateCart(ctx context.Context, userID string) (string, error) {
	var resp envelope[cartDoc]
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   cartsPath,
		body:   envelope[createCartBody]{Data: createCartBody{TgUserID: userID}},
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.Data.DocumentID == "" {
		return "", oops.In("catalog").
			Code(serviceerr.CodeRemoteRejected).
			With("user_id", userID).
			Wrapf(serviceerr.ErrRemoteRejected, "created cart has no document id")
	}

	return resp.Data.DocumentID, nil
}

func (c *Client) ListCartLines(ctx context.Context, userID string) ([]catalog.CartLine, error) {
	var resp envelope[[]cartLineDoc]
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   cartLinesPath,
		query: url.Values{
			"filters[cart][tg_user_id][$eq]": {userID},
			"populate[0]":                    {"product"},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	lines := make([]catalog.CartLine, 0, len(resp.Data))
	for _, doc := range resp.Data {
		lines = append(lines, doc.toCartLine())
	}

	return lines, nil
}

func (c *Client) CreateCartLine(ctx context.Context, cartID, productID string, quantity int) (string, error) {
	if err := validateQuantity(quantity); err != nil {
		return "", err
	}

	var resp envelope[cartLineDoc]
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   cartLinesPath,
		body: envelope[createCartLineBody]{Data: createCartLineBody{
			Cart:     connect{Connect: cartID},
			Product:  connect{Connect: productID},
			AmountKg: quantity,
		}},
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.Data.DocumentID, nil
}

func (c *Client) UpdateCartLineQuantity(ctx context.Context, lineID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   cartLinesPath + url.PathEscape(lineID),
		body:   envelope[updateCartLineBody]{Data: updateCartLineBody{AmountKg: quantity}},
	}, nil)

	return err
}

func (c *Client) DeleteCartLine(ctx context.Context, lineID string) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   cartLinesPath + url.PathEscape(lineID),
	}, nil)

	return err
}

func (c *Client) RegisterClientEmail(ctx context.Context, userID, email string) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   clientsPath,
		body:   envelope[createClientBody]{Data: createClientBody{Email: email, TgUserID: userID}},
	}, nil)

	return err
}

func validateQuantity(quantity int) error {
	if quantity > 0 {
		return nil
	}

	return oops.In("catalog").
		Code(serviceerr.CodeRemoteRejected).
		With("quantity", quantity).
		Wrapf(serviceerr.ErrRemoteRejected, "quantity must be positive")
}
