package strapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/fishshop/storefront-bot/internal/catalog"
	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

const (
	productsPath = "api/products/"

	cacheKeyProducts      = "products"
	cacheKeyProductPrefix = "product_"
	cacheKeyPicturePrefix = "picture_"
)

var _ catalog.Repository = (*Client)(nil)

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	if cached, ok := c.cache.Get(cacheKeyProducts); ok {
		//nolint:forcetypeassert
		return cached.([]catalog.Product), nil
	}

	var resp envelope[[]productDoc]
	if _, err := c.do(ctx, request{method: http.MethodGet, path: productsPath}, &resp); err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(resp.Data))
	for _, doc := range resp.Data {
		products = append(products, doc.toProduct())
	}

	if c.productTTL > 0 {
		c.cache.Set(cacheKeyProducts, products, c.productTTL)
	}

	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (catalog.Product, error) {
	if productID == "" {
		return catalog.Product{}, oops.In("catalog").
			Code(serviceerr.CodeRemoteRejected).
			Wrapf(errors.Join(serviceerr.ErrNotFound, serviceerr.ErrRemoteRejected), "empty product id")
	}

	cacheKey := cacheKeyProductPrefix + productID
	if cached, ok := c.cache.Get(cacheKey); ok {
		//nolint:forcetypeassert
		return cached.(catalog.Product), nil
	}

	var resp envelope[*productDoc]
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   productsPath + url.PathEscape(productID),
		query:  url.Values{"populate": {"picture"}},
	}, &resp)
	if err != nil {
		return catalog.Product{}, err
	}

	// Strapi answers unknown documents with {"data": null} on some versions.
	if resp.Data == nil {
		return catalog.Product{}, oops.In("catalog").
			Code(serviceerr.CodeRemoteRejected).
			With("product_id", productID).
			Wrapf(errors.Join(serviceerr.ErrNotFound, serviceerr.ErrRemoteRejected), "product not found")
	}

	product := resp.Data.toProduct()
	if c.productTTL > 0 {
		c.cache.Set(cacheKey, product, c.productTTL)
	}

	return product, nil
}

// FetchPicture downloads the picture referenced by a product. Relative references
// are resolved against the API base URL.
func (c *Client) FetchPicture(ctx context.Context, pictureURL string) ([]byte, error) {
	if pictureURL == "" {
		return nil, oops.In("catalog").
			Code(serviceerr.CodeRemoteRejected).
			Wrapf(errors.Join(serviceerr.ErrNotFound, serviceerr.ErrRemoteRejected), "empty picture reference")
	}

	cacheKey := cacheKeyPicturePrefix + pictureURL
	if cached, ok := c.cache.Get(cacheKey); ok {
		//nolint:forcetypeassert
		return cached.([]byte), nil
	}

	data, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   strings.TrimPrefix(pictureURL, "/"),
		raw:    true,
	}, nil)
	if err != nil {
		return nil, err
	}

	if c.pictureTTL > 0 {
		c.cache.Set(cacheKey, data, c.pictureTTL)
	}

	return data, nil
}
