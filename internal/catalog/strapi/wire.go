package strapi

import "github.com/fishshop/storefront-bot/internal/catalog"

// Strapi wraps every payload in a "data" envelope.
type envelope[T any] struct {
	Data T `json:"data"`
}

type productDoc struct {
	DocumentID  string   `json:"documentId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Picture     *picture `json:"picture,omitempty"`
}

type picture struct {
	URL string `json:"url"`
}

func (p productDoc) toProduct() catalog.Product {
	product := catalog.Product{
		ID:          p.DocumentID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
	}
	if p.Picture != nil {
		product.PictureURL = p.Picture.URL
	}

	return product
}

type cartDoc struct {
	DocumentID string `json:"documentId"`
	TgUserID   string `json:"tg_user_id"`
}

type cartLineDoc struct {
	DocumentID string      `json:"documentId"`
	AmountKg   int         `json:"amount_kg"`
	Product    *productDoc `json:"product"`
}

func (l cartLineDoc) toCartLine() catalog.CartLine {
	line := catalog.CartLine{
		ID:       l.DocumentID,
		Quantity: l.AmountKg,
	}
	if l.Product != nil {
		line.Product = l.Product.toProduct()
	}

	return line
}

type createCartBody struct {
	TgUserID string `json:"tg_user_id"`
}

type connect struct {
	Connect string `json:"connect"`
}

type createCartLineBody struct {
	Cart     connect `json:"cart"`
	Product  connect `json:"product"`
	AmountKg int     `json:"amount_kg"`
}

type updateCartLineBody struct {
	AmountKg int `json:"amount_kg"`
}

type createClientBody struct {
	Email    string `json:"email"`
	TgUserID string `json:"tg_user_id"`
}
