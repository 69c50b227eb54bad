package catalog

// Product is a catalog item. Products are read only for the bot.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       float64 // Price per kg
	PictureURL  string  // Relative picture reference, empty when the product has none
}

// CartLine is one product in a user's cart.
type CartLine struct {
	ID       string
	Product  Product
	Quantity int // Kilograms, always positive
}

// Subtotal returns quantity times unit price.
func (l CartLine) Subtotal() float64 {
	return float64(l.Quantity) * l.Product.Price
}

// Total sums the subtotals of all lines.
func Total(lines []CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}

	return total
}
