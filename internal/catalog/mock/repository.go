package catalogmock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fishshop/storefront-bot/internal/catalog"
	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

// Method names accepted by FailOn.
const (
	MethodListProducts           = "ListProducts"
	MethodGetProduct             = "GetProduct"
	MethodFetchPicture           = "FetchPicture"
	MethodFindCart               = "FindCart"
	MethodCreateCart             = "CreateCart"
	MethodListCartLines          = "ListCartLines"
	MethodCreateCartLine         = "CreateCartLine"
	MethodUpdateCartLineQuantity = "UpdateCartLineQuantity"
	MethodDeleteCartLine         = "DeleteCartLine"
	MethodRegisterClientEmail    = "RegisterClientEmail"
)

type line struct {
	id        string
	cartID    string
	userID    string
	productID string
	quantity  int
}

// Repository is an in-memory catalog. Errors can be injected per method.
type Repository struct {
	mu sync.Mutex

	products []catalog.Product
	pictures map[string][]byte
	carts    []struct{ id, userID string }
	lines    []line
	emails   map[string][]string

	errs   map[string]error
	calls  map[string]int
	nextID int
}

var _ catalog.Repository = (*Repository)(nil)

func NewInMemRepository(products ...catalog.Product) *Repository {
	return &Repository{
		products: products,
		pictures: make(map[string][]byte),
		emails:   make(map[string][]string),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailOn makes every call of method return err. A nil err clears the failure.
func (r *Repository) FailOn(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.errs, method)
		return
	}

	r.errs[method] = err
}

// Calls returns how often method was invoked, failed calls included.
func (r *Repository) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[method]
}

func (r *Repository) SetPicture(url string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pictures[url] = data
}

// AddCart registers a cart for a user and returns its id. Users may own several carts.
func (r *Repository) AddCart(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addCart(userID)
}

// AddCartLine stores a line without any reconciliation, so duplicates are possible.
func (r *Repository) AddCartLine(cartID, productID string, quantity int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID("line")
	r.lines = append(r.lines, line{id: id, cartID: cartID, userID: r.cartOwner(cartID), productID: productID, quantity: quantity})

	return id
}

// CartCount returns the number of carts owned by userID.
func (r *Repository) CartCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.carts {
		if c.userID == userID {
			n++
		}
	}

	return n
}

// Quantities maps product id to the quantity of every line of the user's carts.
// A product occurring on several lines reports the sum.
func (r *Repository) Quantities(userID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int)
	for _, l := range r.lines {
		if l.userID == userID {
			out[l.productID] += l.quantity
		}
	}

	return out
}

// LineCount returns the number of lines of the user's carts.
func (r *Repository) LineCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, l := range r.lines {
		if l.userID == userID {
			n++
		}
	}

	return n
}

// Emails returns the emails registered for userID in order.
func (r *Repository) Emails(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.emails[userID]...)
}

func (r *Repository) ListProducts(_ context.Context) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodListProducts); err != nil {
		return nil, err
	}

	return append([]catalog.Product(nil), r.products...), nil
}

func (r *Repository) GetProduct(_ context.Context, productID string) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodGetProduct); err != nil {
		return catalog.Product{}, err
	}

	p, ok := r.product(productID)
	if !ok {
		return catalog.Product{}, notFound("product", productID)
	}

	return p, nil
}

func (r *Repository) FetchPicture(_ context.Context, pictureURL string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodFetchPicture); err != nil {
		return nil, err
	}

	data, ok := r.pictures[pictureURL]
	if !ok {
		return nil, notFound("picture", pictureURL)
	}

	return data, nil
}

func (r *Repository) FindCart(_ context.Context, userID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodFindCart); err != nil {
		return "", false, err
	}

	for _, c := range r.carts {
		if c.userID == userID {
			return c.id, true, nil
		}
	}

	return "", false, nil
}

func (r *Repository) CreateCart(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodCreateCart); err != nil {
		return "", err
	}

	return r.addCart(userID), nil
}

func (r *Repository) ListCartLines(_ context.Context, userID string) ([]catalog.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodListCartLines); err != nil {
		return nil, err
	}

	var out []catalog.CartLine
	for _, l := range r.lines {
		if l.userID != userID {
			continue
		}

		p, _ := r.product(l.productID)
		out = append(out, catalog.CartLine{ID: l.id, Product: p, Quantity: l.quantity})
	}

	return out, nil
}

func (r *Repository) CreateCartLine(_ context.Context, cartID, productID string, quantity int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodCreateCartLine); err != nil {
		return "", err
	}

	if quantity <= 0 {
		return "", fmt.Errorf("%w: quantity %d", serviceerr.ErrRemoteRejected, quantity)
	}

	owner := r.cartOwner(cartID)
	if owner == "" {
		return "", notFound("cart", cartID)
	}

	id := r.newID("line")
	r.lines = append(r.lines, line{id: id, cartID: cartID, userID: owner, productID: productID, quantity: quantity})

	return id, nil
}

func (r *Repository) UpdateCartLineQuantity(_ context.Context, lineID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodUpdateCartLineQuantity); err != nil {
		return err
	}

	if quantity <= 0 {
		return fmt.Errorf("%w: quantity %d", serviceerr.ErrRemoteRejected, quantity)
	}

	for i := range r.lines {
		if r.lines[i].id == lineID {
			r.lines[i].quantity = quantity
			return nil
		}
	}

	return notFound("cart line", lineID)
}

func (r *Repository) DeleteCartLine(_ context.Context, lineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodDeleteCartLine); err != nil {
		return err
	}

	for i := range r.lines {
		if r.lines[i].id == lineID {
			r.lines = append(r.lines[:i], r.lines[i+1:]...)
			return nil
		}
	}

	return notFound("cart line", lineID)
}

func (r *Repository) RegisterClientEmail(_ context.Context, userID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call(MethodRegisterClientEmail); err != nil {
		return err
	}

	r.emails[userID] = append(r.emails[userID], email)

	return nil
}

func (r *Repository) call(method string) error {
	r.calls[method]++
	return r.errs[method]
}

func (r *Repository) addCart(userID string) string {
	id := r.newID("cart")
	r.carts = append(r.carts, struct{ id, userID string }{id: id, userID: userID})

	return id
}

func (r *Repository) cartOwner(cartID string) string {
	for _, c := range r.carts {
		if c.id == cartID {
			return c.userID
		}
	}

	return ""
}

func (r *Repository) product(id string) (catalog.Product, bool) {
	for _, p := range r.products {
		if p.ID == id {
			return p, true
		}
	}

	return catalog.Product{}, false
}

func (r *Repository) newID(kind string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", kind, r.nextID)
}

func notFound(kind, id string) error {
	return errors.Join(serviceerr.ErrNotFound, serviceerr.ErrRemoteRejected, fmt.Errorf("%s %q", kind, id))
}
