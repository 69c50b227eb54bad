// Package strapitest provides an in-memory Strapi API for tests.
package strapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

type Product struct {
	DocumentID  string  `json:"documentId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	PictureURL  string  `json:"-"`
}

type CartLine struct {
	DocumentID string
	CartID     string
	ProductID  string
	AmountKg   int
}

type Client struct {
	Email    string `json:"email"`
	TgUserID string `json:"tg_user_id"`
}

// Server is a fake Strapi instance. All fields are guarded by the server lock,
// use the accessor methods while requests may be in flight.
type Server struct {
	*httptest.Server

	token string

	mu       sync.Mutex
	products []Product
	pictures map[string][]byte
	carts    map[string]string // cart id -> user id
	lines    []CartLine
	clients  []Client
	requests []string
	failures []int
	nextID   int
}

// NewServer starts a fake Strapi requiring the given bearer token. It is closed when the test ends.
func NewServer(t *testing.T, token string) *Server {
	t.Helper()

	s := &Server{
		token:    token,
		pictures: make(map[string][]byte),
		carts:    make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{$}", s.listProducts)
	mux.HandleFunc("GET /api/products/{id}", s.getProduct)
	mux.HandleFunc("GET /uploads/{name}", s.getPicture)
	mux.HandleFunc("GET /api/carts/{$}", s.findCart)
	mux.HandleFunc("POST /api/carts/{$}", s.createCart)
	mux.HandleFunc("GET /api/product-carts/{$}", s.listLines)
	mux.HandleFunc("POST /api/product-carts/{$}", s.createLine)
	mux.HandleFunc("PUT /api/product-carts/{id}", s.updateLine)
	mux.HandleFunc("DELETE /api/product-carts/{id}", s.deleteLine)
	mux.HandleFunc("POST /api/clients/{$}", s.createClient)

	s.Server = httptest.NewServer(s.middleware(mux))
	t.Cleanup(s.Close)

	return s
}

// AddProduct registers a product. A non empty picture is served under /uploads/<id>.png.
func (s *Server) AddProduct(p Product, picture []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(picture) > 0 {
		p.PictureURL = "/uploads/" + p.DocumentID + ".png"
		s.pictures[p.DocumentID+".png"] = picture
	}

	s.products = append(s.products, p)
}

// AddCart registers an existing cart for a user and returns its id.
func (s *Server) AddCart(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID("cart")
	s.carts[id] = userID

	return id
}

// AddCartLine registers an existing cart line and returns its id.
func (s *Server) AddCartLine(cartID, productID string, amountKg int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID("line")
	s.lines = append(s.lines, CartLine{DocumentID: id, CartID: cartID, ProductID: productID, AmountKg: amountKg})

	return id
}

// Fail makes the next requests answer with the given statuses, one per request.
func (s *Server) Fail(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, statuses...)
}

func (s *Server) Carts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.carts))
	for k, v := range s.carts {
		out[k] = v
	}

	return out
}

func (s *Server) CartLines() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]CartLine(nil), s.lines...)
}

func (s *Server) Clients() []Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Client(nil), s.clients...)
}

// Requests returns "<METHOD> <path>" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requests...)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "missing or invalid credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeData(w, http.StatusOK, s.products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.product(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	doc := map[string]any{
		"documentId":  p.DocumentID,
		"title":       p.Title,
		"description": p.Description,
		"price":       p.Price,
	}
	if r.URL.Query().Get("populate") == "picture" && p.PictureURL != "" {
		doc["picture"] = map[string]any{"url": p.PictureURL}
	}

	writeData(w, http.StatusOK, doc)
}

func (s *Server) getPicture(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.pictures[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) findCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := r.URL.Query().Get("filters[tg_user_id][$eq]")

	carts := []map[string]string{}
	for id, owner := range s.carts {
		if owner == userID {
			carts = append(carts, map[string]string{"documentId": id, "tg_user_id": owner})
		}
	}

	writeData(w, http.StatusOK, carts)
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data struct {
			TgUserID string `json:"tg_user_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data.TgUserID == "" {
		writeError(w, http.StatusBadRequest, "invalid cart")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID("cart")
	s.carts[id] = body.Data.TgUserID

	writeData(w, http.StatusCreated, map[string]string{"documentId": id, "tg_user_id": body.Data.TgUserID})
}

func (s *Server) listLines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := r.URL.Query().Get("filters[cart][tg_user_id][$eq]")
	populate := r.URL.Query().Get("populate[0]") == "product"

	lines := []map[string]any{}
	for _, l := range s.lines {
		if s.carts[l.CartID] != userID {
			continue
		}

		doc := map[string]any{"documentId": l.DocumentID, "amount_kg": l.AmountKg}
		if p, ok := s.product(l.ProductID); ok && populate {
			doc["product"] = p
		}

		lines = append(lines, doc)
	}

	writeData(w, http.StatusOK, lines)
}

func (s *Server) createLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data struct {
			Cart     struct{ Connect string } `json:"cart"`
			Product  struct{ Connect string } `json:"product"`
			AmountKg int                      `json:"amount_kg"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data.AmountKg <= 0 {
		writeError(w, http.StatusBadRequest, "invalid cart line")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[body.Data.Cart.Connect]; !ok {
		writeError(w, http.StatusBadRequest, "unknown cart")
		return
	}

	id := s.newID("line")
	s.lines = append(s.lines, CartLine{
		DocumentID: id,
		CartID:     body.Data.Cart.Connect,
		ProductID:  body.Data.Product.Connect,
		AmountKg:   body.Data.AmountKg,
	})

	writeData(w, http.StatusCreated, map[string]any{"documentId": id, "amount_kg": body.Data.AmountKg})
}

func (s *Server) updateLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data struct {
			AmountKg int `json:"amount_kg"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data.AmountKg <= 0 {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].DocumentID == r.PathValue("id") {
			s.lines[i].AmountKg = body.Data.AmountKg
			writeData(w, http.StatusOK, map[string]any{"documentId": s.lines[i].DocumentID, "amount_kg": s.lines[i].AmountKg})

			return
		}
	}

	writeError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) deleteLine(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].DocumentID == r.PathValue("id") {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			w.WriteHeader(http.StatusNoContent)

			return
		}
	}

	writeError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data Client `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients = append(s.clients, body.Data)

	writeData(w, http.StatusCreated, map[string]string{"documentId": s.newID("client"), "email": body.Data.Email})
}

func (s *Server) product(id string) (Product, bool) {
	for _, p := range s.products {
		if p.DocumentID == id {
			return p, true
		}
	}

	return Product{}, false
}

func (s *Server) newID(kind string) string {
	s.nextID++
	return kind + "-" + strconv.Itoa(s.nextID)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]any{"status": status, "message": msg},
	})
}
