package session

import "time"

// Session is the persisted position of one chat user in the storefront conversation.
type Session struct {
	UserID    string    // Chat user the session belongs to
	State     string    // Name of the current conversation state
	ProductID string    // Product on display, only set while a product is being viewed
	UpdatedAt time.Time // Last time the session was stored
}
