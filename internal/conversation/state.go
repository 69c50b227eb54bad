package conversation

import (
	"fmt"

	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

// State is a position in the storefront conversation.
type State int

const (
	StateStart State = iota
	StateBrowsingMenu
	StateViewingProduct
	StateViewingCart
	StateAwaitingEmail
)

var stateNames = [...]string{
	StateStart:          "START",
	StateBrowsingMenu:   "BROWSING_MENU",
	StateViewingProduct: "VIEWING_PRODUCT",
	StateViewingCart:    "VIEWING_CART",
	StateAwaitingEmail:  "AWAITING_EMAIL",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}

// ParseState maps a stored state name to a State. An empty name is the
// initial state. Unknown names return StateStart and an error matching
// serviceerr.ErrUnknownState.
func ParseState(name string) (State, error) {
	if name == "" {
		return StateStart, nil
	}

	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}

	return StateStart, fmt.Errorf("%w: %q", serviceerr.ErrUnknownState, name)
}
