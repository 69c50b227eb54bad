package conversation

import "strings"

// RestartCommand restarts the conversation from any state.
const RestartCommand = "/start"

type EventKind int

const (
	EventText EventKind = iota
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is a normalized inbound chat event. Payload is the message text for
// text events and the button token for callbacks.
type Event struct {
	ID      string
	UserID  string
	Kind    EventKind
	Payload string
}

func TextEvent(userID, text string) Event {
	return Event{UserID: userID, Kind: EventText, Payload: text}
}

func CallbackEvent(userID, token string) Event {
	return Event{UserID: userID, Kind: EventCallback, Payload: token}
}

func (e Event) IsRestart() bool {
	return e.Kind == EventText && strings.TrimSpace(e.Payload) == RestartCommand
}
