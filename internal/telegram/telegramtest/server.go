// Package telegramtest provides an in-process fake of the Telegram Bot API.
package telegramtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Call is one Bot API method invocation seen by the server.
type Call struct {
	Method string
	Params url.Values
}

type Server struct {
	*httptest.Server

	token string

	mu        sync.Mutex
	pending   []tgbotapi.Update
	calls     []Call
	messageID int
}

// NewServer starts a fake Bot API accepting the given token. It is closed with the test.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()

	s := &Server{token: token}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// Endpoint is the API endpoint format understood by tgbotapi.NewBotAPIWithAPIEndpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/bot%s/%s"
}

// Push queues updates for the next getUpdates calls.
func (s *Server) Push(updates ...tgbotapi.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, updates...)
}

// Calls returns the parameters of every call to method, in order.
func (s *Server) Calls(method string) []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []url.Values
	for _, c := range s.calls {
		if c.Method == method {
			out = append(out, c.Params)
		}
	}

	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+s.token+"/")
	if !ok {
		writeResult(w, http.StatusUnauthorized, nil, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeResult(w, http.StatusBadRequest, nil, err.Error())
		return
	}

	if method != "getUpdates" {
		s.record(method, r.Form)
	}

	switch method {
	case "getMe":
		writeResult(w, http.StatusOK, tgbotapi.User{ID: 1, IsBot: true, FirstName: "Shop", UserName: "fish_shop_bot"}, "")
	case "getUpdates":
		writeResult(w, http.StatusOK, s.updates(r.Form), "")
	case "sendMessage", "sendPhoto":
		chatID, _ := strconv.ParseInt(r.Form.Get("chat_id"), 10, 64)
		writeResult(w, http.StatusOK, tgbotapi.Message{MessageID: s.nextMessageID(), Chat: &tgbotapi.Chat{ID: chatID}}, "")
	case "answerCallbackQuery", "deleteMessage":
		writeResult(w, http.StatusOK, true, "")
	default:
		writeResult(w, http.StatusNotFound, nil, "Not Found: method not found")
	}
}

func (s *Server) record(method string, params url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: method, Params: params})
}

func (s *Server) nextMessageID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messageID++

	return s.messageID
}

// updates returns the queued updates at or after the requested offset. An empty
// answer is delayed a little to keep the polling loop from spinning.
func (s *Server) updates(form url.Values) []tgbotapi.Update {
	offset, _ := strconv.Atoi(form.Get("offset"))

	s.mu.Lock()
	out := make([]tgbotapi.Update, 0, len(s.pending))
	for _, u := range s.pending {
		if u.UpdateID >= offset {
			out = append(out, u)
		}
	}
	s.mu.Unlock()

	if len(out) == 0 {
		time.Sleep(20 * time.Millisecond)
	}

	return out
}

func writeResult(w http.ResponseWriter, status int, result any, description string) {
	resp := map[string]any{"ok": status == http.StatusOK}
	if status == http.StatusOK {
		resp["result"] = result
	} else {
		resp["error_code"] = status
		resp["description"] = description
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
