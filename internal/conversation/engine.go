package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/catalog"
	"github.com/fishshop/storefront-bot/internal/serviceerr"
	"github.com/fishshop/storefront-bot/pkg/session"
)

type EngineOption func(*Engine)

// WithClock sets the time source used to stamp stored sessions.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs the storefront conversation. It keeps no state between events:
// the position of every user is loaded from and stored into the session repository.
type Engine struct {
	sessions session.Repository
	catalog  catalog.Repository
	carts    *carts
	validate *validator.Validate
	now      func() time.Time
}

func NewEngine(sessions session.Repository, catalogRepo catalog.Repository, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions: sessions,
		catalog:  catalogRepo,
		carts:    &carts{catalog: catalogRepo},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// transition is the outcome of a successfully handled event.
type transition struct {
	next      State
	productID string
	reply     Reply
}

// Handle processes one event of a user and returns what to show them.
// The next state is stored only when the event was handled successfully.
// Events that do not fit the current state re-render it and leave the stored state as is,
// except for a product view whose product is gone: the menu is shown and stored instead.
// On error nothing is stored and the reply must be discarded.
func (e *Engine) Handle(ctx context.Context, ev Event) (Reply, error) {
	ctx = slogctx.With(ctx, "user_id", ev.UserID)

	sess, err := e.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, oops.In("conversation").
			With("user_id", ev.UserID).
			Wrapf(err, "loading session")
	}

	current, err := ParseState(sess.State)
	if err != nil {
		slogctx.Warn(ctx, "Restarting conversation from an unknown state", "error", err)
	}

	ctx = slogctx.With(ctx, "state", current.String())

	t, err := e.dispatch(ctx, current, ev)
	if errors.Is(err, serviceerr.ErrMalformedEvent) {
		slogctx.Warn(ctx, "Ignoring event that does not fit the conversation state",
			"event_kind", ev.Kind.String(), "payload", ev.Payload, "error", err)

		t, err = e.rerender(ctx, current, sess, ev)
		if err != nil {
			return Reply{}, oops.In("conversation").
				Code(serviceerr.CodeOf(err)).
				With("user_id", ev.UserID, "state", current.String()).
				Wrapf(err, "re-rendering state")
		}

		if t.next == current {
			return t.reply, nil
		}
	} else if err != nil {
		return Reply{}, oops.In("conversation").
			Code(serviceerr.CodeOf(err)).
			With("user_id", ev.UserID, "state", current.String(), "event_kind", ev.Kind.String()).
			Wrapf(err, "handling event")
	}

	next := session.Session{
		UserID:    ev.UserID,
		State:     t.next.String(),
		ProductID: t.productID,
		UpdatedAt: e.now().UTC(),
	}
	if err := e.sessions.StoreSession(ctx, next); err != nil {
		return Reply{}, oops.In("conversation").
			With("user_id", ev.UserID, "next_state", next.State).
			Wrapf(err, "storing session")
	}

	slogctx.Debug(ctx, "Event handled", "next_state", next.State)

	return t.reply, nil
}

func (e *Engine) loadSession(ctx context.Context, userID string) (session.Session, error) {
	sess, err := e.sessions.LoadSession(ctx, userID)
	switch {
	case errors.Is(err, serviceerr.ErrNotFound):
		slogctx.Debug(ctx, "No session stored, starting a new conversation")
		return session.Session{UserID: userID}, nil
	case errors.Is(err, session.ErrDecodeSession):
		// The next stored state overwrites the corrupt value.
		slogctx.Warn(ctx, "Restarting conversation from an unreadable session", "error", err)
		return session.Session{UserID: userID}, nil
	}

	return sess, err
}

func (e *Engine) dispatch(ctx context.Context, current State, ev Event) (transition, error) {
	if ev.IsRestart() {
		return e.showMenu(ctx, "")
	}

	switch current {
	case StateStart:
		return e.showMenu(ctx, "")
	case StateBrowsingMenu:
		return e.handleMenu(ctx, ev)
	case StateViewingProduct:
		return e.handleProduct(ctx, ev)
	case StateViewingCart:
		return e.handleCart(ctx, ev)
	case StateAwaitingEmail:
		return e.handleEmail(ctx, ev)
	}

	return transition{}, serviceerr.New(serviceerr.CodeUnknownState, current.String())
}

// rerender shows the current state again. The returned transition only leaves
// current when the state cannot be shown anymore, and then it must be stored so
// the stored state matches the keyboard on screen.
func (e *Engine) rerender(ctx context.Context, current State, sess session.Session, ev Event) (transition, error) {
	switch current {
	case StateStart, StateBrowsingMenu:
		t, err := e.showMenu(ctx, "")
		t.next = current

		return t, err
	case StateViewingProduct:
		t, err := e.showProduct(ctx, sess.ProductID)
		if errors.Is(err, serviceerr.ErrMalformedEvent) {
			slogctx.Warn(ctx, "Viewed product is gone, falling back to the menu", "product_id", sess.ProductID)
			return e.showMenu(ctx, "")
		}

		return t, err
	case StateViewingCart:
		return e.showCart(ctx, ev.UserID)
	case StateAwaitingEmail:
		notice := ""
		if ev.Kind == EventText {
			notice = textInvalidEmail
		}

		return transition{next: StateAwaitingEmail, reply: emailPromptReply(notice)}, nil
	}

	return transition{}, serviceerr.New(serviceerr.CodeUnknownState, current.String())
}
