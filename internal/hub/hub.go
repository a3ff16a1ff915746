package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
	"github.com/DoyleJ11/liftmeet-backend/internal/session"
	"github.com/DoyleJ11/liftmeet-backend/internal/store"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrHubClosed       = errors.New("hub closed")
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	State engine.State
	Reply chan *session.Session // nil when the id is taken
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

// EnsureSession registers a rehydrated session unless one is already live.
type EnsureSession struct {
	State   engine.State
	Version int
	Reply   chan *session.Session
}

type RemoveSession struct {
	ID string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Options struct {
	Logger       *zap.Logger
	Store        store.Store  // optional; used to rehydrate sessions
	Sink         session.Sink // optional; receives every committed state
	TickInterval time.Duration
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		log:      opts.Logger.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if h.sessions[msg.State.SessionID] != nil {
					msg.Reply <- nil
					break
				}
				s := h.start(msg.State, 0)
				if h.opts.Sink != nil {
					h.opts.Sink.Persist(0, msg.State)
				}
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.State.SessionID]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.start(msg.State, msg.Version)

			case RemoveSession:
				if s := h.sessions[msg.ID]; s != nil {
					notify(s, session.Shutdown{})
					delete(h.sessions, msg.ID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) start(state engine.State, version int) *session.Session {
	s := session.New(h.ctx, state, version, session.Options{
		Logger:       h.opts.Logger,
		Sink:         h.opts.Sink,
		TickInterval: h.opts.TickInterval,
	})
	h.sessions[state.SessionID] = s
	h.log.Info("session started", zap.String("session_id", state.SessionID), zap.Int("version", version))
	return s
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		notify(s, session.Shutdown{})
		delete(h.sessions, id)
	}
	h.cancel()
}

// notify never blocks the hub; a full inbox still ends through context cancellation.
func notify(s *session.Session, m session.Msg) {
	select {
	case s.Inbox() <- m:
	default:
	}
}

func ask[T any](ctx context.Context, h *Hub, msg HubMsg, reply <-chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create starts a new live session for state.
func (h *Hub) Create(ctx context.Context, state engine.State) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	s, err := ask(ctx, h, CreateSession{State: state, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, state.SessionID)
	}
	return s, nil
}

// Get returns the live session, rehydrating it from the store when it is not in memory.
// Store reads happen on the caller's goroutine so the hub loop never waits on I/O.
func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	s, err := ask(ctx, h, GetSession{ID: id, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	if h.opts.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	state, version, err := h.opts.Store.LoadSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", id, err)
	}
	h.log.Info("rehydrating session", zap.String("session_id", id), zap.Int("version", version))

	reply = make(chan *session.Session, 1)
	return ask(ctx, h, EnsureSession{State: state, Version: version, Reply: reply}, reply)
}

func (h *Hub) Remove(id string) {
	select {
	case h.inbox <- RemoveSession{ID: id}:
	case <-h.done:
	}
}

// Shutdown stops every session and waits for the hub loop to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
