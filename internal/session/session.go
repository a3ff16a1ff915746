package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
)

var ErrClosed = errors.New("session closed")

type Msg interface{ isSessionMsg() }

// FromClient carries one official action. A non-nil ExpectedVersion must match
// the committed version or the command is rejected as a concurrency conflict.
type FromClient struct {
	Cmd             engine.Command
	ExpectedVersion *int
	Reply           chan Outcome // buffered by the sender; may be nil
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type ClockAction string

const (
	ClockStart ClockAction = "start"
	ClockPause ClockAction = "pause"
	ClockReset ClockAction = "reset"
)

func (a ClockAction) Valid() bool {
	return a == ClockStart || a == ClockPause || a == ClockReset
}

// Clock is a manual clock action by an official.
type Clock struct {
	Action ClockAction
	Actor  string
	Reply  chan Outcome
}

func (Clock) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Timer struct {
	DurationSec  int  `json:"duration_sec"`
	RemainingSec int  `json:"remaining_sec"`
	Running      bool `json:"running"`
}

// Snapshot is the full published view of a session. Tick snapshots only carry
// Version and Timer.
type Snapshot struct {
	Version int          `json:"version"`
	Tick    bool         `json:"-"`
	State   engine.State `json:"state"`
	View    engine.View  `json:"view"`
	Timer   Timer        `json:"timer"`
}

type Outcome struct {
	Snapshot Snapshot
	Events   []engine.Event
	Err      error
}

type View struct {
	Version    int
	NumClients int
	Snapshot   Snapshot
}

// Sink receives every committed state with its version. Implementations must not block.
type Sink interface {
	Persist(version int, state engine.State)
}

type Options struct {
	Logger       *zap.Logger
	Sink         Sink
	TickInterval time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type Session struct {
	inbox   chan Msg
	state   engine.State
	view    engine.View
	version int
	timer   Timer
	ticker  *time.Ticker
	clients map[string]chan Snapshot
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, initial engine.State, version int, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	opts = opts.withDefaults()

	s := &Session{
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		version: version,
		clients: make(map[string]chan Snapshot),
		opts:    opts,
		log:     opts.Logger.With(zap.String("session_id", initial.SessionID)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.view = engine.Derive(initial)
	s.timer = Timer{DurationSec: s.view.TimerDefaultSec, RemainingSec: s.view.TimerDefaultSec}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.state.SessionID }

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-s.tickC():
			s.tick()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				s.send(msg.ClientID, msg.Outbox, s.snapshot())

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				out := s.handle(msg)
				if msg.Reply != nil {
					msg.Reply <- out
				}

			case Clock:
				s.clock(msg.Action, msg.Actor)
				if msg.Reply != nil {
					msg.Reply <- Outcome{Snapshot: s.snapshot()}
				}

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					Snapshot:   s.snapshot(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handle(msg FromClient) Outcome {
	cmd := msg.Cmd
	log := s.log.With(zap.String("command", string(cmd.Type)), zap.String("actor", cmd.Actor))

	if msg.ExpectedVersion != nil && *msg.ExpectedVersion != s.version {
		log.Info("command rejected",
			zap.String("code", string(engine.CodeConcurrencyConflict)),
			zap.Int("expected_version", *msg.ExpectedVersion),
			zap.Int("version", s.version))
		return Outcome{Snapshot: s.snapshot(), Err: engine.ErrConcurrencyConflict}
	}

	cmd.At = s.opts.Now()
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		log.Info("command rejected", zap.String("code", string(engine.CodeOf(err))), zap.Error(err))
		return Outcome{Snapshot: s.snapshot(), Err: err}
	}
	if cmd.Override {
		log.Warn("override used", zap.String("attempt_id", cmd.AttemptID), zap.String("athlete_id", cmd.AthleteID))
	}

	prevNext := s.view.Next
	s.state = next
	s.version++
	s.view = engine.Derive(next)
	if !prevNext.Same(s.view.Next) {
		s.reseedTimer()
	}
	log.Debug("command committed", zap.Int("version", s.version), zap.Int("events", len(events)))

	if s.opts.Sink != nil {
		s.opts.Sink.Persist(s.version, s.state)
	}
	snap := s.snapshot()
	s.broadcast(snap)
	return Outcome{Snapshot: snap, Events: events}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, State: s.state, View: s.view, Timer: s.timer}
}

func (s *Session) tickC() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// reseedTimer stops the clock and seeds it for the new turn.
func (s *Session) reseedTimer() {
	s.stopTicker()
	d := s.view.TimerDefaultSec
	s.timer = Timer{DurationSec: d, RemainingSec: d}
}

func (s *Session) clock(action ClockAction, actor string) {
	switch action {
	case ClockStart:
		if s.timer.Running {
			return
		}
		if s.timer.RemainingSec <= 0 {
			s.timer.RemainingSec = s.timer.DurationSec
		}
		s.timer.Running = true
		s.ticker = time.NewTicker(s.opts.TickInterval)
	case ClockPause:
		s.timer.Running = false
		s.stopTicker()
	case ClockReset:
		s.reseedTimer()
	default:
		return
	}
	s.log.Debug("clock", zap.String("action", string(action)), zap.String("actor", actor), zap.Int("remaining_sec", s.timer.RemainingSec))
	s.broadcast(Snapshot{Version: s.version, Tick: true, Timer: s.timer})
}

func (s *Session) tick() {
	if !s.timer.Running {
		s.stopTicker()
		return
	}
	s.timer.RemainingSec--
	if s.timer.RemainingSec <= 0 {
		s.timer.RemainingSec = 0
		s.timer.Running = false
		s.stopTicker()
	}
	s.broadcast(Snapshot{Version: s.version, Tick: true, Timer: s.timer})
}

func (s *Session) shutdown() {
	s.stopTicker()
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		s.log.Info("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(s.clients, id)
	}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		s.send(id, ch, snap)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) post(ctx context.Context, m Msg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit sends cmd and waits for the commit or rejection.
func (s *Session) Submit(ctx context.Context, cmd engine.Command, expectedVersion *int) (Outcome, error) {
	reply := make(chan Outcome, 1)
	if err := s.post(ctx, FromClient{Cmd: cmd, ExpectedVersion: expectedVersion, Reply: reply}); err != nil {
		return Outcome{}, err
	}
	return await(ctx, s.done, reply)
}

// Clock applies a manual clock action and returns the resulting snapshot.
func (s *Session) Clock(ctx context.Context, action ClockAction, actor string) (Outcome, error) {
	if !action.Valid() {
		return Outcome{}, &engine.ValidationError{Reason: engine.CodeInvalidInput, Detail: fmt.Sprintf("unknown clock action %q", action)}
	}
	reply := make(chan Outcome, 1)
	if err := s.post(ctx, Clock{Action: action, Actor: actor, Reply: reply}); err != nil {
		return Outcome{}, err
	}
	return await(ctx, s.done, reply)
}

// Current returns the committed snapshot.
func (s *Session) Current(ctx context.Context) (Snapshot, error) {
	reply := make(chan View, 1)
	if err := s.post(ctx, GetState{Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	v, err := await(ctx, s.done, reply)
	return v.Snapshot, err
}

func await[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-done:
		// the loop may have replied just before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
		}
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
