package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/auth"
	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
	"github.com/DoyleJ11/liftmeet-backend/internal/hub"
	"github.com/DoyleJ11/liftmeet-backend/internal/session"
	"github.com/DoyleJ11/liftmeet-backend/internal/types"
)

const writeTimeout = 3 * time.Second

type Options struct {
	Logger         *zap.Logger
	Guard          *auth.OverrideGuard
	ClientBuffer   int
	OriginPatterns []string
}

// Handler subscribes a client to ?session=ID. Every committed snapshot and clock
// tick is pushed to it; commands sent by the client are answered with Ack or Error.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ClientBuffer < 1 {
		opts.ClientBuffer = 8
	}
	log := opts.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		sess, err := h.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, hub.ErrSessionNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			log.Error("session lookup failed", zap.String("session_id", id), zap.Error(err))
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("session_id", id), zap.String("client_id", clientID))

		out := make(chan session.Snapshot, opts.ClientBuffer)
		select {
		case sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}:
		case <-sess.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			select {
			case sess.Inbox() <- session.Leave{ClientID: clientID}:
			case <-sess.Done():
			}
		}()
		clog.Debug("client subscribed")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. A closed outbox means the session dropped us or shut down.
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusTryAgainLater, "subscription ended")
						return
					}
					if err := write(ctx, conn, types.SnapshotMessage(snap)); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("client left")
				}
				// Otherwise, just exit (session.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json", Code: engine.CodeInvalidInput})
				continue
			}

			reply := dispatch(ctx, sess, opts.Guard, cm)
			if reply.Type == types.MsgError {
				clog.Info("command rejected", zap.String("type", cm.Type), zap.String("code", string(reply.Code)))
			}
			if err := write(ctx, conn, reply); err != nil {
				return
			}
		}
	}
}

func dispatch(ctx context.Context, sess *session.Session, guard *auth.OverrideGuard, cm types.ClientMessage) types.ServerMessage {
	fail := func(err error) types.ServerMessage {
		return types.ServerMessage{Type: types.MsgError, RequestID: cm.RequestID, Error: err.Error(), Code: codeOf(err)}
	}

	if cm.Type == types.ClockCommand {
		res, err := sess.Clock(ctx, session.ClockAction(cm.Action), cm.Actor)
		if err != nil {
			return fail(err)
		}
		return types.ServerMessage{Type: types.MsgAck, RequestID: cm.RequestID, Version: res.Snapshot.Version, Timer: &res.Snapshot.Timer}
	}

	if cm.Override {
		if err := guard.Authorize(cm.Actor, cm.OverridePIN); err != nil {
			return fail(err)
		}
	}
	res, err := sess.Submit(ctx, cm.Command(engine.CommandType(cm.Type)), cm.ExpectedVersion)
	if err == nil {
		err = res.Err
	}
	if err != nil {
		return fail(err)
	}
	return types.ServerMessage{Type: types.MsgAck, RequestID: cm.RequestID, Version: res.Snapshot.Version, Events: res.Events}
}

func codeOf(err error) engine.Code {
	switch {
	case errors.Is(err, auth.ErrOverrideDenied), errors.Is(err, auth.ErrOverrideDisabled):
		return engine.CodeOverrideDenied
	case errors.Is(err, session.ErrClosed):
		return engine.CodeInvalidState
	}
	return engine.CodeOf(err)
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
