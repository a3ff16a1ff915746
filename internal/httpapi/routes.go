package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/auth"
	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
	"github.com/DoyleJ11/liftmeet-backend/internal/hub"
	"github.com/DoyleJ11/liftmeet-backend/internal/ws"
)

type Options struct {
	Logger         *zap.Logger
	Guard          *auth.OverrideGuard
	ClientBuffer   int
	OriginPatterns []string
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")
	g := opts.Guard

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, ws.Options{
		Logger:         opts.Logger,
		Guard:          g,
		ClientBuffer:   opts.ClientBuffer,
		OriginPatterns: opts.OriginPatterns,
	}))

	r.Post("/sessions", CreateSession(h, log))
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", GetSession(h, log))
		r.Get("/history", History(h, log))
		r.Get("/audit", Audit(h, log))

		r.Post("/athletes", Command(h, g, log, engine.CmdRegisterAthlete, nil))
		r.Route("/athletes/{athleteID}", func(r chi.Router) {
			r.Post("/weigh-in", Command(h, g, log, engine.CmdMarkWeighedIn, athleteParam))
			r.Post("/disqualification", Command(h, g, log, engine.CmdToggleDisqualification, athleteParam))
			r.Post("/medal", Command(h, g, log, engine.CmdAssignMedal, athleteParam))
		})

		r.Post("/declarations", Command(h, g, log, engine.CmdDeclareWeight, nil))
		r.Post("/weight-changes", Command(h, g, log, engine.CmdRequestWeightChange, nil))
		r.Post("/attempts/{attemptID}/judge", Command(h, g, log, engine.CmdJudgeAttempt, attemptParam))
		r.Post("/phase", Command(h, g, log, engine.CmdTransitionPhase, nil))
		r.Post("/clock", Clock(h, log))
	})
	return r
}
