package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

const (
	RoleFacilitator = "facilitator"
	RoleParticipant = "participant"
)

// ConnCtx is the per-connection state. The role is claimed by the client on
// join (carried in the share link as ?role=facilitator); there is no
// authentication beyond knowledge of the link.
type ConnCtx struct {
	GameID string
	Role   string
}

// Server bridges the session store's change events onto Socket.IO rooms and
// maps client events to engine actions. Clients treat every "game:changed"
// broadcast as a hint to refetch the affected collection over REST.
type Server struct {
	engine *game.Engine
	store  game.Store

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // gameID -> socketID -> Conn
	unsubs  map[string]func()                   // gameID -> store unsubscribe
	io      *socketio.Server
}

func New(engine *game.Engine, st game.Store) *Server {
	return &Server{
		engine:  engine,
		store:   st,
		members: make(map[string]map[string]socketio.Conn),
		unsubs:  make(map[string]func()),
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:create
	io.OnEvent("/", "game:create", func(s socketio.Conn) map[string]any {
		g, err := srv.engine.CreateGame(context.Background())
		if err != nil {
			return srv.err(s, "create_failed", err.Error())
		}
		s.SetContext(&ConnCtx{GameID: g.ID, Role: RoleFacilitator})
		s.Join(g.ID)
		srv.addMember(g.ID, s)
		log.Info().Str("sid", s.ID()).Str("gameId", g.ID).Msg("game:create")
		return map[string]any{"gameId": g.ID, "role": RoleFacilitator}
	})

	// game:join
	io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
		Role   string `json:"role"`
	}) map[string]any {
		if _, err := srv.store.GetGame(context.Background(), payload.GameID); err != nil {
			return srv.err(s, "game_not_found", "Game not found")
		}
		role := RoleParticipant
		if payload.Role == RoleFacilitator {
			role = RoleFacilitator
		}
		s.SetContext(&ConnCtx{GameID: payload.GameID, Role: role})
		s.Join(payload.GameID)
		srv.addMember(payload.GameID, s)
		log.Info().Str("sid", s.ID()).Str("gameId", payload.GameID).Str("role", role).Msg("game:join")
		return map[string]any{"ok": true, "role": role}
	})

	// game:settings (facilitator, setup phase)
	io.OnEvent("/", "game:settings", func(s socketio.Conn, payload game.Settings) map[string]any {
		ctx, ok := srv.facilitator(s)
		if !ok {
			return srv.err(s, "forbidden", "Facilitator only")
		}
		if err := srv.engine.UpdateSettings(context.Background(), ctx.GameID, payload); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"ok": true}
	})

	// game:addTeam — open to every client; blank names are dropped silently,
	// matching the original UI.
	io.OnEvent("/", "game:addTeam", func(s socketio.Conn, payload struct {
		Name string `json:"name"`
	}) map[string]any {
		ctx := connCtx(s)
		if ctx.GameID == "" {
			return srv.err(s, "not_joined", "Join a game first")
		}
		t, err := srv.engine.AddTeam(context.Background(), ctx.GameID, payload.Name)
		if errors.Is(err, game.ErrEmptyTeamName) {
			return map[string]any{"ok": true}
		}
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("gameId", ctx.GameID).Str("teamId", t.ID).Msg("game:addTeam")
		return map[string]any{"teamId": t.ID}
	})

	// game:removeTeam
	io.OnEvent("/", "game:removeTeam", func(s socketio.Conn, payload struct {
		TeamID string `json:"teamId"`
	}) map[string]any {
		ctx := connCtx(s)
		if ctx.GameID == "" {
			return srv.err(s, "not_joined", "Join a game first")
		}
		if err := srv.engine.RemoveTeam(context.Background(), ctx.GameID, payload.TeamID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("gameId", ctx.GameID).Str("teamId", payload.TeamID).Msg("game:removeTeam")
		return map[string]any{"ok": true}
	})

	// game:submission — open to every client at any phase; the UI hides the
	// fields outside prompt/twist.
	io.OnEvent("/", "game:submission", func(s socketio.Conn, payload struct {
		TeamID string `json:"teamId"`
		Field  string `json:"field"`
		Value  string `json:"value"`
	}) map[string]any {
		ctx := connCtx(s)
		if ctx.GameID == "" {
			return srv.err(s, "not_joined", "Join a game first")
		}
		if err := srv.engine.EditSubmission(context.Background(), ctx.GameID, payload.TeamID, payload.Field, payload.Value); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"ok": true}
	})

	// game:score (facilitator)
	io.OnEvent("/", "game:score", func(s socketio.Conn, payload struct {
		TeamID string `json:"teamId"`
		Field  string `json:"field"`
		Value  int    `json:"value"`
	}) map[string]any {
		ctx, ok := srv.facilitator(s)
		if !ok {
			return srv.err(s, "forbidden", "Facilitator only")
		}
		if err := srv.engine.SetScore(context.Background(), ctx.GameID, payload.TeamID, payload.Field, payload.Value); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"ok": true}
	})

	// game:start (facilitator)
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		return srv.facilitatorAction(s, "game:start", srv.engine.Start)
	})

	// game:advance (facilitator)
	io.OnEvent("/", "game:advance", func(s socketio.Conn) map[string]any {
		return srv.facilitatorAction(s, "game:advance", srv.engine.Advance)
	})

	// game:finalize (facilitator)
	io.OnEvent("/", "game:finalize", func(s socketio.Conn) map[string]any {
		return srv.facilitatorAction(s, "game:finalize", srv.engine.Finalize)
	})

	// game:playAgain (facilitator)
	io.OnEvent("/", "game:playAgain", func(s socketio.Conn) map[string]any {
		return srv.facilitatorAction(s, "game:playAgain", srv.engine.PlayAgain)
	})

	// game:reset (facilitator) — deletes the session entirely
	io.OnEvent("/", "game:reset", func(s socketio.Conn) map[string]any {
		return srv.facilitatorAction(s, "game:reset", srv.engine.Reset)
	})

	// game:timer (facilitator)
	io.OnEvent("/", "game:timer", func(s socketio.Conn, payload struct {
		Action string `json:"action"` // "start" | "stop" | "reset"
	}) map[string]any {
		ctx, ok := srv.facilitator(s)
		if !ok {
			return srv.err(s, "forbidden", "Facilitator only")
		}
		var err error
		switch payload.Action {
		case "start":
			err = srv.engine.StartTimer(context.Background(), ctx.GameID)
		case "stop":
			err = srv.engine.StopTimer(context.Background(), ctx.GameID)
		case "reset":
			err = srv.engine.ResetTimer(context.Background(), ctx.GameID)
		default:
			return srv.err(s, "bad_request", "Unknown timer action")
		}
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.GameID != "" {
			srv.removeMember(ctx.GameID, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) facilitatorAction(s socketio.Conn, name string, fn func(context.Context, string) error) map[string]any {
	ctx, ok := srv.facilitator(s)
	if !ok {
		return srv.err(s, "forbidden", "Facilitator only")
	}
	if err := fn(context.Background(), ctx.GameID); err != nil {
		return srv.err(s, "bad_request", err.Error())
	}
	log.Info().Str("gameId", ctx.GameID).Msg(name)
	return map[string]any{"ok": true}
}

func (srv *Server) facilitator(s socketio.Conn) (*ConnCtx, bool) {
	ctx := connCtx(s)
	if ctx.GameID == "" || ctx.Role != RoleFacilitator {
		return nil, false
	}
	return ctx, true
}

func connCtx(s socketio.Conn) *ConnCtx {
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx
	}
	return &ConnCtx{}
}

// addMember tracks the connection and, for the first member of a game, wires
// the store subscription that relays change events into the room.
func (srv *Server) addMember(gameID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[gameID] == nil {
		srv.members[gameID] = make(map[string]socketio.Conn)
	}
	srv.members[gameID][c.ID()] = c
	if _, subscribed := srv.unsubs[gameID]; !subscribed {
		srv.unsubs[gameID] = srv.store.Subscribe(gameID, func(ev game.Event) {
			srv.io.BroadcastToRoom("/", ev.GameID, "game:changed", map[string]any{
				"table":  ev.Table,
				"gameId": ev.GameID,
			})
		})
	}
}

// removeMember drops the connection; the store subscription is torn down with
// the last member so no orphaned relay outlives its audience.
func (srv *Server) removeMember(gameID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[gameID]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, gameID)
			if unsub := srv.unsubs[gameID]; unsub != nil {
				unsub()
				delete(srv.unsubs, gameID)
			}
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
